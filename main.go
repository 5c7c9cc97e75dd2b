package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"league-event-system/handlers"
	"league-event-system/middleware"
	"league-event-system/models"
	"league-event-system/services"
	"league-event-system/utils"
	"league-event-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — decklist files are small
	})

	// GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Event{},
		&models.PlayerEvent{},
		&models.Payment{},
		&models.DiscordLink{},
		&models.EmailLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- External collaborators ---
	discordClient, err := services.NewDiscordClient(
		os.Getenv("DISCORD_API_BASE_URL"), // optional, defaults to the public API
		os.Getenv("DISCORD_BOT_TOKEN"),
		os.Getenv("DISCORD_GUILD_ID"),
	)
	if err != nil {
		log.Fatal("failed to configure Discord client:", err)
	}

	emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
	if emailServiceURL == "" {
		log.Fatal("EMAIL_SERVICE_URL environment variable not set")
	}
	emailService := services.NewEmailService(emailServiceURL, os.Getenv("EMAIL_SERVICE_TOKEN"), db)

	// --- Services ---
	store := services.NewStore(db)
	checkinService := services.NewCheckinService(
		store,
		discordClient,
		os.Getenv("DISCORD_CHECKIN_ROLE_NAME"),
		os.Getenv("DISCORD_CHECKIN_ROLE_ID"),
	)
	checkinService.Email = emailService
	eventService := services.NewEventService(db, emailService)
	paymentService := services.NewPaymentService(db, emailService)

	// --- Background workers ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("LEAGUE_SERVICE_TOKEN")

	linkSyncWorker := workers.NewDiscordLinkSyncWorker(db, profileServiceURL, "/api/v1/public/discord-links", serviceToken)

	paymentSyncClient := workers.NewPaymentSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollPayments(ctx, paymentSyncClient, 30*time.Second)

	go func() {
		log.Println("Starting Discord Link Sync Worker...")
		linkSyncWorker.Start(ctx)
	}()

	eventService.StartRegistrationScheduler()

	// --- Routes ---
	handlers.SetupEventRoutes(app, eventService)
	handlers.SetupCheckinRoutes(app, checkinService)
	handlers.SetupWebhookRoutes(app, paymentService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Server running on http://localhost:5300")
	log.Println("Discord Link Sync Worker running")
	log.Println("Payment reconciliation polling running (every 30s)")
	log.Println("Registration-close scheduler running (every 1m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
