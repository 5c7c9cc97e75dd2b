package handlers

import (
	"league-event-system/middleware"
	"league-event-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService) {
	// Read-only routes
	app.Get("/events", eventService.GetAllEvents)
	app.Get("/events/:id", eventService.GetEventByID)
	app.Get("/events/:id/players", eventService.GetRoster)

	// Player-facing registration flow
	app.Post("/events/:id/register", eventService.RegisterPlayer)
	app.Put("/events/:id/players/:user_id/decklist", eventService.SubmitDecklist)

	// Operator routes
	operator := app.Group("/", middleware.UserContextMiddleware())
	operator.Post("/events", eventService.CreateEvent)
	operator.Patch("/events/:id/status", eventService.UpdateEventStatus)
}
