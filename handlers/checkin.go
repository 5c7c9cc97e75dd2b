package handlers

import (
	"league-event-system/middleware"
	"league-event-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCheckinRoutes(app *fiber.App, checkinService *services.CheckinService) {
	// Check-in is an operator action
	operator := app.Group("/", middleware.UserContextMiddleware())
	operator.Post("/events/:id/players/:user_id/checkin", checkinService.HandleCheckin)
	operator.Post("/events/:id/checkin", checkinService.HandleBulkCheckin)
	operator.Post("/presence/validate", checkinService.HandleValidatePresence)
}
