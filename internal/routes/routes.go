package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/woo-slack-tools/internal/handlers"
)

// SetupRoutes configures all routes. Everything under /slack passes the
// signature middleware first; health endpoints are open.
func SetupRoutes(app *fiber.App, slackAuth fiber.Handler, slackHandler *handlers.SlackHandler, health *handlers.HealthHandler) {
	app.Get("/", health.Root)
	app.Get("/health", health.Check)

	// ========== SLACK WEBHOOKS ==========
	slackRoutes := app.Group("/slack", slackAuth)

	// Slash commands
	slackRoutes.Post("/command", slackHandler.DraftProduct)
	slackRoutes.Post("/draftproduct", slackHandler.DraftProduct)
	slackRoutes.Post("/priceupdate", slackHandler.PriceUpdate)
	slackRoutes.Post("/customermeta", slackHandler.CustomerMeta)
	slackRoutes.Post("/findorder", slackHandler.FindOrder)
	slackRoutes.Post("/findidorder", slackHandler.FindIDOrder)
	slackRoutes.Post("/findcustomid", slackHandler.FindCustomID)
	slackRoutes.Post("/editorder", slackHandler.EditOrder)
	slackRoutes.Post("/editorderstatus", slackHandler.EditOrderStatus)
	slackRoutes.Post("/orderpdf", slackHandler.OrderPDF)

	// Buttons
	slackRoutes.Post("/interact", slackHandler.HandleInteraction)
}
