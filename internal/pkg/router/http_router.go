package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voltagency/voltsite/app/controllers"
	"github.com/voltagency/voltsite/internal/pkg/middleware"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// InstallRouter registers all API routes. The webhook endpoint is
// authenticated by its signature, the invoice endpoints by the admin key.
func (h HttpRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")

	// Stripe calls this; auth happens via Stripe-Signature, never a key.
	api.Post("/stripe/webhook", controllers.HandleStripeWebhook)

	admin := api.Group("/invoices", middleware.AdminKeyMiddleware())
	admin.Post("/", controllers.HandleCreateInvoice)
	admin.Get("/", controllers.HandleListInvoices)
	admin.Post("/:id/payment-link", controllers.HandleIssuePaymentLink)
}

// InstallRouter is the package-level convenience used by main.
func InstallRouter(app *fiber.App) {
	NewHttpRouter().InstallRouter(app)
}
