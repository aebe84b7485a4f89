package router

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// HttpRouter serves the routes that do not carry a member token.
type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Signed by the checkout provider, one endpoint per account.
	app.Post("/webhooks/stripe/:flavour", h.deps.Webhook.HandleStripeWebhook)

	metricsHandler := adaptor.HTTPHandler(h.deps.Metrics.Handler())
	if h.deps.MetricsAuth.Password != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				h.deps.MetricsAuth.User: h.deps.MetricsAuth.Password,
			},
		}), metricsHandler)
	} else {
		app.Get("/metrics", metricsHandler)
	}

	// SWAGGER / OPENAPI
	if h.deps.OpenAPIFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: h.deps.OpenAPIFile,
			Path:     "v1",
		}))
	}
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
