package router

import (
	"github.com/andefred/eldsal/app/controllers"
	"github.com/andefred/eldsal/internal/pkg/config"
	"github.com/andefred/eldsal/internal/pkg/metrics/counter"
	"github.com/andefred/eldsal/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies holds what the routers hand out to their routes.
type Dependencies struct {
	Auth     *middleware.Authenticator
	Member   *controllers.MemberController
	Admin    *controllers.AdminController
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Metrics  *counter.Metrics
	// LimiterStorage backs the API rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	MetricsAuth    config.MetricsConfig
	// OpenAPIFile is served under /docs/api/v1 when set.
	OpenAPIFile string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Webhooks and metrics sit outside /api and its token check.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
