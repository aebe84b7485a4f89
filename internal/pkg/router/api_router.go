package router

import (
	"time"

	"github.com/andefred/eldsal/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
	}), h.deps.Auth.Handler())

	api.Get("/me", h.deps.Member.HandleMe)
	api.Patch("/members/:subject/profile", middleware.RequireSelf("subject"), h.deps.Member.HandleUpdateProfile)

	checkout := api.Group("/checkout", middleware.RequireAuth)
	checkout.Get("/subscriptions", h.deps.Checkout.HandleSubscriptions)
	checkout.Post("/:flavour/session", h.deps.Checkout.HandleCreateSession)
	checkout.Get("/:flavour/session", h.deps.Checkout.HandleReconcileSession)
	checkout.Get("/:flavour/prices", h.deps.Checkout.HandlePrices)

	h.registerAdminRoutes(api)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
