package router

import (
	"github.com/andefred/eldsal/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h ApiRouter) registerAdminRoutes(api fiber.Router) {
	adminGroup := api.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/members", h.deps.Admin.HandleMembers)
	// Registered before the :subject routes so "export" is not read as a subject.
	adminGroup.Get("/members/export", h.deps.Admin.HandleExport)
	adminGroup.Patch("/members/:subject/fees/:flavour", h.deps.Admin.HandleSetFee)
}
