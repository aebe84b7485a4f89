package controllers

import (
	"bytes"

	"github.com/andefred/eldsal/internal/pkg/membership"
	"github.com/andefred/eldsal/internal/pkg/middleware"
	"github.com/andefred/eldsal/internal/pkg/roster"
	"github.com/andefred/eldsal/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// AdminController handles the admin member list, roster export and fee edits.
type AdminController struct {
	members *membership.Service
}

func NewAdminController(members *membership.Service) *AdminController {
	return &AdminController{members: members}
}

// HandleMembers lists the members sorted by name.
func (ac *AdminController) HandleMembers(c *fiber.Ctx) error {
	list, err := ac.members.List()
	if err != nil {
		return serviceError(c, err, "list members")
	}
	return c.JSON(list)
}

// HandleExport sends the roster as a CSV attachment.
func (ac *AdminController) HandleExport(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := ac.members.ExportRoster(&buf); err != nil {
		return serviceError(c, err, "export members")
	}

	c.Set(fiber.HeaderContentType, roster.ContentType)
	c.Attachment(roster.FileName)
	return c.Send(buf.Bytes())
}

// HandleSetFee applies an admin fee mutation and returns the resulting state.
func (ac *AdminController) HandleSetFee(c *fiber.Ctx) error {
	f, ok := flavourParam(c)
	if !ok {
		return unknownFlavour(c)
	}

	var req map[string]any
	if err := c.BodyParser(&req); err != nil || req == nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_input", "Invalid request body")
	}

	subject := middleware.PathParam(c, "subject")
	state, err := ac.members.SetFee(subject, f, req)
	if err != nil {
		return serviceError(c, err, "set fee")
	}

	fiberlog.Infof("admin %s set %s fee of %s (paid=%t)", usercontext.GetSubject(c), f, subject, state.Paid)
	return c.JSON(state)
}
