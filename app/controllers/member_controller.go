package controllers

import (
	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/internal/pkg/membership"
	"github.com/andefred/eldsal/internal/pkg/middleware"
	"github.com/andefred/eldsal/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// MemberController serves the logged in member's own data.
type MemberController struct {
	members *membership.Service
}

func NewMemberController(members *membership.Service) *MemberController {
	return &MemberController{members: members}
}

// HandleMe returns the member's client object including both fee states.
func (mc *MemberController) HandleMe(c *fiber.Ctx) error {
	obj, err := mc.members.Me(usercontext.GetSubject(c))
	if err != nil {
		return serviceError(c, err, "load member")
	}
	return c.JSON(obj)
}

// HandleUpdateProfile stores the member's profile fields.
func (mc *MemberController) HandleUpdateProfile(c *fiber.Ctx) error {
	var update models.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_input", "Invalid request body")
	}

	obj, err := mc.members.UpdateProfile(middleware.PathParam(c, "subject"), &update)
	if err != nil {
		return serviceError(c, err, "update profile")
	}
	return c.JSON(obj)
}
