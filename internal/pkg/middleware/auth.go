package middleware

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/app/repository"
	icuser "github.com/andefred/eldsal/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// refreshAfter limits how often a returning member's identity fields are written.
const refreshAfter = time.Hour

// Authenticator verifies bearer tokens and mirrors the token's member locally.
type Authenticator struct {
	verifier   TokenVerifier
	members    repository.MemberRepository
	connection string
	now        func() time.Time
}

// NewAuthenticator creates the authentication middleware. Members whose token
// does not name a connection are assigned to connection when their subject
// belongs to the identity provider's own database.
func NewAuthenticator(verifier TokenVerifier, members repository.MemberRepository, connection string) *Authenticator {
	return &Authenticator{
		verifier:   verifier,
		members:    members,
		connection: connection,
		now:        time.Now,
	}
}

// Handler verifies the bearer token and sets the user context. Requests
// without a valid token are rejected with 401.
func (a *Authenticator) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return unauthorized(c, "Missing bearer token")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
		defer cancel()

		claims, err := a.verifier.Verify(ctx, raw)
		if err != nil {
			return unauthorized(c, "Invalid token")
		}

		member, err := a.provision(claims)
		if err != nil {
			fiberlog.Errorf("provision member %s: %v", claims.Subject, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "Could not load member",
			})
		}

		icuser.Set(c, icuser.UserContext{
			Subject:     member.Subject,
			Email:       member.Email,
			IsLoggedIn:  true,
			IsAdmin:     member.IsAdmin(),
			IsDeveloper: member.IsDeveloper(),
		})
		return c.Next()
	}
}

func (a *Authenticator) provision(claims *Claims) (*models.Member, error) {
	now := a.now().UTC()

	existing, err := a.members.GetBySubject(claims.Subject)
	if err == nil && existing.LastLoginAt != nil && now.Sub(*existing.LastLoginAt) < refreshAfter {
		return existing, nil
	}

	member := &models.Member{
		Subject:     claims.Subject,
		Connection:  a.connectionOf(claims),
		Name:        claims.Name,
		GivenName:   claims.GivenName,
		FamilyName:  claims.FamilyName,
		Email:       claims.Email,
		Picture:     claims.Picture,
		LastLoginAt: &now,
	}
	if err == nil {
		// Keep what the member already has when the token omits it.
		if member.Email == "" {
			member.Email = existing.Email
		}
		if member.Picture == "" {
			member.Picture = existing.Picture
		}
	}
	if err := a.members.Provision(member); err != nil {
		return nil, err
	}
	return member, nil
}

func (a *Authenticator) connectionOf(claims *Claims) string {
	if claims.Connection != "" {
		return claims.Connection
	}
	provider, _, found := strings.Cut(claims.Subject, "|")
	if !found || provider == "auth0" {
		return a.connection
	}
	return provider
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}

// RequireAuth ensures a verified member; returns JSON 401 otherwise.
func RequireAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return unauthorized(c, "login required")
	}
	return c.Next()
}

// RequireAdmin ensures the member has the admin role.
func RequireAdmin(c *fiber.Ctx) error {
	uc := icuser.GetUserContext(c)
	if !uc.IsLoggedIn {
		return unauthorized(c, "login required")
	}
	if !uc.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "Admin role required",
		})
	}
	return c.Next()
}

// RequireSelf ensures the route parameter param names the member itself.
func RequireSelf(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := icuser.GetUserContext(c)
		if !uc.IsLoggedIn || PathParam(c, param) != uc.Subject {
			return unauthorized(c, "No logged in user")
		}
		return c.Next()
	}
}

// PathParam returns the unescaped route parameter. Subjects contain "|",
// which clients send percent-encoded.
func PathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
