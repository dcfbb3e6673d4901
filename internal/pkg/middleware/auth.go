package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/glaciervault/glaciervault/internal/pkg/token"
	"github.com/glaciervault/glaciervault/internal/pkg/usercontext"
)

// RequireJWT validates the bearer token and attaches the user context.
// API routes return JSON 401 instead of redirecting.
func RequireJWT(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return unauthorized(c, "missing bearer token")
	}

	claims, err := token.Parse(raw)
	if err != nil {
		return unauthorized(c, "invalid or expired token")
	}

	usercontext.SetUserContext(c, usercontext.UserContext{
		UserID:     claims.UserID,
		Username:   claims.Username,
		Email:      claims.Email,
		IsLoggedIn: true,
		IsAdmin:    claims.IsAdmin,
	})
	return c.Next()
}

// RequireAdmin ensures the authenticated user is an admin.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": msg,
	})
}
