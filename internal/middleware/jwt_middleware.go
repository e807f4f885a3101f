package middleware

import (
	"log"
	"strings"

	"orderd/internal/apperr"
	"orderd/internal/auth"
	"orderd/internal/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.New(apperr.AuthMissing, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") || parts[1] == "" {
			return apperr.New(apperr.AuthInvalid, "Authorization header format must be 'Bearer <token>'")
		}

		principal, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return apperr.Wrap(apperr.AuthInvalid, "Invalid or expired token", err)
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// Principal returns the caller authenticated by AuthRequired.
func Principal(c *fiber.Ctx) auth.Principal {
	p, _ := c.Locals(principalKey).(auth.Principal)
	return p
}
