package middleware

import (
	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/domain"
)

// RequireRole admits users holding role. Admins hold every role.
func RequireRole(role domain.UserRole) fiber.Handler {
	return RequireAnyRole(role)
}

func RequireAnyRole(roles ...domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return Unauthorized("User not found")
		}

		for _, role := range roles {
			if user.HasRole(role) {
				return c.Next()
			}
		}

		return Forbidden("Insufficient permissions for this operation")
	}
}
