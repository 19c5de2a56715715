package middleware

import (
	"errors"
	"strings"

	"lane-inventory/internal/model"
	"lane-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth is middleware that validates JWT token and sets user info in context
func RequireAuth(authService service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		user, err := authService.Authenticate(c.UserContext(), parts[1])
		switch {
		case errors.Is(err, service.ErrSessionReplaced):
			return c.Status(401).JSON(fiber.Map{"error": "Session expired (logged in on another device)"})
		case errors.Is(err, service.ErrUserInactive):
			return c.Status(401).JSON(fiber.Map{"error": "User account is inactive"})
		case err != nil:
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.Name)
		c.Locals("user_role", string(user.Role))

		return c.Next()
	}
}

// RequireRole lets the request through only when the authenticated user has one of roles.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("user_role").(string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No role found"})
		}

		for _, r := range roles {
			if string(r) == role {
				return c.Next()
			}
		}

		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires role " + strings.Join(names, " or "),
		})
	}
}
