// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates the `token` query parameter. EventSource cannot send headers.
//
// Usage:
//
//	app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(validator), hub.StreamSSE)
func SSEAuthMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ Missing token query param on %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}

		userID, err := validator.Validate(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed (prefix: %.10s...): %v", accessToken, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", userID)
		log.Printf("[SSEAuth] ✅ Authenticated user %s", userID)
		return c.Next()
	}
}
