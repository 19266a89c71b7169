// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenValidator resolves an access token to a user id (services.TokenValidator).
type TokenValidator interface {
	Validate(token string) (string, error)
}

// ValidatorFunc adapts a plain function to TokenValidator.
type ValidatorFunc func(token string) (string, error)

func (f ValidatorFunc) Validate(token string) (string, error) { return f(token) }

// UserContextMiddleware verifies the bearer access token and stores the user id in c.Locals("user_id").
func UserContextMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || token == authHeader || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		userID, err := validator.Validate(token)
		if err != nil {
			log.Printf("❌ [USER_CTX] Rejected token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
				"cause": err.Error(),
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
