// handlers/admin_routes.go
package handlers

import (
	"blockademia-progress/middleware"
	"blockademia-progress/services"

	"github.com/gofiber/fiber/v2"
)

type adminGrantRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type adminStreakRequest struct {
	UserID     string `json:"user_id"`
	StreakDays *int   `json:"streak_days"`
}

// SetupAdminRoutes registers service-to-service routes under /s/admin.
func SetupAdminRoutes(app *fiber.App, progressionService *services.ProgressionService, serviceToken string) {
	admin := app.Group("/s/admin", middleware.GatewayAuthMiddleware(serviceToken))

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req adminGrantRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return badRequest(c, "user_id and amount are required")
		}
		if req.Reason == "" {
			req.Reason = "admin grant"
		}
		rec, err := progressionService.GrantXP(c.UserContext(), req.UserID, req.Amount, req.Reason)
		if err != nil {
			return fail(c, "failed to grant XP", err)
		}
		return c.JSON(newProgressView(rec))
	})

	admin.Post("/tokens/grant", func(c *fiber.Ctx) error {
		var req adminGrantRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return badRequest(c, "user_id and amount are required")
		}
		if req.Reason == "" {
			req.Reason = "admin grant"
		}
		rec, err := progressionService.GrantTokens(c.UserContext(), req.UserID, req.Amount, req.Reason)
		if err != nil {
			return fail(c, "failed to grant tokens", err)
		}
		return c.JSON(newProgressView(rec))
	})

	admin.Post("/streak", func(c *fiber.Ctx) error {
		var req adminStreakRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.StreakDays == nil {
			return badRequest(c, "user_id and streak_days are required")
		}
		rec, err := progressionService.SetStreakDays(c.UserContext(), req.UserID, *req.StreakDays)
		if err != nil {
			return fail(c, "failed to set streak", err)
		}
		return c.JSON(newProgressView(rec))
	})
}
