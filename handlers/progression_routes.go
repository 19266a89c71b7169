// handlers/progression_routes.go
package handlers

import (
	"errors"
	"log"

	"blockademia-progress/middleware"
	"blockademia-progress/models"
	"blockademia-progress/services"

	"github.com/gofiber/fiber/v2"
)

type courseProgressRequest struct {
	Progress *int `json:"progress"`
}

type completeCourseRequest struct {
	CourseName string `json:"course_name"`
}

type completeLessonRequest struct {
	Score *int `json:"score"`
}

type projectBonusRequest struct {
	ProjectType  string `json:"project_type"`
	Difficulty   string `json:"difficulty"`
	ScorePercent *int   `json:"score_percent"`
}

// progressView is the record plus the derived course states the dashboard renders.
type progressView struct {
	*models.ProgressRecord
	CourseStates map[string]models.CourseState `json:"courseStates"`
}

func newProgressView(rec *models.ProgressRecord) progressView {
	states := make(map[string]models.CourseState, len(rec.CourseProgress))
	for id, entry := range rec.CourseProgress {
		states[id] = entry.State()
	}
	return progressView{ProgressRecord: rec, CourseStates: states}
}

// errorStatus maps engine errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrUnknownItem):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrVersionConflict):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidDifficulty),
		errors.Is(err, services.ErrInvalidCourse),
		errors.Is(err, services.ErrInvalidUser):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, msg string, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, hub *services.NotificationHub, validator middleware.TokenValidator) {
	// EventSource cannot send headers: the stream authenticates from the query string and
	// must be registered before the /user group.
	if hub != nil {
		app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(validator), hub.StreamSSE)
	}

	app.Get("/marketplace/items", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"items": progressionService.Marketplace})
	})

	requireUser := middleware.UserContextMiddleware(validator)
	user := app.Group("/user", requireUser)

	user.Post("/session", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rec, err := progressionService.StartSession(c.UserContext(), userID)
		if err != nil {
			return fail(c, "failed to start session", err)
		}
		return c.JSON(newProgressView(rec))
	})

	user.Delete("/session", func(c *fiber.Ctx) error {
		progressionService.EndSession(c.Locals("user_id").(string))
		return c.SendStatus(fiber.StatusNoContent)
	})

	user.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rec, err := progressionService.GetProgress(c.UserContext(), userID)
		if err != nil {
			return fail(c, "failed to load progress", err)
		}
		return c.JSON(newProgressView(rec))
	})

	user.Post("/courses/:courseId/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req courseProgressRequest
		if err := c.BodyParser(&req); err != nil || req.Progress == nil {
			return badRequest(c, "progress (0-100) is required")
		}
		rec, err := progressionService.UpdateCourseProgress(c.UserContext(), userID, c.Params("courseId"), *req.Progress)
		if err != nil {
			return fail(c, "failed to update course progress", err)
		}
		return c.JSON(newProgressView(rec))
	})

	user.Post("/courses/:courseId/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req completeCourseRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		rec, err := progressionService.CompleteCourse(c.UserContext(), userID, c.Params("courseId"), req.CourseName)
		if err != nil {
			return fail(c, "failed to complete course", err)
		}
		return c.JSON(newProgressView(rec))
	})

	user.Post("/lessons/:lessonId/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req completeLessonRequest
		if err := c.BodyParser(&req); err != nil || req.Score == nil {
			return badRequest(c, "score (0-100) is required")
		}
		rec, err := progressionService.CompleteLesson(c.UserContext(), userID, c.Params("lessonId"), *req.Score)
		if err != nil {
			return fail(c, "failed to complete lesson", err)
		}
		return c.JSON(newProgressView(rec))
	})

	user.Post("/projects/bonus", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req projectBonusRequest
		if err := c.BodyParser(&req); err != nil || req.ScorePercent == nil || req.ProjectType == "" {
			return badRequest(c, "project_type, difficulty and score_percent are required")
		}
		difficulty, err := services.ParseDifficulty(req.Difficulty)
		if err != nil {
			return fail(c, "invalid difficulty", err)
		}
		rec, err := progressionService.AwardProjectBonus(c.UserContext(), userID, req.ProjectType, difficulty, *req.ScorePercent)
		if err != nil {
			return fail(c, "failed to award project bonus", err)
		}
		return c.JSON(newProgressView(rec))
	})

	user.Get("/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		statuses, err := progressionService.Achievements(c.UserContext(), userID)
		if err != nil {
			return fail(c, "failed to load achievements", err)
		}
		unlocked := 0
		for _, s := range statuses {
			if s.Unlocked {
				unlocked++
			}
		}
		return c.JSON(fiber.Map{
			"achievements": statuses,
			"unlocked":     unlocked,
			"total":        len(statuses),
		})
	})

	user.Get("/tokens/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		txs, err := progressionService.Transactions(c.UserContext(), userID)
		if err != nil {
			return fail(c, "failed to load transactions", err)
		}
		return c.JSON(fiber.Map{"transactions": txs})
	})

	app.Post("/marketplace/items/:itemId/purchase", requireUser, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rec, err := progressionService.Purchase(c.UserContext(), userID, c.Params("itemId"))
		if err != nil {
			return fail(c, "purchase failed", err)
		}
		return c.JSON(newProgressView(rec))
	})
}
