package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// sseKeepAlive is how often a comment line is written to keep proxies from closing idle streams.
var sseKeepAlive = 15 * time.Second

// StreamSSE streams the authenticated user's notifications as server-sent events.
func (h *NotificationHub) StreamSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	notifications, unsubscribe := h.Subscribe(userID)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case n, ok := <-notifications:
				if !ok {
					return
				}
				payload, err := json.Marshal(n)
				if err != nil {
					log.Printf("SSE encode error for user %s: %v", userID, err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Kind, payload)
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}

			case <-ticker.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}
