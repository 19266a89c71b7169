package services

import (
	"context"
	"log"
	"sync"

	"blockademia-progress/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notifier is the fire-and-forget toast collaborator.
type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notification)
}

// printer formats amounts with thousands separators ("+1,000 XP").
var printer = message.NewPrinter(language.English)

// LogNotifier writes every notification to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID string, n models.Notification) {
	log.Printf("🔔 [%s] %s → %s: %s", n.Kind, userID, n.Title, n.Message)
}

// MultiNotifier fans a notification out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, userID string, n models.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, userID, n)
		}
	}
}

// NotificationHub delivers notifications to live subscribers (SSE streams) of each user.
// Slow subscribers drop notifications instead of blocking the engine.
type NotificationHub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.Notification]struct{}
	buffer int
}

func NewNotificationHub(buffer int) *NotificationHub {
	if buffer <= 0 {
		buffer = 16
	}
	return &NotificationHub{
		subs:   make(map[string]map[chan models.Notification]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a channel for userID; call the returned func to unsubscribe.
func (h *NotificationHub) Subscribe(userID string) (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, h.buffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan models.Notification]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[userID][ch]; !ok {
				return // already closed by Close
			}
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
		})
	}
}

func (h *NotificationHub) Notify(_ context.Context, userID string, n models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- n:
		default:
			log.Printf("⚠️ notification dropped for slow subscriber %s (%s)", userID, n.Kind)
		}
	}
}

// Close ends every live subscription, which finishes their SSE streams.
func (h *NotificationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, chans := range h.subs {
		for ch := range chans {
			close(ch)
		}
		delete(h.subs, userID)
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (h *NotificationHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
