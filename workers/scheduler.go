// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SessionEvictor drops idle cached progress records (services.ProgressionService).
type SessionEvictor interface {
	EvictIdleSessions(maxIdle time.Duration) int
}

type SchedulerConfig struct {
	WalletRetry         *WalletRetryWorker
	WalletRetryInterval time.Duration

	Sessions           SessionEvictor
	SessionIdleTimeout time.Duration
}

// StartScheduler registers the background jobs and starts them. Call Shutdown on the result.
func StartScheduler(ctx context.Context, cfg SchedulerConfig) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	if cfg.WalletRetry != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.WalletRetryInterval),
			gocron.NewTask(func() {
				if _, _, err := cfg.WalletRetry.RunOnce(ctx); err != nil {
					log.Printf("[Scheduler] wallet retry error: %v", err)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName("wallet-outbox-retry"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule wallet retry: %w", err)
		}
	}

	if cfg.Sessions != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(1*time.Minute),
			gocron.NewTask(func() {
				if n := cfg.Sessions.EvictIdleSessions(cfg.SessionIdleTimeout); n > 0 {
					log.Printf("🧹 Evicted %d idle session(s)", n)
				}
			}),
			gocron.WithName("session-eviction"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule session eviction: %w", err)
		}
	}

	sched.Start()
	return sched, nil
}
