package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"blockademia-progress/models"
	"blockademia-progress/services"
)

// WalletJobQueue is the outbox side the retry worker needs (services.GormWalletOutbox).
type WalletJobQueue interface {
	Due(ctx context.Context, limit int) ([]models.WalletSyncJob, error)
	MarkDelivered(ctx context.Context, job models.WalletSyncJob) error
	MarkFailed(ctx context.Context, job models.WalletSyncJob, cause error) error
}

var errTransferRefused = errors.New("wallet refused transfer")

// WalletRetryWorker re-sends wallet transfers that failed during the optimistic sync.
// It reuses each job's idempotency key and never touches the local balance.
type WalletRetryWorker struct {
	queue      WalletJobQueue
	wallet     services.WalletClient
	batchSize  int
	perRequest time.Duration
}

func NewWalletRetryWorker(queue WalletJobQueue, wallet services.WalletClient, batchSize int) *WalletRetryWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &WalletRetryWorker{
		queue:      queue,
		wallet:     wallet,
		batchSize:  batchSize,
		perRequest: 10 * time.Second,
	}
}

// RunOnce processes one batch of due jobs and reports how many were delivered and failed.
func (w *WalletRetryWorker) RunOnce(ctx context.Context) (delivered, failed int, err error) {
	jobs, err := w.queue.Due(ctx, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load due wallet jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, 0, nil
	}
	log.Printf("[WALLET_RETRY] 📡 Retrying %d wallet transfer(s)…", len(jobs))

	for _, job := range jobs {
		if ctx.Err() != nil {
			return delivered, failed, ctx.Err()
		}

		sendErr := w.send(ctx, job)
		if sendErr == nil {
			if err := w.queue.MarkDelivered(ctx, job); err != nil {
				log.Printf("[WALLET_RETRY] ⚠️ Delivered %s but failed to mark it: %v", job.IdempotencyKey, err)
			}
			services.WalletSyncs.WithLabelValues("retry_delivered").Inc()
			delivered++
			continue
		}

		failed++
		services.WalletSyncs.WithLabelValues("retry_failed").Inc()
		log.Printf("[WALLET_RETRY] ❌ Transfer %s (+%d BLOCK → %s) failed again: %v",
			job.IdempotencyKey, job.Amount, job.UserID, sendErr)
		if err := w.queue.MarkFailed(ctx, job, sendErr); err != nil {
			log.Printf("[WALLET_RETRY] ⚠️ Failed to reschedule %s: %v", job.IdempotencyKey, err)
		}
	}

	log.Printf("[WALLET_RETRY] ✅ %d delivered, %d failed", delivered, failed)
	return delivered, failed, nil
}

func (w *WalletRetryWorker) send(ctx context.Context, job models.WalletSyncJob) error {
	reqCtx, cancel := context.WithTimeout(ctx, w.perRequest)
	defer cancel()

	ok, err := w.wallet.SendTokens(reqCtx, services.WalletTransfer{
		UserID:         job.UserID,
		Amount:         job.Amount,
		Reason:         job.Reason,
		IdempotencyKey: job.IdempotencyKey,
	})
	if err != nil {
		return err
	}
	if !ok {
		return errTransferRefused
	}
	return nil
}
