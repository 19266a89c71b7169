package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"blockademia-progress/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletTransfer is one token credit mirrored to the external wallet.
// IdempotencyKey is the ledger transaction id; the wallet dedups on it.
type WalletTransfer struct {
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

// WalletClient is the optional external wallet collaborator.
type WalletClient interface {
	HasWallet(ctx context.Context, userID string) bool
	SendTokens(ctx context.Context, t WalletTransfer) (bool, error)
}

// WalletOutbox records transfers the wallet has not acknowledged so a worker can retry them.
type WalletOutbox interface {
	Enqueue(ctx context.Context, t WalletTransfer, cause error) error
}

// HTTPWalletClient talks to the wallet service with the shared service token.
type HTTPWalletClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPWalletClient(baseURL, token string) *HTTPWalletClient {
	return &HTTPWalletClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPWalletClient) walletURL(userID string, extra ...string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid wallet service URL '%s': %w", c.BaseURL, err)
	}
	parts := append([]string{"api", "v1", "wallets", userID}, extra...)
	return base.JoinPath(parts...).String(), nil
}

// HasWallet reports whether the user has connected a wallet. Any failure reads as "no wallet".
func (c *HTTPWalletClient) HasWallet(ctx context.Context, userID string) bool {
	u, err := c.walletURL(userID)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// SendTokens credits the external wallet. 409 means the key was already applied, which counts as delivered.
func (c *HTTPWalletClient) SendTokens(ctx context.Context, t WalletTransfer) (bool, error) {
	u, err := c.walletURL(t.UserID, "credits")
	if err != nil {
		return false, err
	}
	body, err := json.Marshal(map[string]interface{}{
		"amount": t.Amount,
		"reason": t.Reason,
		"token":  "BLOCK",
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)
	req.Header.Set("Idempotency-Key", t.IdempotencyKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call wallet service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusConflict:
		return true, nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return false, fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(msg))
}

// GormWalletOutbox stores pending wallet transfers in wallet_sync_jobs.
type GormWalletOutbox struct {
	DB          *gorm.DB
	MaxAttempts int
	Backoff     time.Duration
}

func NewGormWalletOutbox(db *gorm.DB) *GormWalletOutbox {
	return &GormWalletOutbox{DB: db, MaxAttempts: 8, Backoff: 30 * time.Second}
}

// Enqueue is idempotent on the transfer's idempotency key.
func (o *GormWalletOutbox) Enqueue(ctx context.Context, t WalletTransfer, cause error) error {
	job := models.WalletSyncJob{
		ID:             uuid.NewString(),
		UserID:         t.UserID,
		IdempotencyKey: t.IdempotencyKey,
		Amount:         t.Amount,
		Reason:         t.Reason,
		Status:         models.WalletSyncPending,
		Attempts:       1,
		NextAttemptAt:  time.Now().Add(o.Backoff),
	}
	if cause != nil {
		job.LastError = cause.Error()
	}
	return o.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(&job).Error
}

// Due returns pending jobs whose next attempt time has passed, oldest first.
func (o *GormWalletOutbox) Due(ctx context.Context, limit int) ([]models.WalletSyncJob, error) {
	var jobs []models.WalletSyncJob
	err := o.DB.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.WalletSyncPending, time.Now()).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (o *GormWalletOutbox) MarkDelivered(ctx context.Context, job models.WalletSyncJob) error {
	now := time.Now()
	return o.DB.WithContext(ctx).Model(&models.WalletSyncJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":       models.WalletSyncDelivered,
			"delivered_at": &now,
			"attempts":     job.Attempts + 1,
		}).Error
}

// MarkFailed schedules the next attempt with exponential backoff, or abandons the job after MaxAttempts.
func (o *GormWalletOutbox) MarkFailed(ctx context.Context, job models.WalletSyncJob, cause error) error {
	attempts := job.Attempts + 1
	updates := map[string]interface{}{
		"attempts":        attempts,
		"next_attempt_at": time.Now().Add(o.Backoff * time.Duration(1<<min(attempts, 10))),
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	if attempts >= o.MaxAttempts {
		updates["status"] = models.WalletSyncAbandoned
	}
	return o.DB.WithContext(ctx).Model(&models.WalletSyncJob{}).Where("id = ?", job.ID).Updates(updates).Error
}

var errWalletRefused = errors.New("wallet refused transfer")
