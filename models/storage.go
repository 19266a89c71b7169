// models/storage.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type WalletSyncStatus string

const (
	WalletSyncPending   WalletSyncStatus = "pending"
	WalletSyncDelivered WalletSyncStatus = "delivered"
	WalletSyncAbandoned WalletSyncStatus = "abandoned"
)

// WalletSyncJob is an outbox row for a token credit the external wallet has not acknowledged yet.
// The local balance was already credited; retries only re-send to the wallet.
// Table name: wallet_sync_jobs
type WalletSyncJob struct {
	ID             string           `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID         string           `gorm:"not null;index" json:"user_id"`
	IdempotencyKey string           `gorm:"type:varchar(64);not null;uniqueIndex" json:"idempotency_key"`
	Amount         int64            `gorm:"not null" json:"amount"`
	Reason         string           `gorm:"type:varchar(255)" json:"reason"`
	Status         WalletSyncStatus `gorm:"type:varchar(16);not null;index;default:'pending'" json:"status"`
	Attempts       int              `gorm:"not null;default:0" json:"attempts"`
	LastError      string           `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt  time.Time        `gorm:"not null;index" json:"next_attempt_at"`
	DeliveredAt    *time.Time       `json:"delivered_at,omitempty"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProgressDocument stores one serialized ProgressRecord per key.
// Table name: progress_documents
type ProgressDocument struct {
	Key       string    `gorm:"column:doc_key;primaryKey;type:varchar(255)" json:"key"`
	Version   int64     `gorm:"not null" json:"version"`
	Document  string    `gorm:"type:jsonb;not null" json:"document"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
