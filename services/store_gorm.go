package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blockademia-progress/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists progress documents in the progress_documents table (jsonb on Postgres).
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.ProgressDocument
	err := s.DB.WithContext(ctx).Where("doc_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return []byte(row.Document), nil
}

// Save inserts version 1 and otherwise updates only if the row is still at version-1.
func (s *GormStore) Save(ctx context.Context, key string, version int64, doc []byte) error {
	db := s.DB.WithContext(ctx)

	if version <= 1 {
		row := models.ProgressDocument{Key: key, Version: version, Document: string(doc)}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	res := db.Model(&models.ProgressDocument{}).
		Where("doc_key = ? AND version = ?", key, version-1).
		Updates(map[string]interface{}{
			"version":    version,
			"document":   string(doc),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
