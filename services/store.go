package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"blockademia-progress/models"
)

var (
	ErrProgressNotFound = errors.New("progress document not found")
	ErrVersionConflict  = errors.New("progress document was modified concurrently")
)

// ProgressStore is the key-value persistence collaborator. Save writes the whole document and
// must refuse (ErrVersionConflict) unless the stored version is exactly version-1.
type ProgressStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, version int64, doc []byte) error
}

func encodeProgress(rec *models.ProgressRecord) ([]byte, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode progress for %s: %w", rec.UserID, err)
	}
	return doc, nil
}

func decodeProgress(doc []byte) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode progress document: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}

// MemoryStore keeps documents in process memory. Used for local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	version int64
	doc     []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[key]
	if !ok {
		return nil, ErrProgressNotFound
	}
	return append([]byte(nil), d.doc...), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, version int64, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[key].version != version-1 {
		return ErrVersionConflict
	}
	s.docs[key] = memoryDoc{version: version, doc: append([]byte(nil), doc...)}
	return nil
}

// Version returns the stored version of key, 0 when absent.
func (s *MemoryStore) Version(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[key].version
}
