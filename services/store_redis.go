package services

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps each document in a hash {version, document} under its key.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.Prefix + k
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.Client.HGet(ctx, s.key(key), "document").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", key, err)
	}
	return doc, nil
}

// Save uses WATCH/MULTI so a concurrent writer between the version check and the write aborts the tx.
func (s *RedisStore) Save(ctx context.Context, key string, version int64, doc []byte) error {
	k := s.key(key)
	err := s.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, "version").Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version-1 {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, "version", version, "document", doc)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return ErrVersionConflict
	default:
		return fmt.Errorf("redis save %s: %w", key, err)
	}
}
