package repository

import (
	"context"
	"errors"
	"fmt"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisArtifactStore keeps the artifact under one key; SET replaces it in a
// single command.
type RedisArtifactStore struct {
	client *redis.Client
	key    string
}

func NewRedisArtifactStore(client *redis.Client, key string) repository.ArtifactStore {
	return &RedisArtifactStore{client: client, key: key}
}

func (s *RedisArtifactStore) Put(ctx context.Context, blob []byte) error {
	if err := s.client.Set(ctx, s.key, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisArtifactStore) Get(ctx context.Context) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis key %s: %w", s.key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return blob, nil
}

// Close is a no-op; the client is shared and closed by its owner.
func (s *RedisArtifactStore) Close() error { return nil }
