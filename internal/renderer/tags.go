package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// TagKey is the run tag holding the selected renderer name
const TagKey = "customRenderer"

// DefaultTagTTL bounds how long a cached tag may lag behind the tracking service
const DefaultTagTTL = 5 * time.Minute

// TagStore reads and writes run tags
type TagStore interface {
	GetRunTag(ctx context.Context, runID, key string) (string, error)
	SetRunTag(ctx context.Context, runID, key, value string) error
}

// CachedTagStore is a read-through, write-through Redis cache in front of a
// TagStore. Redis failures fall back to the backing store.
type CachedTagStore struct {
	client  *redis.Client
	backing TagStore
	ttl     time.Duration
	prefix  string
	logger  *slog.Logger
}

// NewCachedTagStore wraps backing with a Redis cache
func NewCachedTagStore(client *redis.Client, backing TagStore, ttl time.Duration, logger *slog.Logger) *CachedTagStore {
	if ttl <= 0 {
		ttl = DefaultTagTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedTagStore{
		client:  client,
		backing: backing,
		ttl:     ttl,
		prefix:  "labeling:runtag:",
		logger:  logger,
	}
}

func (s *CachedTagStore) key(runID, key string) string {
	return s.prefix + runID + ":" + key
}

func (s *CachedTagStore) GetRunTag(ctx context.Context, runID, key string) (string, error) {
	cached, err := s.client.Get(ctx, s.key(runID, key)).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("renderer tag cache read failed", "run_id", runID, "error", err)
	}

	value, err := s.backing.GetRunTag(ctx, runID, key)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(runID, key), value, s.ttl).Err(); err != nil {
		s.logger.Warn("renderer tag cache write failed", "run_id", runID, "error", err)
	}
	return value, nil
}

func (s *CachedTagStore) SetRunTag(ctx context.Context, runID, key, value string) error {
	if err := s.backing.SetRunTag(ctx, runID, key, value); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(runID, key), value, s.ttl).Err(); err != nil {
		// drop the stale entry so the next read goes to the backing store
		s.client.Del(ctx, s.key(runID, key))
		s.logger.Warn("renderer tag cache write failed", "run_id", runID, "error", fmt.Errorf("failed to cache tag: %w", err))
	}
	return nil
}
