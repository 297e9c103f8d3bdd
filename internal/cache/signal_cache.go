package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seongjae-dev/optionpulse/internal/database"
	"github.com/seongjae-dev/optionpulse/internal/models"
)

const latestSignalKey = "optionpulse:signals:latest"

// ErrCacheMiss is returned when no cached signal is present.
var ErrCacheMiss = errors.New("signal cache miss")

// SignalCache keeps the latest persisted signal in Redis so read-only
// polling does not hit Postgres on every request.
type SignalCache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSignalCache(rdb *database.RedisClient, ttl time.Duration) *SignalCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SignalCache{redis: rdb, ttl: ttl}
}

// SetLatest stores the signal snapshot with the configured TTL.
func (c *SignalCache) SetLatest(ctx context.Context, sig *models.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal for cache: %w", err)
	}
	if err := c.redis.Set(ctx, latestSignalKey, payload, c.ttl); err != nil {
		return fmt.Errorf("failed to cache latest signal: %w", err)
	}
	return nil
}

// GetLatest returns the cached signal or ErrCacheMiss.
func (c *SignalCache) GetLatest(ctx context.Context) (*models.Signal, error) {
	payload, err := c.redis.Get(ctx, latestSignalKey)
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached signal: %w", err)
	}

	var sig models.Signal
	if err := json.Unmarshal([]byte(payload), &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached signal: %w", err)
	}
	return &sig, nil
}
