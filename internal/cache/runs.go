// Package cache holds finished run results in Redis so download and status
// endpoints can serve them after the scan request has returned.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/deidscan/deidscan/internal/logger"
	"github.com/deidscan/deidscan/internal/pii"
)

// ErrNotFound is returned when a run is not in the cache (never stored, or
// expired).
var ErrNotFound = errors.New("run not found")

// CachedRun is the stored form of one finished run.
type CachedRun struct {
	RunID     string      `json:"run_id"`
	Result    *pii.Result `json:"result"`
	SourceFmt string      `json:"source_format,omitempty"`
	CachedAt  time.Time   `json:"cached_at"`
}

// Config contains run cache configuration.
type Config struct {
	RedisURL string
	TTL      time.Duration
}

// RunCache stores finished run results with a TTL.
type RunCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRunCache connects to Redis and verifies the connection.
func NewRunCache(cfg Config, log *logger.Logger) (*RunCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	log.Info("Run cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", ttl),
	)

	return &RunCache{
		client: client,
		ttl:    ttl,
		logger: log.WithComponent("run-cache"),
	}, nil
}

// Store caches a finished run under its ID.
func (rc *RunCache) Store(ctx context.Context, run *CachedRun) error {
	run.CachedAt = time.Now()

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run for caching: %w", err)
	}

	if err := rc.client.Set(ctx, runKey(run.RunID), data, rc.ttl).Err(); err != nil {
		rc.logger.Error("Failed to cache run", zap.String("run_id", run.RunID), zap.Error(err))
		return fmt.Errorf("failed to cache run: %w", err)
	}

	rc.logger.Debug("Run cached",
		zap.String("run_id", run.RunID),
		zap.Int("rows", run.Result.Summary.RowsProcessed),
	)
	return nil
}

// Get retrieves a cached run, or ErrNotFound if it is missing or expired.
func (rc *RunCache) Get(ctx context.Context, runID string) (*CachedRun, error) {
	data, err := rc.client.Get(ctx, runKey(runID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	var run CachedRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		// Drop the corrupted entry rather than serving it forever.
		rc.client.Del(ctx, runKey(runID))
		return nil, fmt.Errorf("failed to unmarshal cached run: %w", err)
	}
	return &run, nil
}

// Delete removes a run from the cache.
func (rc *RunCache) Delete(ctx context.Context, runID string) error {
	return rc.client.Del(ctx, runKey(runID)).Err()
}

// Ping tests the Redis connection.
func (rc *RunCache) Ping(ctx context.Context) error {
	_, err := rc.client.Ping(ctx).Result()
	return err
}

// Close closes the Redis connection.
func (rc *RunCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

func runKey(runID string) string {
	return "deidscan:run:" + runID
}

// maskRedisURL masks the password in a Redis URL for logging.
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
