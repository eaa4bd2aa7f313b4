package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ballotbox/ballotbox/internal/model"
)

const (
	resultsKeyPrefix = "results:live:"
	resultsGlobalKey = "all"

	// ResultsTTL bounds tally staleness. Live dashboards poll, so the
	// window is short.
	ResultsTTL = 5 * time.Second
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// resultsKey builds the cache key for a tally scope. An empty election
// ID addresses the global tally.
func resultsKey(electionID string) string {
	if electionID == "" {
		return resultsKeyPrefix + resultsGlobalKey
	}
	return resultsKeyPrefix + "election:" + electionID
}

// GetLiveResults retrieves a cached tally.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetLiveResults(ctx context.Context, electionID string) (*model.LiveResults, error) {
	data, err := c.client.Get(ctx, resultsKey(electionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var results model.LiveResults
	if err := json.Unmarshal(data, &results); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, ErrCacheMiss
	}

	return &results, nil
}

// SetLiveResults caches a tally for its staleness window.
func (c *Cache) SetLiveResults(ctx context.Context, electionID string, results *model.LiveResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	if err := c.client.SetEx(ctx, resultsKey(electionID), data, ResultsTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache results: %w", err)
	}

	return nil
}

// InvalidateLiveResults drops cached tallies touched by a new ballot:
// the election's own tally and the global one.
func (c *Cache) InvalidateLiveResults(ctx context.Context, electionID string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, resultsKey(electionID))
	pipe.Del(ctx, resultsKey(""))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate results cache: %w", err)
	}

	return nil
}
