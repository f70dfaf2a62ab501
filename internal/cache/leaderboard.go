// Package cache holds Redis-backed read caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cvaas/quest-engine/internal/models"
)

const (
	leaderboardPrefix = "quest-engine:leaderboard:"
	generationKey     = "quest-engine:leaderboard-generation"
)

// LeaderboardCache stores computed leaderboards in Redis with a TTL.
// Redis errors are logged and treated as a miss.
//
// Keys carry a generation counter that Invalidate bumps. A board computed
// before an invalidation is written under the old generation and never read.
type LeaderboardCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewLeaderboardCache creates a cache; ttl must be positive
func NewLeaderboardCache(client redis.UniversalClient, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

// Get returns the cached leaderboard for the filters along with the
// generation it was looked up under. Pass that generation to Set.
func (c *LeaderboardCache) Get(ctx context.Context, timeframe models.Timeframe, category models.QuestCategory) ([]models.LeaderboardEntry, int64, bool) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("leaderboard generation read failed", "error", err)
		return nil, 0, false
	}

	raw, err := c.client.Get(ctx, leaderboardKey(gen, timeframe, category)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("leaderboard cache read failed", "error", err)
		}
		return nil, gen, false
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("leaderboard cache entry corrupt", "error", err)
		return nil, gen, false
	}
	return entries, gen, true
}

// Set stores a leaderboard for the filters under generation gen
func (c *LeaderboardCache) Set(ctx context.Context, gen int64, timeframe models.Timeframe, category models.QuestCategory, entries []models.LeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		slog.Warn("failed to encode leaderboard", "error", err)
		return
	}

	if err := c.client.Set(ctx, leaderboardKey(gen, timeframe, category), raw, c.ttl).Err(); err != nil {
		slog.Warn("leaderboard cache write failed", "error", err)
	}
}

// Invalidate bumps the generation and drops every cached leaderboard
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		slog.Warn("leaderboard generation bump failed", "error", err)
	}

	var cursor uint64
	var deleted int

	for {
		keys, next, err := c.client.Scan(ctx, cursor, leaderboardPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("leaderboard cache scan failed", "error", err)
			return
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("failed to delete leaderboard keys", "error", err)
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Debug("leaderboard cache invalidated", "keys_deleted", deleted)
}

func leaderboardKey(gen int64, timeframe models.Timeframe, category models.QuestCategory) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("%s%d:%s:%s", leaderboardPrefix, gen, timeframe, category)
}
