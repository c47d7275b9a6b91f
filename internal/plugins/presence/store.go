// Package presence tracks which users were recently active. Each touch
// refreshes a score in a Redis sorted set; entries older than the presence
// window are ignored on read and removed by a periodic sweep.
package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key is the sorted set holding username -> last-seen unix time.
const Key = "presence:active"

// DefaultTTL is the presence window when none is configured.
const DefaultTTL = 5 * time.Minute

// Entry is one active user.
type Entry struct {
	Username string    `json:"username"`
	LastSeen time.Time `json:"last_seen"`
}

// Store reads and writes presence.
type Store interface {
	Touch(ctx context.Context, username string, at time.Time) error
	Active(ctx context.Context, now time.Time) ([]Entry, error)
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

type redisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a Redis-backed presence store.
func NewStore(rdb *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{redis: rdb, ttl: ttl}
}

// Touch marks username as seen at the given time.
func (s *redisStore) Touch(ctx context.Context, username string, at time.Time) error {
	if username == "" {
		return nil
	}
	err := s.redis.ZAdd(ctx, Key, redis.Z{Score: float64(at.Unix()), Member: username}).Err()
	if err != nil {
		return fmt.Errorf("touching presence: %w", err)
	}
	return nil
}

// Active lists users seen within the window, most recent first.
func (s *redisStore) Active(ctx context.Context, now time.Time) ([]Entry, error) {
	zs, err := s.redis.ZRevRangeByScoreWithScores(ctx, Key, &redis.ZRangeBy{
		Max: "+inf",
		Min: strconv.FormatInt(s.cutoff(now), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing presence: %w", err)
	}

	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		out = append(out, Entry{Username: name, LastSeen: time.Unix(int64(z.Score), 0).UTC()})
	}
	return out, nil
}

// Sweep removes entries older than the window and returns how many went.
func (s *redisStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.redis.ZRemRangeByScore(ctx, Key, "-inf", "("+strconv.FormatInt(s.cutoff(now), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("sweeping presence: %w", err)
	}
	return n, nil
}

func (s *redisStore) cutoff(now time.Time) int64 {
	return now.Add(-s.ttl).Unix()
}
