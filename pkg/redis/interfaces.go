package redis

import (
	"context"
	"time"
)

// Client is the slice of Redis the agents use: hashes for status mirrors
// and device metadata, sorted sets for the per-device movement history.
// Mocked in agent tests.
type Client interface {
	// HSet sets one field in a hash
	HSet(ctx context.Context, key string, field string, value interface{}) error

	// ZAdd adds a member to a sorted set under the given score
	ZAdd(ctx context.Context, key string, score float64, member interface{}) error

	// ZRemRangeByScore removes sorted set members with scores in [min, max]
	ZRemRangeByScore(ctx context.Context, key string, min, max string) error

	// ZCard returns the size of a sorted set
	ZCard(ctx context.Context, key string) (int64, error)

	// Del removes keys
	Del(ctx context.Context, keys ...string) error

	// Expire sets a TTL on a key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies the connection
	Ping(ctx context.Context) error

	Close() error
}
