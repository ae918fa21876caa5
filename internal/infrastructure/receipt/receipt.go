// Package receipt issues merchant receipt tokens attached to provider
// orders. Tokens only need to be unique per order-creation call.
package receipt

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	prefix = "rcpt_"

	// MaxLen is the provider's limit on receipt length.
	MaxLen = 40

	DefaultCounterKey = "planpay:receipt:seq"
)

// Random issues "rcpt_" followed by the 32 hex digits of a random UUID.
type Random struct{}

func (Random) Next(context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return prefix + strings.ReplaceAll(id.String(), "-", ""), nil
}

// RedisCounter issues receipts from a monotonically increasing Redis
// counter shared by every server using the same key.
type RedisCounter struct {
	client *redis.Client
	key    string
}

func NewRedisCounter(redisURL, key string) (*RedisCounter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	if key == "" {
		key = DefaultCounterKey
	}
	return &RedisCounter{client: client, key: key}, nil
}

func (c *RedisCounter) Next(ctx context.Context) (string, error) {
	n, err := c.client.Incr(ctx, c.key).Result()
	if err != nil {
		return "", err
	}
	return prefix + strconv.FormatInt(n, 10), nil
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}
