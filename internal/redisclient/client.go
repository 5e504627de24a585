package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func rateKey(from, to string) string {
	return fmt.Sprintf("fxrate:%s:%s", from, to)
}

// GetRate retrieves a cached exchange rate for a currency pair
func (c *Client) GetRate(ctx context.Context, from, to string) (decimal.Decimal, bool, error) {
	val, err := c.rdb.Get(ctx, rateKey(from, to)).Result()
	if err == redis.Nil {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, err
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("corrupt cached rate %q: %w", val, err)
	}
	return rate, true, nil
}

// SetRate caches an exchange rate for a currency pair with TTL
func (c *Client) SetRate(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) error {
	return c.rdb.Set(ctx, rateKey(from, to), rate.String(), ttl).Err()
}

// SetIdempotencyKey maps an idempotency key to a batch ID with TTL. Returns
// false if the key was already present.
func (c *Client) SetIdempotencyKey(ctx context.Context, key, batchID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), batchID, ttl).Result()
}

// GetIdempotencyKey returns the batch ID previously stored for a key
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
