package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps one record per (caller, route, Idempotency-Key). A record
// starts life as an in-flight marker and is replaced by the final response.
type IdempotencyStore interface {
	IdempotencyKey(scope, id string) string
	Reserve(ctx context.Context, key string, marker []byte, ttl time.Duration) (bool, error)
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, record []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return Key("idem", scope, id)
}

// Reserve claims key with SET NX; false means another request holds it.
func (c *Client) Reserve(ctx context.Context, key string, marker []byte, ttl time.Duration) (bool, error) {
	cmd, err := c.commander()
	if err != nil {
		return false, err
	}
	return cmd.SetNX(ctx, key, marker, ttl).Result()
}

// Load returns the stored record; found is false when the key expired or was released.
func (c *Client) Load(ctx context.Context, key string) ([]byte, bool, error) {
	cmd, err := c.commander()
	if err != nil {
		return nil, false, err
	}
	raw, err := cmd.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *Client) Save(ctx context.Context, key string, record []byte, ttl time.Duration) error {
	cmd, err := c.commander()
	if err != nil {
		return err
	}
	return cmd.Set(ctx, key, record, ttl).Err()
}

func (c *Client) Release(ctx context.Context, key string) error {
	cmd, err := c.commander()
	if err != nil {
		return err
	}
	return cmd.Del(ctx, key).Err()
}
