package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The whole record is written by one script so that a reader never observes a
// half-populated hash under a freshly claimed key.
const createIfAbsentScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
for i = 1, #ARGV, 2 do
  redis.call("HSET", KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`

var createIfAbsentLua = redis.NewScript(createIfAbsentScript)

// Field is a single name/value pair in a stored record.
type Field struct {
	Name  string
	Value string
}

// Client is a cheaply copyable handle over a Redis connection pool. It is safe
// for concurrent use; go-redis multiplexes concurrent commands internally.
type Client struct {
	redis redis.UniversalClient
}

// NewClient wraps an existing Redis client.
func NewClient(rdb redis.UniversalClient) *Client {
	return &Client{redis: rdb}
}

// Connect parses a redis:// URL, dials it and verifies the server answers
// within two seconds. The store must be reachable before the first request.
func Connect(ctx context.Context, rawURL string) (*Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Client{redis: rdb}, nil
}

// Redis exposes the underlying client for lifecycle management (Close).
func (c *Client) Redis() redis.UniversalClient {
	return c.redis
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CreateIfAbsent writes fields under key only when key does not exist yet.
//
// fields[0] is the discriminating field. After the write it is read back and
// compared with the value this call attempted to store; any difference means
// another writer owns the key and ErrDuplicate is returned.
func (c *Client) CreateIfAbsent(ctx context.Context, key string, fields []Field) error {
	if len(fields) == 0 {
		return errors.New("store: create requires at least one field")
	}

	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Name, f.Value)
	}

	created, err := createIfAbsentLua.Run(ctx, c.redis, []string{key}, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if created == 0 {
		return ErrDuplicate
	}

	written, err := c.redis.HGet(ctx, key, fields[0].Name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired or deleted between write and verification; the
			// candidate is unusable either way.
			return ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if written != fields[0].Value {
		return ErrDuplicate
	}
	return nil
}

// ReadFields returns the requested fields of key. Absent fields are omitted
// from the result; a key with none of the requested fields is ErrNotFound.
func (c *Client) ReadFields(ctx context.Context, key string, names ...string) (map[string]string, error) {
	values, err := c.redis.HMGet(ctx, key, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make(map[string]string, len(names))
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[names[i]] = s
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// SetExpiry sets the time-to-live of key, rounded down to whole seconds.
func (c *Client) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	if ttl < time.Second {
		return fmt.Errorf("store: expiry %s below one second", ttl)
	}
	if err := c.redis.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes key and reports whether it existed. Deleting an absent key
// is not an error.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.redis.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Increment atomically adds one to the integer stored at key and returns the
// new value. A missing key counts from zero.
func (c *Client) Increment(ctx context.Context, key string) (int64, error) {
	n, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
