// Package redis implements pet persistence and distributed per-user locks
// on Redis, for deployments that run several bot replicas or a separate
// worker process against the same data.
//
// Key components:
//   - Client: connection handling and JSON hash helpers
//   - PetRepository: records stored as fields of one hash
//   - Locker: SET NX based per-user mutex
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// URL is an optional redis:// URL. When set it overrides Host, Port,
	// Password and DB.
	URL string

	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration

	// KeyPrefix namespaces every key written by the bot.
	KeyPrefix string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "pepegotchi:",
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Options converts the config into go-redis options.
func (c Config) Options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		if c.PoolSize > 0 {
			opts.PoolSize = c.PoolSize
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnection is returned when Redis connection fails.
	ErrConnection = errors.New("redis: connection failed")

	// ErrMiss is returned when the requested key or field does not exist.
	ErrMiss = errors.New("redis: key not found")

	// ErrSerialization is returned when serialization/deserialization fails.
	ErrSerialization = errors.New("redis: serialization failed")

	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("redis: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// KeyUsers is the hash holding every pet record, field = user id.
	KeyUsers = "users"

	// PrefixLock is the prefix for distributed lock keys.
	PrefixLock = "lock:"

	// TTLDistributedLock is the default lock TTL.
	TTLDistributedLock = 30 * time.Second
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client wraps a go-redis client with the bot's key namespace.
type Client struct {
	client *redis.Client
	config Config
}

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return NewClientFrom(client, cfg), nil
}

// NewClientFrom wraps an existing go-redis client.
func NewClientFrom(client *redis.Client, cfg Config) *Client {
	return &Client{client: client, config: cfg}
}

// Redis returns the underlying client.
func (c *Client) Redis() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Key returns key under the configured prefix.
func (c *Client) Key(key string) string {
	return c.config.KeyPrefix + key
}

// LockKey returns the lock key for a resource.
func (c *Client) LockKey(resource string) string {
	return c.Key(PrefixLock + resource)
}

// ══════════════════════════════════════════════════════════════════════════════
// HASH OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// HSetJSON stores value as JSON in a hash field.
func (c *Client) HSetJSON(ctx context.Context, key, field string, value interface{}) error {
	if key == "" || field == "" {
		return ErrKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return c.client.HSet(ctx, c.Key(key), field, data).Err()
}

// HGetJSON decodes a hash field into dest.
func (c *Client) HGetJSON(ctx context.Context, key, field string, dest interface{}) error {
	if key == "" || field == "" {
		return ErrKeyEmpty
	}

	data, err := c.client.HGet(ctx, c.Key(key), field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return nil
}

// HKeys lists the fields of a hash.
func (c *Client) HKeys(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	return c.client.HKeys(ctx, c.Key(key)).Result()
}
