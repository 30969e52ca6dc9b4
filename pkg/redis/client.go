package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/store-manager/pkg/config"
	"github.com/angelmondragon/store-manager/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	defaultNamespace  = "sm"
	idempotencyPrefix = "idempotency"
	stockPrefix       = "stock"
)

// ErrBelowFloor is returned by AdjustHashInt when the adjustment would take the
// field below zero. The field is left untouched.
var ErrBelowFloor = errors.New("adjustment would drop value below zero")

// ErrOverflow is returned by AdjustHashInt when the sum does not fit in an
// int64. The field is left untouched.
var ErrOverflow = errors.New("adjustment would overflow int64")

// Nil re-exports the go-redis miss sentinel so callers need not import go-redis.
var Nil = redis.Nil

type cmdable interface {
	redis.Scripter
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	HGet(context.Context, string, string) *redis.StringCmd
	HGetAll(context.Context, string) *redis.MapStringStringCmd
	HSet(context.Context, string, ...any) *redis.IntCmd
	HDel(context.Context, string, ...string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the service.
type Client struct {
	store     cmdable
	raw       *redis.Client
	namespace string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore exposes minimal operations used by idempotency helpers.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Set(context.Context, string, any, time.Duration) error
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// adjustHashIntScript adds ARGV[2] to field ARGV[1] of hash KEYS[1] with
// HINCRBY, undoing it (ARGV[3] is the negated delta) when the result is
// negative. A missing field counts as zero and is removed again on refusal.
// Returns {applied(0|1), value} with value as a decimal string so it survives
// Lua's double conversion. HINCRBY overflow is returned as an error reply.
var adjustHashIntScript = redis.NewScript(`
local existed = redis.call('HEXISTS', KEYS[1], ARGV[1])
local next = redis.pcall('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
if type(next) == 'table' and next.err then
	return next
end
if next < 0 then
	if existed == 1 then
		redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[3])
	else
		redis.call('HDEL', KEYS[1], ARGV[1])
	end
	return {0, redis.call('HGET', KEYS[1], ARGV[1]) or '0'}
end
return {1, redis.call('HGET', KEYS[1], ARGV[1])}
`)

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if err := adjustHashIntScript.Load(ctx, raw).Err(); err != nil {
		return nil, fmt.Errorf("load stock adjust script: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{store: raw, raw: raw, namespace: cfg.KeyNamespace}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errors.New("redis client not initialized")
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// Set overwrites the value at key with a TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// HGetAll returns every field of the hash at key. A missing key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if c.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.store.HGetAll(ctx, key).Result()
}

// HGet returns one hash field; ok is false when the key or field is missing.
func (c *Client) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if c.store == nil {
		return "", false, errors.New("redis client not initialized")
	}
	value, err := c.store.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// HSet writes field/value pairs into the hash at key.
func (c *Client) HSet(ctx context.Context, key string, fieldValues map[string]string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	if len(fieldValues) == 0 {
		return nil
	}
	args := make([]any, 0, len(fieldValues)*2)
	for field, value := range fieldValues {
		args = append(args, field, value)
	}
	return c.store.HSet(ctx, key, args...).Err()
}

// HDel removes fields from the hash at key.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	if len(fields) == 0 {
		return nil
	}
	return c.store.HDel(ctx, key, fields...).Err()
}

// AdjustHashInt atomically adds delta to an integer hash field, refusing to go
// below zero. On refusal it returns the unchanged current value and ErrBelowFloor.
func (c *Client) AdjustHashInt(ctx context.Context, key, field string, delta int64) (int64, error) {
	if c.store == nil {
		return 0, errors.New("redis client not initialized")
	}
	if delta == math.MinInt64 {
		return 0, ErrOverflow
	}
	res, err := adjustHashIntScript.Run(ctx, c.store, []string{key}, field, delta, -delta).Slice()
	if err != nil {
		if strings.Contains(err.Error(), "would overflow") {
			return 0, ErrOverflow
		}
		return 0, err
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("unexpected adjust script reply %v", res)
	}
	applied, err := replyInt(res[0])
	if err != nil {
		return 0, err
	}
	value, err := replyInt(res[1])
	if err != nil {
		return 0, err
	}
	if applied == 0 {
		return value, ErrBelowFloor
	}
	return value, nil
}

func replyInt(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected adjust script value %T", v)
	}
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.buildKey(idempotencyPrefix, scope, id)
}

// StockKey returns the namespaced hash key holding a product's stock record.
func (c *Client) StockKey(productID int64) string {
	return c.buildKey(stockPrefix, fmt.Sprintf("%d", productID))
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	namespace := c.namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	clean := []string{namespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
