package inventory

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/redis"
)

type hashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key string, fieldValues map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) error
	AdjustHashInt(ctx context.Context, key, field string, delta int64) (int64, error)
	Del(ctx context.Context, keys ...string) error
	StockKey(productID int64) string
}

// RedisCache stores one hash per product under the stock key namespace.
type RedisCache struct {
	store hashStore
}

// NewRedisCache wraps the shared redis client.
func NewRedisCache(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisCache{store: client}, nil
}

func (c *RedisCache) GetRecord(ctx context.Context, productID int64) (Record, error) {
	values, err := c.store.HGetAll(ctx, c.store.StockKey(productID))
	if err != nil {
		return nil, unavailable(err, "read stock record")
	}
	return Record(values), nil
}

func (c *RedisCache) GetField(ctx context.Context, productID int64, field string) (string, bool, error) {
	value, ok, err := c.store.HGet(ctx, c.store.StockKey(productID), field)
	if err != nil {
		return "", false, unavailable(err, "read stock field")
	}
	return value, ok, nil
}

func (c *RedisCache) SetFields(ctx context.Context, productID int64, fields map[string]string) error {
	if err := c.store.HSet(ctx, c.store.StockKey(productID), fields); err != nil {
		return unavailable(err, "write stock fields")
	}
	return nil
}

func (c *RedisCache) AdjustInt(ctx context.Context, productID int64, field string, delta int64) (int64, error) {
	value, err := c.store.AdjustHashInt(ctx, c.store.StockKey(productID), field, delta)
	if errors.Is(err, redis.ErrBelowFloor) {
		return value, ErrNegativeBalance
	}
	if errors.Is(err, redis.ErrOverflow) {
		return 0, ErrOverflow
	}
	if err != nil {
		return 0, unavailable(err, "adjust stock field")
	}
	return value, nil
}

func (c *RedisCache) DeleteFields(ctx context.Context, productID int64, fields ...string) error {
	if err := c.store.HDel(ctx, c.store.StockKey(productID), fields...); err != nil {
		return unavailable(err, "delete stock fields")
	}
	return nil
}

func (c *RedisCache) DeleteRecord(ctx context.Context, productID int64) error {
	if err := c.store.Del(ctx, c.store.StockKey(productID)); err != nil {
		return unavailable(err, "delete stock record")
	}
	return nil
}

func unavailable(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
