package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHashStore struct {
	hashes map[string]map[string]string
	err    error
}

func newFakeHashStore() *fakeHashStore {
	return &fakeHashStore{hashes: make(map[string]map[string]string)}
}

func (f *fakeHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeHashStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.hashes[key][field]
	return v, ok, nil
}

func (f *fakeHashStore) HSet(_ context.Context, key string, values map[string]string) error {
	if f.err != nil {
		return f.err
	}
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	for k, v := range values {
		f.hashes[key][k] = v
	}
	return nil
}

func (f *fakeHashStore) AdjustHashInt(_ context.Context, key, field string, delta int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var current int64
	if raw, ok := f.hashes[key][field]; ok {
		fmt.Sscan(raw, &current)
	}
	if current+delta < 0 {
		return current, redis.ErrBelowFloor
	}
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	f.hashes[key][field] = fmt.Sprint(current + delta)
	return current + delta, nil
}

func (f *fakeHashStore) Del(_ context.Context, keys ...string) error {
	if f.err != nil {
		return f.err
	}
	for _, key := range keys {
		delete(f.hashes, key)
	}
	return nil
}

func (f *fakeHashStore) HDel(_ context.Context, key string, fields ...string) error {
	if f.err != nil {
		return f.err
	}
	for _, field := range fields {
		delete(f.hashes[key], field)
	}
	return nil
}

func (f *fakeHashStore) StockKey(productID int64) string {
	return fmt.Sprintf("sm:stock:%d", productID)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFakeHashStore()
	cache := &RedisCache{store: store}

	value, err := cache.AdjustInt(ctx, 1, FieldQuantity, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), value)

	value, err = cache.AdjustInt(ctx, 1, FieldQuantity, -5)
	assert.ErrorIs(t, err, ErrNegativeBalance)
	assert.Equal(t, int64(4), value)

	require.NoError(t, cache.SetFields(ctx, 1, map[string]string{FieldName: "Widget"}))
	record, err := cache.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Record{FieldName: "Widget", FieldQuantity: "4"}, record)
	assert.Contains(t, store.hashes, "sm:stock:1")

	name, ok, err := cache.GetField(ctx, 1, FieldName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Widget", name)

	require.NoError(t, cache.DeleteRecord(ctx, 1))
	record, err = cache.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, record)
}

func TestRedisCacheWrapsTransportErrors(t *testing.T) {
	ctx := context.Background()
	store := newFakeHashStore()
	store.err = errors.New("dial tcp: connection refused")
	cache := &RedisCache{store: store}

	_, err := cache.GetRecord(ctx, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.ErrorIs(t, err, store.err)

	_, err = cache.AdjustInt(ctx, 1, FieldQuantity, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.NotErrorIs(t, err, ErrNegativeBalance)

	_, _, err = cache.GetField(ctx, 1, FieldQuantity)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsCode(cache.SetFields(ctx, 1, map[string]string{FieldName: "x"}), pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsCode(cache.DeleteRecord(ctx, 1), pkgerrors.CodeDependency))
}

func TestNewRedisCacheRequiresClient(t *testing.T) {
	_, err := NewRedisCache(nil)
	require.Error(t, err)
}

func TestRedisCacheDeleteFieldsKeepsQuantity(t *testing.T) {
	ctx := context.Background()
	store := newFakeHashStore()
	cache := &RedisCache{store: store}

	require.NoError(t, cache.SetFields(ctx, 2, map[string]string{FieldName: "Lamp", FieldSKU: "L-2", FieldQuantity: "6"}))
	require.NoError(t, cache.DeleteFields(ctx, 2, detailFields...))

	record, err := cache.GetRecord(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, Record{FieldQuantity: "6"}, record)
}

func TestRedisCacheMapsOverflow(t *testing.T) {
	cache := &RedisCache{store: overflowStore{newFakeHashStore()}}
	_, err := cache.AdjustInt(context.Background(), 1, FieldQuantity, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

type overflowStore struct {
	*fakeHashStore
}

func (overflowStore) AdjustHashInt(context.Context, string, string, int64) (int64, error) {
	return 0, redis.ErrOverflow
}
