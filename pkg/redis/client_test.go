package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestAdjustHashIntAppliesAndRefuses(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.StockKey(7)

	got, err := client.AdjustHashInt(ctx, key, "quantity", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}

	got, err = client.AdjustHashInt(ctx, key, "quantity", -6)
	if !errors.Is(err, ErrBelowFloor) {
		t.Fatalf("expected ErrBelowFloor, got %v", err)
	}
	if got != 5 {
		t.Fatalf("refused adjustment should report current value 5, got %d", got)
	}

	value, ok, err := client.HGet(ctx, key, "quantity")
	if err != nil || !ok || value != "5" {
		t.Fatalf("expected quantity to stay 5, got %q ok=%v err=%v", value, ok, err)
	}

	if mock.evalCalls != 1 {
		t.Fatalf("expected a single EVAL fallback after NOSCRIPT, got %d", mock.evalCalls)
	}
}

func TestAdjustHashIntRefusalLeavesMissingFieldAbsent(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.StockKey(8)

	got, err := client.AdjustHashInt(ctx, key, "quantity", -1)
	if !errors.Is(err, ErrBelowFloor) || got != 0 {
		t.Fatalf("expected refusal at 0, got %d err=%v", got, err)
	}
	if _, ok, _ := client.HGet(ctx, key, "quantity"); ok {
		t.Fatal("refused adjustment must not create the field")
	}
}

func TestAdjustHashIntOverflow(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.StockKey(9)

	if _, err := client.AdjustHashInt(ctx, key, "quantity", math.MaxInt64-1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := client.AdjustHashInt(ctx, key, "quantity", 2); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := client.AdjustHashInt(ctx, key, "quantity", math.MinInt64); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for MinInt64 delta, got %v", err)
	}

	got, err := client.AdjustHashInt(ctx, key, "quantity", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != math.MaxInt64 {
		t.Fatalf("expected exact MaxInt64, got %d", got)
	}
}

func TestHDelRemovesFields(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.StockKey(10)

	if err := client.HSet(ctx, key, map[string]string{"name": "Widget", "quantity": "3"}); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if err := client.HDel(ctx, key, "name", "sku"); err != nil {
		t.Fatalf("hdel: %v", err)
	}
	values, err := client.HGetAll(ctx, key)
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if len(values) != 1 || values["quantity"] != "3" {
		t.Fatalf("expected only quantity to remain, got %v", values)
	}
}

func TestAdjustHashIntConcurrentNeverNegative(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.StockKey(1)

	if _, err := client.AdjustHashInt(ctx, key, "quantity", 10); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.AdjustHashInt(ctx, key, "quantity", -1); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 10 {
		t.Fatalf("expected exactly 10 successful decrements, got %d", applied)
	}
	value, _, _ := client.HGet(ctx, key, "quantity")
	if value != "0" {
		t.Fatalf("expected quantity 0, got %q", value)
	}
}

func TestHashFieldHelpers(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.StockKey(3)

	if _, ok, err := client.HGet(ctx, key, "name"); err != nil || ok {
		t.Fatalf("missing field should report ok=false, got ok=%v err=%v", ok, err)
	}

	if err := client.HSet(ctx, key, map[string]string{"name": "Widget", "sku": "W-1"}); err != nil {
		t.Fatalf("hset: %v", err)
	}
	record, err := client.HGetAll(ctx, key)
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if record["name"] != "Widget" || record["sku"] != "W-1" {
		t.Fatalf("unexpected record %v", record)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	record, err = client.HGetAll(ctx, key)
	if err != nil {
		t.Fatalf("hgetall after del: %v", err)
	}
	if len(record) != 0 {
		t.Fatalf("expected empty record after delete, got %v", record)
	}
}

func TestIdempotencyValues(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "v", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "other", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX should lose, ok=%v err=%v", ok, err)
	}
	if got, err := client.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("expected stored value, got %q err=%v", got, err)
	}
	if err := client.Set(ctx, "k", "replaced", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := client.Get(ctx, "k"); got != "replaced" {
		t.Fatalf("expected overwritten value, got %q", got)
	}
	if _, err := client.Get(ctx, "missing"); !errors.Is(err, Nil) {
		t.Fatalf("expected Nil for missing key, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sm:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.StockKey(42); got != "sm:stock:42" {
		t.Fatalf("unexpected stock key %s", got)
	}
	custom := &Client{namespace: "shop"}
	if got := custom.StockKey(42); got != "shop:stock:42" {
		t.Fatalf("namespace should prefix keys, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if _, err := client.AdjustHashInt(context.Background(), "k", "f", 1); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from uninitialized client")
	}
}

type mockCmdable struct {
	mu        sync.Mutex
	data      map[string]string
	hashes    map[string]map[string]string
	scripts   map[string]bool
	evalCalls int
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:    make(map[string]string),
		hashes:  make(map[string]map[string]string),
		scripts: make(map[string]bool),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.hashes, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *mockCmdable) HSet(ctx context.Context, key string, values ...any) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hsetLocked(key, values...)
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (m *mockCmdable) hsetLocked(key string, values ...any) {
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	for i := 0; i+1 < len(values); i += 2 {
		hash[fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
}

// EvalSha behaves like a server that has not cached the script until Eval or
// ScriptLoad is called, which exercises redis.Script's NOSCRIPT fallback.
func (m *mockCmdable) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	m.mu.Lock()
	known := m.scripts[sha1]
	m.mu.Unlock()
	if !known {
		return redis.NewCmdResult(nil, serverError("NOSCRIPT No matching script"))
	}
	return m.runAdjust(keys, args...)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	m.mu.Lock()
	m.evalCalls++
	m.scripts[adjustHashIntScript.Hash()] = true
	m.mu.Unlock()
	return m.runAdjust(keys, args...)
}

func (m *mockCmdable) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return m.Eval(ctx, script, keys, args...)
}

func (m *mockCmdable) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return m.EvalSha(ctx, sha1, keys, args...)
}

func (m *mockCmdable) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(hashes))
	for i, h := range hashes {
		out[i] = m.scripts[h]
	}
	return redis.NewBoolSliceResult(out, nil)
}

func (m *mockCmdable) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[adjustHashIntScript.Hash()] = true
	return redis.NewStringResult(adjustHashIntScript.Hash(), nil)
}

func (m *mockCmdable) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, field := range fields {
		if _, ok := m.hashes[key][field]; ok {
			delete(m.hashes[key], field)
			removed++
		}
	}
	if len(m.hashes[key]) == 0 {
		delete(m.hashes, key)
	}
	return redis.NewIntResult(removed, nil)
}

// runAdjust mirrors adjustHashIntScript: HINCRBY semantics, string values in
// the reply, and an error reply on overflow.
func (m *mockCmdable) runAdjust(keys []string, args ...any) *redis.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	field := fmt.Sprint(args[0])
	delta, err := strconv.ParseInt(fmt.Sprint(args[1]), 10, 64)
	if err != nil {
		return redis.NewCmdResult(nil, err)
	}
	current := int64(0)
	if raw, ok := m.hashes[keys[0]][field]; ok {
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return redis.NewCmdResult(nil, serverError("ERR hash value is not an integer"))
		}
	}
	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return redis.NewCmdResult(nil, serverError("ERR increment or decrement would overflow"))
	}
	next := current + delta
	if next < 0 {
		return redis.NewCmdResult([]any{int64(0), strconv.FormatInt(current, 10)}, nil)
	}
	m.hsetLocked(keys[0], field, next)
	return redis.NewCmdResult([]any{int64(1), strconv.FormatInt(next, 10)}, nil)
}

// serverError is an error reply as go-redis reports it; Script.Run relies on
// the RedisError marker to detect NOSCRIPT.
type serverError string

func (e serverError) Error() string { return string(e) }

func (serverError) RedisError() {}
