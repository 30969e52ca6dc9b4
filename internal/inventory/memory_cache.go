package inventory

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// MemoryCache keeps stock records in process memory. A single mutex is held
// across every read-modify-write so AdjustInt is atomic.
type MemoryCache struct {
	mu      sync.Mutex
	records map[int64]Record
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[int64]Record)}
}

func (c *MemoryCache) GetRecord(_ context.Context, productID int64) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Record, len(c.records[productID]))
	for k, v := range c.records[productID] {
		out[k] = v
	}
	return out, nil
}

func (c *MemoryCache) GetField(_ context.Context, productID int64, field string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.records[productID][field]
	return value, ok, nil
}

func (c *MemoryCache) SetFields(_ context.Context, productID int64, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := c.recordLocked(productID)
	for k, v := range fields {
		record[k] = v
	}
	return nil
}

func (c *MemoryCache) AdjustInt(_ context.Context, productID int64, field string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var current int64
	if raw, ok := c.records[productID][field]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s of product %d is not an integer: %w", field, productID, err)
		}
		current = parsed
	}
	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return current, ErrOverflow
	}
	next := current + delta
	if next < 0 {
		return current, ErrNegativeBalance
	}
	c.recordLocked(productID)[field] = strconv.FormatInt(next, 10)
	return next, nil
}

func (c *MemoryCache) DeleteFields(_ context.Context, productID int64, fields ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[productID]
	if !ok {
		return nil
	}
	for _, field := range fields {
		delete(record, field)
	}
	if len(record) == 0 {
		delete(c.records, productID)
	}
	return nil
}

func (c *MemoryCache) DeleteRecord(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, productID)
	return nil
}

func (c *MemoryCache) recordLocked(productID int64) Record {
	record, ok := c.records[productID]
	if !ok {
		record = make(Record)
		c.records[productID] = record
	}
	return record
}
