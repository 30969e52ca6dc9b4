package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Stock record field names.
const (
	FieldName     = "name"
	FieldSKU      = "sku"
	FieldPrice    = "price"
	FieldQuantity = "quantity"
)

// ErrNegativeBalance is returned by Cache.AdjustInt when the adjustment would
// leave the field below zero. The record is not modified.
var ErrNegativeBalance = errors.New("adjustment would make the balance negative")

// ErrOverflow is returned by Cache.AdjustInt when the result does not fit in
// an int64. The record is not modified.
var ErrOverflow = errors.New("adjustment would overflow the balance")

// Record is the raw field map cached per product. Every field is optional.
type Record map[string]string

// Cache is the keyed record store holding stock quantities and partial
// product details. AdjustInt is the only mutation that must be atomic.
type Cache interface {
	// GetRecord returns every field of the record; an absent record yields an
	// empty map and a nil error.
	GetRecord(ctx context.Context, productID int64) (Record, error)
	GetField(ctx context.Context, productID int64, field string) (string, bool, error)
	SetFields(ctx context.Context, productID int64, fields map[string]string) error
	// DeleteFields removes fields from the record; missing fields are ignored.
	DeleteFields(ctx context.Context, productID int64, fields ...string) error
	// AdjustInt adds delta to an integer field, creating the record and field at
	// zero when missing. It returns the new value, or the current value with
	// ErrNegativeBalance when the result would be negative.
	AdjustInt(ctx context.Context, productID int64, field string, delta int64) (int64, error)
	DeleteRecord(ctx context.Context, productID int64) error
}

// ProductDetails are the catalog attributes held by the durable store.
type ProductDetails struct {
	Name  string
	SKU   string
	Price decimal.Decimal
}

// ProductLookup reads product attributes from the durable store. A missing
// product is reported as (nil, nil).
type ProductLookup interface {
	LookupProduct(ctx context.Context, productID int64) (*ProductDetails, error)
}

// detailFields are the record fields populated from the durable store.
var detailFields = []string{FieldName, FieldSKU, FieldPrice}

func (d ProductDetails) fields() map[string]string {
	return map[string]string{
		FieldName:  d.Name,
		FieldSKU:   d.SKU,
		FieldPrice: d.Price.String(),
	}
}
