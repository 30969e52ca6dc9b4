package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the durable source of truth for catalog attributes.
type Product struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string          `gorm:"column:name;size:255;not null"`
	SKU       string          `gorm:"column:sku;size:64;not null;uniqueIndex:idx_products_sku"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
