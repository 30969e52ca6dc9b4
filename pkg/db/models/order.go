package models

import "time"

// Order groups the line items reserved together for one user.
type Order struct {
	ID        int64       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64       `gorm:"column:user_id;not null;index:idx_orders_user_id"`
	OrderedAt time.Time   `gorm:"column:ordered_at;not null"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is a single product quantity reserved by an order.
type OrderItem struct {
	ID        int64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64 `gorm:"column:order_id;not null;index:idx_order_items_order_id"`
	ProductID int64 `gorm:"column:product_id;not null"`
	Quantity  int64 `gorm:"column:quantity;not null"`
}

// All returns every model in dependency order for AutoMigrate.
func All() []any {
	return []any{&Product{}, &User{}, &Order{}, &OrderItem{}}
}
