package orders

import (
	"context"

	"github.com/angelmondragon/store-manager/pkg/db/models"
	"github.com/angelmondragon/store-manager/pkg/events"
	"github.com/angelmondragon/store-manager/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// DeleteOrder removes the order and its items, returning the number of
	// order rows deleted.
	DeleteOrder(ctx context.Context, orderID int64) (int64, error)
	ListUserOrders(ctx context.Context, userID int64, params pagination.Params) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockReserver is the part of the inventory core that orders consume.
type StockReserver interface {
	ReserveStock(ctx context.Context, productID int64, quantity int64) (int64, error)
	ReleaseStock(ctx context.Context, productID int64, quantity int64) (int64, error)
}

type userChecker interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

type eventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType events.EventType, event events.OrderEvent) error
}
