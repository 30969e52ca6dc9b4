package orders

import (
	"context"

	"github.com/angelmondragon/store-manager/pkg/db/models"
	"github.com/angelmondragon/store-manager/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository constructs the GORM-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_id ASC")
		}).
		First(&order, "id = ?", orderID).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) DeleteOrder(ctx context.Context, orderID int64) (int64, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("id = ?", orderID).Delete(&models.Order{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListUserOrders(ctx context.Context, userID int64, params pagination.Params) ([]models.Order, error) {
	params = params.Normalize()
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_id ASC")
		}).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Offset(params.Offset).
		Find(&rows).
		Error
	return rows, err
}
