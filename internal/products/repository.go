package products

import (
	"context"
	"fmt"

	"github.com/angelmondragon/store-manager/internal/inventory"
	"github.com/angelmondragon/store-manager/pkg/db"
	"github.com/angelmondragon/store-manager/pkg/db/models"
	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads a product by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update saves every column of an existing product.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// List returns one extra row beyond the page so callers can detect a next page.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	params = params.Normalize()
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Offset(params.Offset).
		Find(&rows).
		Error
	return rows, err
}

// LookupProduct serves the inventory read-through path. A missing row yields
// (nil, nil); any other failure is reported as a dependency error.
func (r *Repository) LookupProduct(ctx context.Context, productID int64) (*inventory.ProductDetails, error) {
	var row models.Product
	err := r.db.WithContext(ctx).
		Select("name", "sku", "price").
		Where("id = ?", productID).
		Take(&row).
		Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("lookup product %d", productID))
	}
	return &inventory.ProductDetails{
		Name:  row.Name,
		SKU:   row.SKU,
		Price: row.Price,
	}, nil
}
