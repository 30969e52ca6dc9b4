package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/store-manager/internal/inventory"
	"github.com/angelmondragon/store-manager/pkg/db"
	"github.com/angelmondragon/store-manager/pkg/db/models"
	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/logger"
	"github.com/angelmondragon/store-manager/pkg/pagination"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID int64) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID int64) error
	ListProducts(ctx context.Context, params pagination.Params) (*ProductListResult, error)
}

type productStore interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context, params pagination.Params) ([]models.Product, error)
}

// stockDetails is the slice of the inventory core the catalog keeps in sync.
type stockDetails interface {
	CacheProductDetails(ctx context.Context, productID int64, details inventory.ProductDetails) error
	ClearProductDetails(ctx context.Context, productID int64) error
	RemoveStock(ctx context.Context, productID int64) error
}

type service struct {
	repo  productStore
	stock stockDetails
	logg  *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo productStore, stock stockDetails, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, stock: stock, logg: logg}, nil
}

// CreateProduct writes the durable row, then copies its details into the
// stock record so reads are served from the cache.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	model := input.toModel()
	if err := validateProduct(model); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, model)
	if err != nil {
		return nil, mapWriteError(err, "create product")
	}

	// A new product has no cached details yet, so a failed write only costs
	// one durable read on the first GetProduct.
	if err := s.stock.CacheProductDetails(ctx, created.ID, detailsOf(created)); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"product_id": created.ID,
			"error":      err.Error(),
		}), "failed to cache product details")
	}
	return NewProductDTO(created), nil
}

func (s *service) GetProduct(ctx context.Context, productID int64) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	applyUpdate(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, mapWriteError(err, "update product")
	}

	if err := s.refreshDetails(ctx, updated); err != nil {
		return nil, err
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes the durable row and then the stock record. A stock
// record that survives a cache failure is logged; DELETE /stocks clears it.
func (s *service) DeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	affected, err := s.repo.Delete(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.stock.RemoveStock(ctx, productID); err != nil {
		s.logg.Error(s.logg.WithProductID(ctx, productID), "failed to remove stock record for deleted product", err)
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) (*ProductListResult, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	rows, page := pagination.Trim(rows, params)
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return &ProductListResult{Products: out, Page: page}, nil
}

func (s *service) load(ctx context.Context, productID int64) (*models.Product, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if db.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// refreshDetails replaces the cached details after an update. Reads trust
// cached details whenever a name is present, so when the write fails the
// details are cleared to force the next read through the durable store. If
// both fail the old details are still cached and the caller must retry.
func (s *service) refreshDetails(ctx context.Context, product *models.Product) error {
	err := s.stock.CacheProductDetails(ctx, product.ID, detailsOf(product))
	if err == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"product_id": product.ID,
		"error":      err.Error(),
	})
	clearErr := s.stock.ClearProductDetails(ctx, product.ID)
	if clearErr == nil {
		s.logg.Warn(ctx, "failed to cache product details; cleared cached details")
		return nil
	}
	s.logg.Error(ctx, "failed to refresh cached product details", clearErr)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, clearErr, "product updated but cached details are stale; retry the update").
		WithDetails(map[string]any{"product_id": product.ID})
}

func validateProduct(p *models.Product) error {
	details := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(p.SKU) == "" {
		details["sku"] = "is required"
	}
	if p.Price.IsNegative() {
		details["price"] = "must be at least 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func mapWriteError(err error, message string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
