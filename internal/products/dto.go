package products

import (
	"strings"
	"time"

	"github.com/angelmondragon/store-manager/internal/inventory"
	"github.com/angelmondragon/store-manager/pkg/db/models"
	"github.com/angelmondragon/store-manager/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID        int64           `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductListResult is a page of products.
type ProductListResult struct {
	Products []ProductDTO   `json:"products"`
	Page     pagination.Page `json:"page"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name  string
	SKU   string
	Price decimal.Decimal
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name  *string
	SKU   *string
	Price *decimal.Decimal
}

func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Price:     p.Price,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (in CreateProductInput) toModel() *models.Product {
	return &models.Product{
		Name:  strings.TrimSpace(in.Name),
		SKU:   strings.TrimSpace(in.SKU),
		Price: in.Price,
	}
}

func applyUpdate(p *models.Product, in UpdateProductInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.SKU != nil {
		p.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
}

func detailsOf(p *models.Product) inventory.ProductDetails {
	return inventory.ProductDetails{Name: p.Name, SKU: p.SKU, Price: p.Price}
}
