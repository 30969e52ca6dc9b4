package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/store-manager/api/responses"
	"github.com/angelmondragon/store-manager/api/validators"
	"github.com/angelmondragon/store-manager/internal/inventory"
	productsvc "github.com/angelmondragon/store-manager/internal/products"
	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/logger"
)

// productReader is the inventory view used to serve product reads.
type productReader interface {
	GetProduct(ctx context.Context, productID int64) (*inventory.Product, error)
}

type createProductRequest struct {
	Name  string           `json:"name" validate:"required,max=255"`
	SKU   string           `json:"sku" validate:"required,max=64"`
	Price *decimal.Decimal `json:"price" validate:"required"`
}

type updateProductRequest struct {
	Name  *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	SKU   *string          `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), productsvc.CreateProductInput{
			Name:  payload.Name,
			SKU:   payload.SKU,
			Price: *payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// GetProduct serves the cached product view, completed from the durable store
// when the cache lacks details. Products with no stock record yet are read
// from the catalog with a zero quantity.
func GetProduct(stock productReader, catalog productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := stock.GetProduct(r.Context(), productID)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			dto, catalogErr := catalog.GetProduct(r.Context(), productID)
			if catalogErr != nil {
				responses.WriteError(r.Context(), logg, w, catalogErr)
				return
			}
			product = &inventory.Product{ID: dto.ID, Name: dto.Name, SKU: dto.SKU, Price: dto.Price}
			err = nil
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListProducts(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, productsvc.UpdateProductInput{
			Name:  payload.Name,
			SKU:   payload.SKU,
			Price: payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
