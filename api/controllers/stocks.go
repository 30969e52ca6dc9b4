package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/store-manager/api/responses"
	"github.com/angelmondragon/store-manager/api/validators"
	"github.com/angelmondragon/store-manager/pkg/logger"
)

// stockAdmin is the slice of the inventory core the stock endpoints drive.
type stockAdmin interface {
	GetStockLevel(ctx context.Context, productID int64) (int64, error)
	AdjustStock(ctx context.Context, productID int64, delta int64) (int64, error)
	RemoveStock(ctx context.Context, productID int64) error
}

type adjustStockRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	// Quantity is signed: positive adds stock, negative removes it.
	Quantity int64 `json:"quantity" validate:"required,ne=0"`
}

type stockLevelResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// AdjustStock applies a signed quantity to a product's stock record.
func AdjustStock(svc stockAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := svc.AdjustStock(r.Context(), payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stockLevelResponse{ProductID: payload.ProductID, Quantity: quantity})
	}
}

func GetStock(svc stockAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := svc.GetStockLevel(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockLevelResponse{ProductID: productID, Quantity: quantity})
	}
}

func DeleteStock(svc stockAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveStock(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
