package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/store-manager/internal/inventory"
	productsvc "github.com/angelmondragon/store-manager/internal/products"
	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/logger"
)

type stubStock struct {
	products map[int64]*inventory.Product
	levels   map[int64]int64
	adjusted []int64
	err      error
}

func (s *stubStock) GetProduct(_ context.Context, productID int64) (*inventory.Product, error) {
	if p, ok := s.products[productID]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubStock) GetStockLevel(_ context.Context, productID int64) (int64, error) {
	return s.levels[productID], nil
}

func (s *stubStock) AdjustStock(_ context.Context, productID int64, delta int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.adjusted = append(s.adjusted, delta)
	s.levels[productID] += delta
	return s.levels[productID], nil
}

func (s *stubStock) RemoveStock(_ context.Context, productID int64) error {
	delete(s.levels, productID)
	return nil
}

type stubCatalog struct {
	productsvc.Service
	products map[int64]*productsvc.ProductDTO
	calls    int
}

func (c *stubCatalog) GetProduct(_ context.Context, productID int64) (*productsvc.ProductDTO, error) {
	c.calls++
	if p, ok := c.products[productID]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type productBody struct {
	Data inventory.Product `json:"data"`
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetProductPrefersInventoryView(t *testing.T) {
	stock := &stubStock{products: map[int64]*inventory.Product{
		3: {ID: 3, Name: "Lamp", SKU: "L-3", Price: decimal.RequireFromString("4.50"), Quantity: 7},
	}}
	catalog := &stubCatalog{}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/products/3", nil), "productId", "3")
	GetProduct(stock, catalog, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body productBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.Data.Quantity)
	assert.Equal(t, "Lamp", body.Data.Name)
	assert.Zero(t, catalog.calls)
}

func TestGetProductFallsBackToCatalog(t *testing.T) {
	stock := &stubStock{}
	catalog := &stubCatalog{products: map[int64]*productsvc.ProductDTO{
		5: {ID: 5, Name: "Desk", SKU: "D-5", Price: decimal.RequireFromString("120")},
	}}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/products/5", nil), "productId", "5")
	GetProduct(stock, catalog, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body productBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Desk", body.Data.Name)
	assert.Zero(t, body.Data.Quantity)
	assert.Equal(t, 1, catalog.calls)
}

func TestGetProductNotFoundAnywhere(t *testing.T) {
	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/products/9", nil), "productId", "9")
	GetProduct(&stubStock{}, &stubCatalog{}, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProductRejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/products/zero", nil), "productId", "0")
	GetProduct(&stubStock{}, &stubCatalog{}, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdjustStockHandler(t *testing.T) {
	stock := &stubStock{levels: map[int64]int64{}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stocks", strings.NewReader(`{"product_id":2,"quantity":5}`))
	AdjustStock(stock, logger.Nop())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"product_id":2,"quantity":5}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/stocks", strings.NewReader(`{"product_id":2,"quantity":0}`))
	AdjustStock(stock, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []int64{5}, stock.adjusted)
}

func TestAdjustStockHandlerSurfacesInsufficientStock(t *testing.T) {
	stock := &stubStock{levels: map[int64]int64{}, err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"product_id": 2, "available": 0, "requested": 1})}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stocks", strings.NewReader(`{"product_id":2,"quantity":-1}`))
	AdjustStock(stock, logger.Nop())(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeInsufficientStock))
}

func TestGetAndDeleteStockHandlers(t *testing.T) {
	stock := &stubStock{levels: map[int64]int64{4: 11}}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/stocks/4", nil), "productId", "4")
	GetStock(stock, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"product_id":4,"quantity":11}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/stocks/4", nil), "productId", "4")
	DeleteStock(stock, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, stock.levels, int64(4))
}
