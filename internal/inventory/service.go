package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/logger"
	"github.com/angelmondragon/store-manager/pkg/metrics"
	"github.com/angelmondragon/store-manager/pkg/tracing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const placeholderSKU = "N/A"

// lookupTimeout bounds a coalesced durable lookup, which runs detached from
// any single caller's context.
const lookupTimeout = 5 * time.Second

// Product is the merged view of cached stock and catalog attributes.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// Service is the inventory consistency core.
type Service interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	GetStockLevel(ctx context.Context, productID int64) (int64, error)
	AdjustStock(ctx context.Context, productID int64, delta int64) (int64, error)
	ReserveStock(ctx context.Context, productID int64, quantity int64) (int64, error)
	ReleaseStock(ctx context.Context, productID int64, quantity int64) (int64, error)
	CacheProductDetails(ctx context.Context, productID int64, details ProductDetails) error
	ClearProductDetails(ctx context.Context, productID int64) error
	RemoveStock(ctx context.Context, productID int64) error
}

// ServiceParams wires the inventory service dependencies.
type ServiceParams struct {
	Cache   Cache
	Lookup  ProductLookup
	Logger  *logger.Logger
	Metrics *metrics.InventoryMetrics
	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
	// BackfillDetails writes durable details into records that lack them.
	BackfillDetails bool
}

type service struct {
	cache    Cache
	lookup   ProductLookup
	logg     *logger.Logger
	metrics  *metrics.InventoryMetrics
	tracer   trace.Tracer
	backfill bool
	lookups  singleflight.Group
}

// NewService constructs the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("stock cache required")
	}
	if params.Lookup == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cache:    params.Cache,
		lookup:   params.Lookup,
		logg:     params.Logger,
		metrics:  params.Metrics,
		tracer:   tracing.Tracer(params.TracerProvider, "store-manager/inventory"),
		backfill: params.BackfillDetails,
	}, nil
}

// GetProduct returns the cached product, completing it from the durable store
// when the record has no name. A record that exists always yields a product.
func (s *service) GetProduct(ctx context.Context, productID int64) (_ *Product, err error) {
	ctx, span := s.startSpan(ctx, "inventory.GetProduct", productID)
	defer func() { endSpan(span, err) }()
	defer s.observe("get_product", time.Now())

	if productID <= 0 {
		return nil, invalidProductID(productID)
	}

	record, err := s.cache.GetRecord(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no stock record for product %d", productID))
	}

	quantity, err := parseQuantity(productID, record)
	if err != nil {
		return nil, err
	}

	if record[FieldName] != "" {
		return s.productFromRecord(ctx, productID, record, quantity), nil
	}

	details, err := s.lookupDetails(ctx, productID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		s.metrics.IncLookup(metrics.LookupPlaceholder)
		s.logg.Debug(s.logg.WithProductID(ctx, productID), "durable product missing; returning placeholder")
		return &Product{
			ID:       productID,
			Name:     fmt.Sprintf("Product %d", productID),
			SKU:      placeholderSKU,
			Price:    decimal.Zero,
			Quantity: quantity,
		}, nil
	}

	s.metrics.IncLookup(metrics.LookupFound)
	if s.backfill {
		if err := s.cache.SetFields(ctx, productID, details.fields()); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id": productID,
				"error":      err.Error(),
			}), "failed to backfill product details into stock record")
		}
	}

	return &Product{
		ID:       productID,
		Name:     details.Name,
		SKU:      details.SKU,
		Price:    details.Price,
		Quantity: quantity,
	}, nil
}

func (s *service) GetStockLevel(ctx context.Context, productID int64) (int64, error) {
	if productID <= 0 {
		return 0, invalidProductID(productID)
	}
	raw, ok, err := s.cache.GetField(ctx, productID, FieldQuantity)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return parseQuantity(productID, Record{FieldQuantity: raw})
}

// AdjustStock applies delta atomically. A delta that would drive the quantity
// negative fails with INSUFFICIENT_STOCK and leaves the record unchanged.
func (s *service) AdjustStock(ctx context.Context, productID int64, delta int64) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "inventory.AdjustStock", productID, attribute.Int64("stock.delta", delta))
	defer func() { endSpan(span, err) }()
	defer s.observe("adjust_stock", time.Now())

	if productID <= 0 {
		return 0, invalidProductID(productID)
	}
	if delta == math.MinInt64 {
		return 0, overflow(productID, delta)
	}

	value, err := s.cache.AdjustInt(ctx, productID, FieldQuantity, delta)
	switch {
	case errors.Is(err, ErrOverflow):
		s.metrics.IncAdjustment(metrics.AdjustRefused)
		return 0, overflow(productID, delta)
	case errors.Is(err, ErrNegativeBalance):
		s.metrics.IncAdjustment(metrics.AdjustRefused)
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for product %d", productID)).
			WithDetails(map[string]any{
				"product_id": productID,
				"available":  value,
				"requested":  -delta,
			})
	case err != nil:
		s.metrics.IncAdjustment(metrics.AdjustError)
		return 0, err
	}
	s.metrics.IncAdjustment(metrics.AdjustApplied)
	return value, nil
}

func (s *service) ReserveStock(ctx context.Context, productID int64, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, invalidQuantity(quantity)
	}
	return s.AdjustStock(ctx, productID, -quantity)
}

func (s *service) ReleaseStock(ctx context.Context, productID int64, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, invalidQuantity(quantity)
	}
	return s.AdjustStock(ctx, productID, quantity)
}

// CacheProductDetails stores catalog attributes alongside the quantity so
// reads skip the durable store.
func (s *service) CacheProductDetails(ctx context.Context, productID int64, details ProductDetails) error {
	if productID <= 0 {
		return invalidProductID(productID)
	}
	return s.cache.SetFields(ctx, productID, details.fields())
}

// ClearProductDetails drops the cached catalog attributes but keeps the
// quantity, so the next GetProduct reads them from the durable store.
func (s *service) ClearProductDetails(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return invalidProductID(productID)
	}
	return s.cache.DeleteFields(ctx, productID, detailFields...)
}

func (s *service) RemoveStock(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return invalidProductID(productID)
	}
	return s.cache.DeleteRecord(ctx, productID)
}

// lookupDetails coalesces concurrent durable lookups for one product. The
// shared lookup is not tied to the first caller's cancellation; each caller
// still stops waiting when its own context ends.
func (s *service) lookupDetails(ctx context.Context, productID int64) (*ProductDetails, error) {
	ch := s.lookups.DoChan(strconv.FormatInt(productID, 10), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return s.lookup.LookupProduct(lookupCtx, productID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "product lookup abandoned")
	case res = <-ch:
	}
	if res.Err != nil {
		s.metrics.IncLookup(metrics.LookupError)
		return nil, res.Err
	}
	details, _ := res.Val.(*ProductDetails)
	if details == nil {
		return nil, nil
	}
	copied := *details
	return &copied, nil
}

func (s *service) productFromRecord(ctx context.Context, productID int64, record Record, quantity int64) *Product {
	product := &Product{
		ID:       productID,
		Name:     record[FieldName],
		SKU:      placeholderSKU,
		Price:    decimal.Zero,
		Quantity: quantity,
	}
	if sku, ok := record[FieldSKU]; ok {
		product.SKU = sku
	}
	if raw, ok := record[FieldPrice]; ok {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id": productID,
				"price":      raw,
			}), "ignoring unparseable cached price")
		} else {
			product.Price = price
		}
	}
	return product
}

func (s *service) startSpan(ctx context.Context, name string, productID int64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.Int64("product.id", productID))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *service) observe(operation string, started time.Time) {
	s.metrics.ObserveDuration(operation, time.Since(started))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(pkgerrors.CodeOf(err)))
	}
	span.End()
}

func parseQuantity(productID int64, record Record) (int64, error) {
	raw, ok := record[FieldQuantity]
	if !ok || raw == "" {
		return 0, nil
	}
	quantity, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("stock quantity for product %d is corrupt", productID))
	}
	return quantity, nil
}

func invalidProductID(productID int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive").
		WithDetails(map[string]any{"product_id": productID})
}

func invalidQuantity(quantity int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
		WithDetails(map[string]any{"quantity": quantity})
}

func overflow(productID, delta int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "stock adjustment out of range").
		WithDetails(map[string]any{"product_id": productID, "delta": delta})
}
