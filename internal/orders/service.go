package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/store-manager/pkg/db"
	"github.com/angelmondragon/store-manager/pkg/db/models"
	pkgerrors "github.com/angelmondragon/store-manager/pkg/errors"
	"github.com/angelmondragon/store-manager/pkg/events"
	"github.com/angelmondragon/store-manager/pkg/logger"
	"github.com/angelmondragon/store-manager/pkg/metrics"
	"github.com/angelmondragon/store-manager/pkg/pagination"
	"github.com/angelmondragon/store-manager/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	opPlace  = "place"
	opCancel = "cancel"
)

// Service coordinates stock reservations with order persistence.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, orderID int64) error
	GetOrder(ctx context.Context, orderID int64) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID int64, params pagination.Params) (*OrderListResult, error)
}

// ServiceParams wires the order coordinator.
type ServiceParams struct {
	Repo    Repository
	DB      txRunner
	Stock   StockReserver
	Users   userChecker
	Events  eventPublisher
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
}

type service struct {
	repo    Repository
	db      txRunner
	stock   StockReserver
	users   userChecker
	events  eventPublisher
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

// reservation is a stock adjustment that has been applied and may need to be
// undone.
type reservation struct {
	productID int64
	quantity  int64
}

// NewService builds the order coordinator.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user checker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	publisher := params.Events
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		stock:   params.Stock,
		users:   params.Users,
		events:  publisher,
		logg:    params.Logger,
		metrics: params.Metrics,
		tracer:  tracing.Tracer(params.TracerProvider, "store-manager/orders"),
		now:     time.Now,
	}, nil
}

// PlaceOrder reserves every line item and persists the order. Either all
// reservations stand and the order exists, or none do.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *OrderDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.Int64("user.id", input.UserID),
		attribute.Int("order.items", len(input.Items)),
	))
	started := time.Now()
	defer func() { s.finish(span, opPlace, started, err) }()

	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found").
			WithDetails(map[string]any{"user_id": input.UserID})
	}

	items := mergeLineItems(input.Items)
	applied := make([]reservation, 0, len(items))
	for _, item := range items {
		if _, err := s.stock.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.unwindReservations(ctx, applied, "order placement failed")
			return nil, err
		}
		applied = append(applied, reservation{productID: item.ProductID, quantity: item.Quantity})
	}

	order := &models.Order{
		UserID:    input.UserID,
		OrderedAt: s.now().UTC(),
		Items:     make([]models.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateOrder(ctx, order)
		return err
	}); err != nil {
		s.unwindReservations(ctx, applied, "order persistence failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.logg.Info(ctx, "order placed")
	s.publish(ctx, events.EventOrderPlaced, order)
	return newOrderDTO(order), nil
}

// CancelOrder deletes the order and releases its stock inside one
// transaction. The delete runs first so that of two concurrent cancellations
// only the one that removes the row releases stock; the other sees NOT_FOUND.
func (s *service) CancelOrder(ctx context.Context, orderID int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "orders.CancelOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	started := time.Now()
	defer func() { s.finish(span, opCancel, started, err) }()

	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	var (
		cancelled *models.Order
		released  []reservation
	)
	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if db.IsNotFound(err) {
			return orderNotFound(orderID)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		deleted, err := repo.DeleteOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if deleted == 0 {
			return orderNotFound(orderID)
		}

		for _, item := range sortedItems(order.Items) {
			if _, err := s.stock.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.unwindReleases(ctx, released, "order cancellation failed")
				released = nil
				return err
			}
			released = append(released, reservation{productID: item.ProductID, quantity: item.Quantity})
		}
		cancelled = order
		return nil
	})
	if txErr != nil {
		if len(released) > 0 {
			// Releases were applied but the delete did not commit.
			s.unwindReleases(ctx, released, "order cancellation commit failed")
		}
		if pkgerrors.As(txErr) == nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "cancel order")
		}
		return txErr
	}

	s.logg.Info(ctx, "order cancelled")
	s.publish(ctx, events.EventOrderCancelled, cancelled)
	return nil
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (*OrderDTO, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if db.IsNotFound(err) {
		return nil, orderNotFound(orderID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return newOrderDTO(order), nil
}

func (s *service) ListOrders(ctx context.Context, userID int64, params pagination.Params) (*OrderListResult, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	rows, err := s.repo.ListUserOrders(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, page := pagination.Trim(rows, params)
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *newOrderDTO(&rows[i]))
	}
	return &OrderListResult{Orders: out, Page: page}, nil
}

// unwindReservations releases applied reservations in reverse order. Failures
// are logged; the caller always surfaces its original error.
func (s *service) unwindReservations(ctx context.Context, applied []reservation, reason string) {
	var errs error
	for i := len(applied) - 1; i >= 0; i-- {
		r := applied[i]
		if _, err := s.stock.ReleaseStock(ctx, r.productID, r.quantity); err != nil {
			s.metrics.IncCompensationFailure()
			errs = multierr.Append(errs, fmt.Errorf("release product %d x%d: %w", r.productID, r.quantity, err))
		}
	}
	s.logCompensation(ctx, errs, reason, len(applied))
}

// unwindReleases re-reserves stock released by a cancellation that did not
// complete, newest first.
func (s *service) unwindReleases(ctx context.Context, released []reservation, reason string) {
	var errs error
	for i := len(released) - 1; i >= 0; i-- {
		r := released[i]
		if _, err := s.stock.ReserveStock(ctx, r.productID, r.quantity); err != nil {
			s.metrics.IncCompensationFailure()
			errs = multierr.Append(errs, fmt.Errorf("re-reserve product %d x%d: %w", r.productID, r.quantity, err))
		}
	}
	s.logCompensation(ctx, errs, reason, len(released))
}

func (s *service) logCompensation(ctx context.Context, errs error, reason string, steps int) {
	if errs == nil {
		if steps > 0 {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"steps": steps}), reason+"; stock adjustments rolled back")
		}
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"steps":    steps,
		"failures": len(multierr.Errors(errs)),
	})
	s.logg.Error(ctx, reason+"; stock compensation incomplete", errs)
}

func (s *service) publish(ctx context.Context, eventType events.EventType, order *models.Order) {
	if err := s.events.PublishOrderEvent(ctx, eventType, orderEvent(order)); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"event_type": string(eventType),
			"error":      err.Error(),
		}), "failed to publish order event")
	}
}

func (s *service) finish(span trace.Span, operation string, started time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(operation, string(pkgerrors.CodeOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(pkgerrors.CodeOf(err)))
	} else {
		s.metrics.IncSuccess(operation)
	}
	span.End()
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if input.UserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"item": i, "quantity": item.Quantity})
		}
	}
	return nil
}

func orderNotFound(orderID int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID})
}
