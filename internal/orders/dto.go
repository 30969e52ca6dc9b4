package orders

import (
	"sort"
	"time"

	"github.com/angelmondragon/store-manager/pkg/db/models"
	"github.com/angelmondragon/store-manager/pkg/events"
	"github.com/angelmondragon/store-manager/pkg/pagination"
)

// LineItemInput is one requested product quantity.
type LineItemInput struct {
	ProductID int64
	Quantity  int64
}

// PlaceOrderInput carries the order request.
type PlaceOrderInput struct {
	UserID int64
	Items  []LineItemInput
}

// OrderItemDTO is a persisted line item.
type OrderItemDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID        int64          `json:"order_id"`
	UserID    int64          `json:"user_id"`
	OrderedAt time.Time      `json:"ordered_at"`
	Items     []OrderItemDTO `json:"items"`
}

// OrderListResult is a page of a user's orders.
type OrderListResult struct {
	Orders []OrderDTO      `json:"orders"`
	Page   pagination.Page `json:"page"`
}

func newOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:        order.ID,
		UserID:    order.UserID,
		OrderedAt: order.OrderedAt,
		Items:     make([]OrderItemDTO, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return dto
}

// mergeLineItems folds duplicate product ids together and sorts by product id
// so every multi-item reservation acquires stock in the same order.
func mergeLineItems(items []LineItemInput) []LineItemInput {
	totals := make(map[int64]int64, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	merged := make([]LineItemInput, 0, len(totals))
	for productID, quantity := range totals {
		merged = append(merged, LineItemInput{ProductID: productID, Quantity: quantity})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

func sortedItems(items []models.OrderItem) []models.OrderItem {
	out := append([]models.OrderItem(nil), items...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func orderEvent(order *models.Order) events.OrderEvent {
	event := events.OrderEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		Items:   make([]events.OrderLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, events.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return event
}
