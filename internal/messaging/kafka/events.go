package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderPlaced EventType = "order.placed"
)

// TopicOrderEvents — топик событий заказов витрины.
const TopicOrderEvents = "storefront.order.events"

// HeaderEventType дублирует тип события в заголовке сообщения.
const HeaderEventType = "x-event-type"

// OrderPlacedItem — позиция заказа в событии.
type OrderPlacedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// OrderPlacedEvent публикуется после сохранения заказа.
type OrderPlacedEvent struct {
	EventType     EventType         `json:"event_type"`
	OrderID       string            `json:"order_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Items         []OrderPlacedItem `json:"items"`
	GrandTotal    string            `json:"grand_total"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewOrderPlacedEvent строит событие из подтверждения заказа.
// Суммы передаются строками, чтобы не терять точность decimal.
func NewOrderPlacedEvent(c domain.Confirmation, at time.Time) *OrderPlacedEvent {
	items := make([]OrderPlacedItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			Quantity:  item.Quantity,
		})
	}
	return &OrderPlacedEvent{
		EventType:     EventTypeOrderPlaced,
		OrderID:       c.OrderID,
		CustomerName:  c.CustomerName,
		CustomerEmail: c.CustomerEmail,
		Items:         items,
		GrandTotal:    c.GrandTotal.String(),
		Timestamp:     at,
	}
}
