package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус заказа. Переходы после pending принадлежат внешней системе.
type OrderStatus string

const (
	// OrderStatusPending — начальный статус любого нового заказа.
	OrderStatusPending OrderStatus = "pending"
)

// ShippingAddress — адрес доставки из формы оформления.
type ShippingAddress struct {
	Address string `json:"address"`
	ZipCode string `json:"zipCode"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// OrderItem — позиция заказа, зафиксированная на момент оформления.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// LineTotal возвращает price * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals — рассчитанные суммы заказа.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	VAT        decimal.Decimal `json:"vat"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Order — неизменяемая запись оформленного заказа.
type Order struct {
	OrderID         string          `json:"orderId"`
	Status          OrderStatus     `json:"status"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Items           []OrderItem     `json:"items"`
	Totals
	CreatedAt time.Time `json:"createdAt"`
}

// ItemsFromCart переносит позиции корзины в позиции заказа.
func ItemsFromCart(items []LineItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, li := range items {
		out = append(out, OrderItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Price:     li.UnitPrice,
			Quantity:  li.Quantity,
			Image:     li.ImageRef,
		})
	}
	return out
}
