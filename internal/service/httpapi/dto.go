package httpapi

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

type ErrorResponse struct {
	Error     string              `json:"error"`
	Message   string              `json:"message,omitempty"`
	Fields    []domain.FieldError `json:"fields,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

type CartResponse struct {
	SessionID string              `json:"sessionId"`
	Cart      domain.CartSnapshot `json:"cart"`
}

type SummaryResponse struct {
	Items      []domain.LineItem `json:"items"`
	ItemCount  int               `json:"itemCount"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Shipping   decimal.Decimal   `json:"shipping"`
	VAT        decimal.Decimal   `json:"vat"`
	GrandTotal decimal.Decimal   `json:"grandTotal"`
}

type CheckoutResponse struct {
	State    string       `json:"state"`
	Order    domain.Order `json:"order"`
	Warnings []string     `json:"warnings,omitempty"`
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

func newSummaryResponse(snapshot domain.CartSnapshot, totals domain.Totals) SummaryResponse {
	return SummaryResponse{
		Items:      snapshot.Items,
		ItemCount:  snapshot.ItemCount,
		Subtotal:   totals.Subtotal,
		Shipping:   totals.Shipping,
		VAT:        totals.VAT,
		GrandTotal: totals.GrandTotal,
	}
}
