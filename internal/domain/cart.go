package domain

import "github.com/shopspring/decimal"

// LineItem — одна позиция корзины.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"imageRef"`
}

// LineTotal возвращает unitPrice * quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate проверяет инварианты позиции.
func (li LineItem) Validate() []error {
	var errs []error
	if li.ProductID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if li.Quantity <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if li.UnitPrice.IsNegative() {
		errs = append(errs, ErrUnitPriceNegative)
	}
	return errs
}

// CartSnapshot — согласованный срез корзины вместе с производными значениями.
type CartSnapshot struct {
	Items     []LineItem      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// IsEmpty сообщает, что в корзине нет позиций.
func (s CartSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// NewCartSnapshot копирует позиции и вычисляет itemCount и subtotal.
func NewCartSnapshot(items []LineItem) CartSnapshot {
	out := make([]LineItem, len(items))
	copy(out, items)

	snap := CartSnapshot{Items: out, Subtotal: decimal.Zero}
	for _, item := range out {
		snap.ItemCount += item.Quantity
		snap.Subtotal = snap.Subtotal.Add(item.LineTotal())
	}
	return snap
}
