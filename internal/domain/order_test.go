package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

func TestNewCartSnapshot_Derived(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "xx99-mk2", UnitPrice: decimal.NewFromInt(2999), Quantity: 1},
		{ProductID: "yx1", UnitPrice: decimal.NewFromInt(599), Quantity: 2},
	}

	snap := domain.NewCartSnapshot(items)
	if snap.ItemCount != 3 {
		t.Fatalf("expected itemCount 3, got %d", snap.ItemCount)
	}
	if !snap.Subtotal.Equal(decimal.NewFromInt(4197)) {
		t.Fatalf("expected subtotal 4197, got %s", snap.Subtotal)
	}

	items[0].Quantity = 10
	if snap.Items[0].Quantity != 1 {
		t.Fatal("snapshot must not alias source items")
	}

	empty := domain.NewCartSnapshot(nil)
	if !empty.IsEmpty() || empty.ItemCount != 0 || !empty.Subtotal.IsZero() {
		t.Fatalf("unexpected empty snapshot %+v", empty)
	}
}

func TestLineItemValidate(t *testing.T) {
	tests := []struct {
		name string
		item domain.LineItem
		want int
	}{
		{name: "valid", item: domain.LineItem{ProductID: "p", UnitPrice: decimal.NewFromInt(1), Quantity: 1}, want: 0},
		{name: "missing product", item: domain.LineItem{UnitPrice: decimal.NewFromInt(1), Quantity: 1}, want: 1},
		{name: "zero quantity", item: domain.LineItem{ProductID: "p", Quantity: 0}, want: 1},
		{name: "everything wrong", item: domain.LineItem{UnitPrice: decimal.NewFromInt(-1), Quantity: -2}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.item.Validate(); len(errs) != tt.want {
				t.Fatalf("expected %d errors, got %v", tt.want, errs)
			}
		})
	}
}

func TestItemsFromCartAndConfirmation(t *testing.T) {
	items := domain.ItemsFromCart([]domain.LineItem{
		{ProductID: "zx9", Name: "ZX9", UnitPrice: decimal.NewFromInt(4500), Quantity: 2, ImageRef: "cart/zx9.jpg"},
	})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Price.String() != "4500" || items[0].Image != "cart/zx9.jpg" {
		t.Fatalf("unexpected order item %+v", items[0])
	}
	if !items[0].LineTotal().Equal(decimal.NewFromInt(9000)) {
		t.Fatalf("unexpected line total %s", items[0].LineTotal())
	}

	order := domain.Order{
		OrderID:       "ORD-1",
		CustomerName:  "Alexei Ward",
		CustomerEmail: "alexei@mail.com",
		Items:         items,
		Totals:        domain.Totals{GrandTotal: decimal.NewFromInt(10850)},
		CreatedAt:     time.Now().UTC(),
	}
	c := domain.NewConfirmation(order)
	if c.OrderID != "ORD-1" || c.CustomerEmail != "alexei@mail.com" || !c.GrandTotal.Equal(order.GrandTotal) {
		t.Fatalf("unexpected confirmation %+v", c)
	}
}

func TestProductValidateAndLineItem(t *testing.T) {
	p := domain.Product{
		ID:       "id-1",
		Slug:     "zx7-speaker",
		Name:     "ZX7 Speaker",
		Category: domain.CategorySpeakers,
		Price:    decimal.NewFromInt(3500),
		Gallery: domain.Gallery{
			First: domain.ImageSet{Desktop: "gallery/first.jpg"},
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	li := p.LineItem(2)
	if li.ProductID != "id-1" || li.Quantity != 2 || li.ImageRef != "gallery/first.jpg" {
		t.Fatalf("unexpected line item %+v", li)
	}

	bad := domain.Product{Category: "vinyl", Price: decimal.NewFromInt(-1)}
	err := bad.Validate()
	verr, ok := err.(*domain.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	for _, field := range []string{"slug", "name", "category", "price"} {
		if !verr.HasField(field) {
			t.Errorf("expected violation for %s", field)
		}
	}
}

func TestPaymentMethodValid(t *testing.T) {
	if !domain.PaymentMethodCash.Valid() || !domain.PaymentMethodEMoney.Valid() {
		t.Fatal("known payment methods must be valid")
	}
	if domain.PaymentMethod("card").Valid() {
		t.Fatal("unknown payment method must be invalid")
	}
}
