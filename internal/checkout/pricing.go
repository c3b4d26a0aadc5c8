// Package checkout рассчитывает суммы заказа, проверяет форму оформления
// и проводит отправку заказа во внешние системы.
package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

var (
	// ShippingFee — фиксированная стоимость доставки независимо от состава корзины.
	ShippingFee = decimal.NewFromInt(50)
	// VATRate — ставка НДС от subtotal.
	VATRate = decimal.NewFromFloat(0.20)
)

// Price рассчитывает доставку, НДС и итог для subtotal.
// НДС округляется до целой денежной единицы и хранится уже округлённым,
// поэтому subtotal + shipping + vat всегда совпадает с grandTotal.
func Price(subtotal decimal.Decimal) domain.Totals {
	vat := subtotal.Mul(VATRate).Round(0)
	return domain.Totals{
		Subtotal:   subtotal,
		Shipping:   ShippingFee,
		VAT:        vat,
		GrandTotal: subtotal.Add(ShippingFee).Add(vat),
	}
}

// Quote рассчитывает суммы для снимка корзины.
func Quote(snapshot domain.CartSnapshot) domain.Totals {
	return Price(snapshot.Subtotal)
}
