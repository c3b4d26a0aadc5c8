package domain

import "github.com/shopspring/decimal"

// PaymentMethod — способ оплаты. Фиксируется в заказе, списание не выполняется.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodEMoney PaymentMethod = "emoney"
)

// Valid проверяет, что способ оплаты поддерживается.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodEMoney:
		return true
	default:
		return false
	}
}

// Имена полей формы, используемые в FieldError.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldAddress       = "address"
	FieldZipCode       = "zipCode"
	FieldCity          = "city"
	FieldCountry       = "country"
	FieldPaymentMethod = "paymentMethod"
	FieldEMoneyNumber  = "eMoneyNumber"
	FieldEMoneyPin     = "eMoneyPin"
	FieldQuantity      = "quantity"
	FieldProductID     = "productId"
)

// CheckoutForm — данные покупателя из формы оформления заказа.
type CheckoutForm struct {
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	ZipCode       string        `json:"zipCode"`
	City          string        `json:"city"`
	Country       string        `json:"country"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	EMoneyNumber  string        `json:"eMoneyNumber,omitempty"`
	EMoneyPin     string        `json:"eMoneyPin,omitempty"`
}

// Confirmation — данные для уведомления о заказе.
type Confirmation struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	Items         []OrderItem
	GrandTotal    decimal.Decimal
}

// NewConfirmation собирает уведомление из сохранённого заказа.
func NewConfirmation(o Order) Confirmation {
	return Confirmation{
		OrderID:       o.OrderID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Items:         o.Items,
		GrandTotal:    o.GrandTotal,
	}
}
