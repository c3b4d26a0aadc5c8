package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrProductIDRequired — позиция корзины без идентификатора товара.
	ErrProductIDRequired = errors.New("product_id is required")
	// ErrQuantityInvalid — количество позиции должно быть положительным.
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// ErrUnitPriceNegative — цена за единицу не может быть отрицательной.
	ErrUnitPriceNegative = errors.New("unit price must be non-negative")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists сигнализирует о повторном orderId.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductAlreadyExists — товар с таким slug уже есть в каталоге.
	ErrProductAlreadyExists = errors.New("product already exists")
	// ErrCategoryInvalid — неизвестная категория товара.
	ErrCategoryInvalid = errors.New("unknown product category")
	// ErrCatalogNotEmpty — повторное наполнение каталога без предварительной очистки.
	ErrCatalogNotEmpty = errors.New("catalog is not empty")
)

// FieldError описывает нарушение для конкретного поля формы.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError собирает все нарушения формы оформления или операции корзины.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError создаёт ошибку для одного поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add добавляет нарушение.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasField проверяет, есть ли нарушение для поля.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrErr возвращает nil, если нарушений нет.
func (e *ValidationError) OrErr() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// OrderPersistenceError оборачивает отказ репозитория заказов. Запрос можно повторить.
type OrderPersistenceError struct {
	OrderID string
	Err     error
}

func (e *OrderPersistenceError) Error() string {
	return fmt.Sprintf("persist order %s: %v", e.OrderID, e.Err)
}

func (e *OrderPersistenceError) Unwrap() error { return e.Err }

// NotificationError — мягкая ошибка отправки подтверждения; заказ при этом считается оформленным.
type NotificationError struct {
	OrderID string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify order %s: %v", e.OrderID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetryable сообщает, можно ли повторить оформление без изменения ввода.
func IsRetryable(err error) bool {
	var pe *OrderPersistenceError
	return errors.As(err, &pe)
}
