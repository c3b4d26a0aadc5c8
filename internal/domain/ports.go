package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ. ErrOrderAlreadyExists, если orderId занят.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по orderId или ErrOrderNotFound.
	Get(ctx context.Context, orderID string) (Order, error)
	// ListByEmail возвращает заказы покупателя, новые первыми; limit<=0 — без ограничения.
	ListByEmail(ctx context.Context, email string, limit int) ([]Order, error)
}

// ProductCatalog — источник товаров для витрины и корзины.
type ProductCatalog interface {
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category Category) ([]Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
}

// ProductWriter наполняет каталог (сидирование).
type ProductWriter interface {
	Create(ctx context.Context, product Product) (Product, error)
	DeleteAll(ctx context.Context) (int, error)
}

// Notifier отправляет подтверждение заказа покупателю.
type Notifier interface {
	Notify(ctx context.Context, c Confirmation) error
}

// CartStorage — key-value хранилище сериализованной корзины в пределах сессии.
type CartStorage interface {
	// Load возвращает позиции корзины; found=false, если сессия ещё не сохранялась.
	Load(ctx context.Context, sessionID string) (items []LineItem, found bool, err error)
	Save(ctx context.Context, sessionID string, items []LineItem) error
	Delete(ctx context.Context, sessionID string) error
}
