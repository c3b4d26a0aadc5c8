// Package cart содержит состояние корзины покупателя и реестр корзин по сессиям.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// Op — название мутации корзины для подписчиков и метрик.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// MaxQuantity — верхняя граница количества одной позиции.
// Значение помещается в колонку order_items.quantity (INT).
const MaxQuantity = 999

// Change передаётся подписчикам после каждой применённой мутации.
type Change struct {
	SessionID string
	Op        Op
	Snapshot  domain.CartSnapshot
}

// Subscriber получает уведомления об изменениях корзины.
type Subscriber func(Change)

// Store хранит упорядоченные позиции корзины одной сессии.
// Каждая мутация сначала сохраняется в CartStorage и только затем
// становится видимой; при ошибке хранилища состояние не меняется.
type Store struct {
	// checkoutMu сериализует оформление заказов одной сессии.
	checkoutMu sync.Mutex

	mu        sync.Mutex
	sessionID string
	storage   domain.CartStorage
	items     []domain.LineItem
	index     map[string]int

	subMu  sync.RWMutex
	subs   map[int]Subscriber
	nextID int
}

// Open читает сохранённую корзину сессии один раз и возвращает Store.
func Open(ctx context.Context, sessionID string, storage domain.CartStorage) (*Store, error) {
	s := &Store{
		sessionID: sessionID,
		storage:   storage,
		subs:      make(map[int]Subscriber),
	}
	if storage != nil {
		items, found, err := storage.Load(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load cart %s: %w", sessionID, err)
		}
		if found {
			s.items = sanitize(items)
		}
	}
	s.index = buildIndex(s.items)
	return s, nil
}

// SessionID возвращает идентификатор сессии корзины.
func (s *Store) SessionID() string { return s.sessionID }

// AddItem добавляет товар или увеличивает количество существующей позиции.
func (s *Store) AddItem(ctx context.Context, productID, name string, unitPrice decimal.Decimal, quantity int, imageRef string) error {
	verr := &domain.ValidationError{}
	if productID == "" {
		verr.Add(domain.FieldProductID, domain.ErrProductIDRequired.Error())
	}
	if quantity <= 0 {
		verr.Add(domain.FieldQuantity, domain.ErrQuantityInvalid.Error())
	} else if quantity > MaxQuantity {
		verr.Add(domain.FieldQuantity, quantityTooLarge())
	}
	if unitPrice.IsNegative() {
		verr.Add("unitPrice", domain.ErrUnitPriceNegative.Error())
	}
	if err := verr.OrErr(); err != nil {
		return err
	}

	return s.mutate(ctx, OpAdd, func(items []domain.LineItem, index map[string]int) ([]domain.LineItem, bool, error) {
		if i, ok := index[productID]; ok {
			if items[i].Quantity > MaxQuantity-quantity {
				return nil, false, domain.NewValidationError(domain.FieldQuantity, quantityTooLarge())
			}
			items[i].Quantity += quantity
			return items, true, nil
		}
		return append(items, domain.LineItem{
			ProductID: productID,
			Name:      name,
			UnitPrice: unitPrice,
			Quantity:  quantity,
			ImageRef:  imageRef,
		}), true, nil
	})
}

// UpdateQuantity задаёт количество; n<=0 удаляет позицию. Отсутствующий товар — no-op.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity > MaxQuantity {
		return domain.NewValidationError(domain.FieldQuantity, quantityTooLarge())
	}
	return s.mutate(ctx, OpUpdate, func(items []domain.LineItem, index map[string]int) ([]domain.LineItem, bool, error) {
		i, ok := index[productID]
		if !ok {
			return items, false, nil
		}
		if quantity <= 0 {
			return removeAt(items, i), true, nil
		}
		if items[i].Quantity == quantity {
			return items, false, nil
		}
		items[i].Quantity = quantity
		return items, true, nil
	})
}

// RemoveItem удаляет позицию, если она есть.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, OpRemove, func(items []domain.LineItem, index map[string]int) ([]domain.LineItem, bool, error) {
		i, ok := index[productID]
		if !ok {
			return items, false, nil
		}
		return removeAt(items, i), true, nil
	})
}

// RemoveOrdered вычитает оформленные позиции из корзины. Товары и
// количество, добавленные после снимка ordered, остаются в корзине.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []domain.LineItem) error {
	return s.mutate(ctx, OpRemove, func(items []domain.LineItem, index map[string]int) ([]domain.LineItem, bool, error) {
		changed := false
		for _, line := range ordered {
			i, ok := index[line.ProductID]
			if !ok || items[i].Quantity <= 0 {
				continue
			}
			items[i].Quantity -= line.Quantity
			changed = true
		}
		if !changed {
			return items, false, nil
		}
		kept := items[:0]
		for _, item := range items {
			if item.Quantity > 0 {
				kept = append(kept, item)
			}
		}
		return kept, true, nil
	})
}

// LockCheckout захватывает оформление заказа для сессии.
// Параллельные оформления одной корзины выполняются по очереди.
func (s *Store) LockCheckout() (unlock func()) {
	s.checkoutMu.Lock()
	return s.checkoutMu.Unlock
}

// Clear очищает корзину. Повторный вызов безопасен.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.storage != nil {
		if err := s.storage.Delete(ctx, s.sessionID); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("clear cart %s: %w", s.sessionID, err)
		}
	}
	s.items = nil
	s.index = map[string]int{}
	snap := domain.NewCartSnapshot(nil)
	s.mu.Unlock()

	s.publish(Change{SessionID: s.sessionID, Op: OpClear, Snapshot: snap})
	return nil
}

// Snapshot возвращает текущие позиции и производные значения.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewCartSnapshot(s.items)
}

// Subscribe регистрирует подписчика и возвращает функцию отписки.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// mutate применяет fn к копии позиций, сохраняет результат и публикует изменение.
func (s *Store) mutate(ctx context.Context, op Op, fn func([]domain.LineItem, map[string]int) ([]domain.LineItem, bool, error)) error {
	s.mu.Lock()
	draft := make([]domain.LineItem, len(s.items))
	copy(draft, s.items)

	next, changed, err := fn(draft, s.index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !changed {
		s.mu.Unlock()
		return nil
	}

	if s.storage != nil {
		if len(next) == 0 {
			err = s.storage.Delete(ctx, s.sessionID)
		} else {
			err = s.storage.Save(ctx, s.sessionID, next)
		}
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist cart %s: %w", s.sessionID, err)
		}
	}

	s.items = next
	s.index = buildIndex(next)
	snap := domain.NewCartSnapshot(next)
	s.mu.Unlock()

	s.publish(Change{SessionID: s.sessionID, Op: op, Snapshot: snap})
	return nil
}

func (s *Store) publish(change Change) {
	s.subMu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}

func removeAt(items []domain.LineItem, i int) []domain.LineItem {
	return append(items[:i], items[i+1:]...)
}

func buildIndex(items []domain.LineItem) map[string]int {
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ProductID] = i
	}
	return index
}

// sanitize восстанавливает инварианты для данных из хранилища:
// дубликаты сливаются, позиции с количеством <= 0 отбрасываются,
// количество ограничивается MaxQuantity.
func sanitize(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		if item.Quantity > MaxQuantity {
			item.Quantity = MaxQuantity
		}
		if i, ok := seen[item.ProductID]; ok {
			out[i].Quantity = min(out[i].Quantity+item.Quantity, MaxQuantity)
			continue
		}
		seen[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

func quantityTooLarge() string {
	return fmt.Sprintf("quantity must not exceed %d", MaxQuantity)
}
