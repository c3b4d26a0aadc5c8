package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// CartStorage хранит корзины сессий в памяти процесса.
type CartStorage struct {
	mu      sync.RWMutex
	carts   map[string][]domain.LineItem
	updated map[string]time.Time
	now     func() time.Time
}

// NewCartStorage создаёт пустое in-memory хранилище корзин.
func NewCartStorage() *CartStorage {
	return &CartStorage{
		carts:   make(map[string][]domain.LineItem),
		updated: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *CartStorage) Load(_ context.Context, sessionID string) ([]domain.LineItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.carts[sessionID]
	if !ok {
		return nil, false, nil
	}
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out, true, nil
}

func (s *CartStorage) Save(_ context.Context, sessionID string, items []domain.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.LineItem, len(items))
	copy(stored, items)
	s.carts[sessionID] = stored
	s.updated[sessionID] = s.now()
	return nil
}

func (s *CartStorage) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	delete(s.updated, sessionID)
	return nil
}

// DeleteExpired удаляет не более limit корзин, сохранённых не позже before.
func (s *CartStorage) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, at := range s.updated {
		if limit > 0 && deleted >= limit {
			break
		}
		if at.After(before) {
			continue
		}
		delete(s.carts, id)
		delete(s.updated, id)
		deleted++
	}
	return deleted, nil
}

// Sessions возвращает число сохранённых корзин (используется в тестах).
func (s *CartStorage) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}

var _ domain.CartStorage = (*CartStorage)(nil)
