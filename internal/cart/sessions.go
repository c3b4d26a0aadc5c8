package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// ErrSessionRequired — запрос корзины без идентификатора сессии.
var ErrSessionRequired = errors.New("cart session id is required")

// Sessions выдаёт Store для каждой сессии. Store создаётся при первом
// обращении и живёт, пока сессия активна: все мутации одной сессии
// проходят через один экземпляр. Простаивающие корзины выгружаются
// через EvictIdle и при следующем обращении загружаются из хранилища заново.
type Sessions struct {
	mu       sync.Mutex
	stores   map[string]*Store
	lastSeen map[string]time.Time
	storage  domain.CartStorage
	hooks    []Subscriber
	logger   *log.Entry
	now      func() time.Time
}

// NewSessions создаёт реестр корзин поверх хранилища.
// hooks подписываются на каждую новую корзину.
func NewSessions(storage domain.CartStorage, logger *log.Entry, hooks ...Subscriber) *Sessions {
	if logger == nil {
		logger = log.WithField("component", "cart-sessions")
	}
	return &Sessions{
		stores:   make(map[string]*Store),
		lastSeen: make(map[string]time.Time),
		storage:  storage,
		hooks:    hooks,
		logger:   logger,
		now:      time.Now,
	}
}

// Get возвращает корзину сессии, загружая её из хранилища при первом обращении.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[sessionID]; ok {
		s.lastSeen[sessionID] = s.now()
		return store, nil
	}

	store, err := Open(ctx, sessionID, s.storage)
	if err != nil {
		return nil, err
	}
	for _, hook := range s.hooks {
		store.Subscribe(hook)
	}
	s.stores[sessionID] = store
	s.lastSeen[sessionID] = s.now()

	s.logger.WithFields(log.Fields{
		"session_id": sessionID,
		"items":      len(store.Snapshot().Items),
	}).Debug("cart session opened")

	return store, nil
}

// Len возвращает число открытых корзин.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// EvictIdle выгружает корзины, к которым не обращались с момента before.
// Содержимое остаётся в хранилище.
func (s *Sessions) EvictIdle(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, seen := range s.lastSeen {
		if seen.After(before) {
			continue
		}
		delete(s.stores, id)
		delete(s.lastSeen, id)
		evicted++
	}
	if evicted > 0 {
		s.logger.WithField("evicted", evicted).Debug("idle cart sessions evicted")
	}
	return evicted
}
