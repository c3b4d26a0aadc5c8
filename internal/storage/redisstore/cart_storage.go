// Package redisstore хранит корзины сессий в Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

const defaultKeyPrefix = "storefront:cart"

// Options — параметры хранилища корзин.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL продлевается при каждом сохранении; 0 означает хранение без срока.
	TTL time.Duration
}

// CartStorage реализует domain.CartStorage поверх Redis.
type CartStorage struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewClient создаёт redis-клиента по opts.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NewCartStorage создаёт хранилище поверх готового клиента.
func NewCartStorage(client redis.UniversalClient, opts Options) *CartStorage {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &CartStorage{client: client, keyPrefix: prefix, ttl: ttl}
}

func (s *CartStorage) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, sessionID)
}

func (s *CartStorage) Load(ctx context.Context, sessionID string) ([]domain.LineItem, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get cart: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	return items, true, nil
}

func (s *CartStorage) Save(ctx context.Context, sessionID string, items []domain.LineItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (s *CartStorage) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis (readiness).
func (s *CartStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает клиента.
func (s *CartStorage) Close() error {
	return s.client.Close()
}

var _ domain.CartStorage = (*CartStorage)(nil)
