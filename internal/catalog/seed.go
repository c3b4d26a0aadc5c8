// Package catalog содержит начальный набор товаров витрины и операции наполнения каталога.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

//go:embed products.json
var productsJSON []byte

// Products возвращает встроенный набор товаров: три модели наушников, две колонки и вкладыши.
func Products() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("decode embedded products: %w", err)
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("embedded product %s: %w", p.Slug, err)
		}
	}
	return products, nil
}

// Store — каталог, который можно и читать, и наполнять.
type Store interface {
	domain.ProductCatalog
	domain.ProductWriter
}

// Seed наполняет пустой каталог встроенными товарами.
// Для непустого каталога возвращает ErrCatalogNotEmpty: сначала нужен Clear.
func Seed(ctx context.Context, store Store, logger *log.Entry) ([]domain.Product, error) {
	if logger == nil {
		logger = log.WithField("component", "catalog-seed")
	}

	existing, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: %d products present", domain.ErrCatalogNotEmpty, len(existing))
	}

	products, err := Products()
	if err != nil {
		return nil, err
	}

	created := make([]domain.Product, 0, len(products))
	for _, p := range products {
		stored, err := store.Create(ctx, p)
		if err != nil {
			return created, fmt.Errorf("create product %s: %w", p.Slug, err)
		}
		created = append(created, stored)
		logger.WithFields(log.Fields{
			"slug":     stored.Slug,
			"category": stored.Category,
		}).Debug("product seeded")
	}

	logger.WithField("count", len(created)).Info("catalog seeded")
	return created, nil
}

// Clear удаляет все товары каталога.
func Clear(ctx context.Context, store domain.ProductWriter, logger *log.Entry) (int, error) {
	if logger == nil {
		logger = log.WithField("component", "catalog-seed")
	}
	n, err := store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	logger.WithField("count", n).Info("catalog cleared")
	return n, nil
}
