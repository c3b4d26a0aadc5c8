package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// ProductCatalog — in-memory каталог товаров в порядке добавления.
type ProductCatalog struct {
	mu       sync.RWMutex
	products []domain.Product
	bySlug   map[string]int
	byID     map[string]int
}

// NewProductCatalog создаёт каталог и наполняет его переданными товарами.
func NewProductCatalog(seed ...domain.Product) (*ProductCatalog, error) {
	c := &ProductCatalog{
		bySlug: make(map[string]int),
		byID:   make(map[string]int),
	}
	for _, p := range seed {
		if _, err := c.Create(context.Background(), p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *ProductCatalog) List(_ context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

func (c *ProductCatalog) ListByCategory(_ context.Context, category domain.Category) ([]domain.Product, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", domain.ErrCategoryInvalid.Error())
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0)
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *ProductCatalog) GetBySlug(_ context.Context, slug string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.bySlug[slug]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return c.products[i], nil
}

func (c *ProductCatalog) GetByID(_ context.Context, id string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return c.products[i], nil
}

// Create добавляет товар; пустой ID заполняется UUID.
func (c *ProductCatalog) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.bySlug[p.Slug]; exists {
		return domain.Product{}, domain.ErrProductAlreadyExists
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := c.byID[p.ID]; exists {
		return domain.Product{}, domain.ErrProductAlreadyExists
	}

	c.bySlug[p.Slug] = len(c.products)
	c.byID[p.ID] = len(c.products)
	c.products = append(c.products, p)
	return p, nil
}

// DeleteAll очищает каталог и возвращает число удалённых товаров.
func (c *ProductCatalog) DeleteAll(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.products)
	c.products = nil
	c.bySlug = make(map[string]int)
	c.byID = make(map[string]int)
	return n, nil
}

var (
	_ domain.ProductCatalog = (*ProductCatalog)(nil)
	_ domain.ProductWriter  = (*ProductCatalog)(nil)
)
