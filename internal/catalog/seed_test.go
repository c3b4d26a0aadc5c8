package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/audiophile/internal/catalog"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/memory"
)

func TestProducts_Embedded(t *testing.T) {
	products, err := catalog.Products()
	require.NoError(t, err)
	require.Len(t, products, 6)

	perCategory := map[domain.Category]int{}
	slugs := map[string]struct{}{}
	for _, p := range products {
		perCategory[p.Category]++
		_, dup := slugs[p.Slug]
		require.False(t, dup, "duplicate slug %s", p.Slug)
		slugs[p.Slug] = struct{}{}
		require.True(t, p.Price.IsPositive(), "product %s must have a price", p.Slug)
	}
	require.Equal(t, 3, perCategory[domain.CategoryHeadphones])
	require.Equal(t, 2, perCategory[domain.CategorySpeakers])
	require.Equal(t, 1, perCategory[domain.CategoryEarphones])
}

func TestSeed_EmptyCatalog(t *testing.T) {
	store, err := memory.NewProductCatalog()
	require.NoError(t, err)

	created, err := catalog.Seed(context.Background(), store, nil)
	require.NoError(t, err)
	require.Len(t, created, 6)

	speakers, err := store.ListByCategory(context.Background(), domain.CategorySpeakers)
	require.NoError(t, err)
	require.Len(t, speakers, 2)
}

func TestSeed_RefusesNonEmpty(t *testing.T) {
	store, err := memory.NewProductCatalog()
	require.NoError(t, err)
	_, err = catalog.Seed(context.Background(), store, nil)
	require.NoError(t, err)

	_, err = catalog.Seed(context.Background(), store, nil)
	require.ErrorIs(t, err, domain.ErrCatalogNotEmpty)
}

func TestClear(t *testing.T) {
	store, err := memory.NewProductCatalog()
	require.NoError(t, err)
	_, err = catalog.Seed(context.Background(), store, nil)
	require.NoError(t, err)

	n, err := catalog.Clear(context.Background(), store, nil)
	require.NoError(t, err)
	require.Equal(t, 6, n)

	products, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, products)

	_, err = catalog.Seed(context.Background(), store, nil)
	require.NoError(t, err, "cleared catalog can be seeded again")
}

type failingWriter struct{}

func (failingWriter) Create(context.Context, domain.Product) (domain.Product, error) {
	return domain.Product{}, errors.New("read-only")
}

func (failingWriter) DeleteAll(context.Context) (int, error) {
	return 0, errors.New("read-only")
}

func TestClear_WrapsError(t *testing.T) {
	_, err := catalog.Clear(context.Background(), failingWriter{}, nil)
	require.ErrorContains(t, err, "delete products")
}
