package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/audiophile/internal/catalog"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

func TestProductRepository_PostgresSeedAndQuery(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)
	ctx := context.Background()

	seeded, err := catalog.Seed(ctx, repo, nil)
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	if len(seeded) != 6 {
		t.Fatalf("expected 6 seeded products, got %d", len(seeded))
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("expected 6 products, got %d", len(all))
	}

	speakers, err := repo.ListByCategory(ctx, domain.CategorySpeakers)
	if err != nil {
		t.Fatalf("list speakers: %v", err)
	}
	if len(speakers) != 2 {
		t.Fatalf("expected 2 speakers, got %d", len(speakers))
	}

	p, err := repo.GetBySlug(ctx, "zx9-speaker")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if p.Price.IntPart() != 4500 || len(p.Includes) == 0 || p.Gallery.First.Desktop == "" {
		t.Fatalf("unexpected product payload: %+v", p)
	}

	byID, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Slug != p.Slug {
		t.Fatalf("unexpected product by id: %s", byID.Slug)
	}

	if _, err := catalog.Seed(ctx, repo, nil); !errors.Is(err, domain.ErrCatalogNotEmpty) {
		t.Fatalf("expected ErrCatalogNotEmpty on reseed, got %v", err)
	}

	removed, err := repo.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if removed != 6 {
		t.Fatalf("expected 6 removed, got %d", removed)
	}
}

func TestProductRepository_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)
	ctx := context.Background()

	if _, err := repo.GetBySlug(ctx, "missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := repo.ListByCategory(ctx, domain.Category("vinyl")); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	products, err := catalog.Products()
	if err != nil {
		t.Fatalf("load products: %v", err)
	}
	if _, err := repo.Create(ctx, products[0]); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := products[0]
	dup.ID = ""
	if _, err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrProductAlreadyExists) {
		t.Fatalf("expected ErrProductAlreadyExists, got %v", err)
	}
}
