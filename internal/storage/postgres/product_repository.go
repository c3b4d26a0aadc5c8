package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

const productColumns = `
	id, slug, name, category, is_new, price, description, features,
	category_image, includes, gallery, others`

// ProductRepository — каталог товаров в PostgreSQL.
// Реализует domain.ProductCatalog и domain.ProductWriter.
type ProductRepository struct {
	store *Store
}

// NewProductRepository создаёт репозиторий каталога.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq ASC`)
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", domain.ErrCategoryInvalid.Error())
	}
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY seq ASC`, string(category))
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// Create вставляет товар; пустой ID заполняется UUID.
func (r *ProductRepository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	categoryImage, includes, gallery, others, err := marshalProductJSON(p)
	if err != nil {
		return domain.Product{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		p.ID, p.Slug, p.Name, string(p.Category), p.New, p.Price, p.Description, p.Features,
		string(categoryImage), string(includes), string(gallery), string(others),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrProductAlreadyExists
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// DeleteAll очищает каталог и возвращает число удалённых товаров.
func (r *ProductRepository) DeleteAll(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *ProductRepository) get(ctx context.Context, query string, arg string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.store.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		category string

		categoryImage, includes, gallery, others []byte
	)
	if err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &category, &p.New, &p.Price, &p.Description, &p.Features,
		&categoryImage, &includes, &gallery, &others,
	); err != nil {
		return domain.Product{}, err
	}
	p.Category = domain.Category(category)

	for _, field := range []struct {
		raw  []byte
		dest any
	}{
		{categoryImage, &p.CategoryImage},
		{includes, &p.Includes},
		{gallery, &p.Gallery},
		{others, &p.Others},
	} {
		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return domain.Product{}, fmt.Errorf("decode product %s: %w", p.Slug, err)
		}
	}
	return p, nil
}

func marshalProductJSON(p domain.Product) (categoryImage, includes, gallery, others []byte, err error) {
	if p.Includes == nil {
		p.Includes = []domain.IncludedItem{}
	}
	if p.Others == nil {
		p.Others = []domain.RelatedProduct{}
	}
	if categoryImage, err = json.Marshal(p.CategoryImage); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode category image: %w", err)
	}
	if includes, err = json.Marshal(p.Includes); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode includes: %w", err)
	}
	if gallery, err = json.Marshal(p.Gallery); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode gallery: %w", err)
	}
	if others, err = json.Marshal(p.Others); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode others: %w", err)
	}
	return categoryImage, includes, gallery, others, nil
}

var (
	_ domain.ProductCatalog = (*ProductRepository)(nil)
	_ domain.ProductWriter  = (*ProductRepository)(nil)
)
