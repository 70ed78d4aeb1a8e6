package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CatalogStorage = CatalogRepository{}

const productColumns = `
	p.id, p.slug, p.name, p.description, p.price, p.stock, p.status,
	p.features, p.image_url, p.category_id, p.created_at, p.updated_at`

const categoryColumns = `
	id, slug, name, description, image_url, created_at, updated_at`

type CatalogRepository struct {
	sqldb sqldb
}

func NewCatalogRepository(sqldb sqldb) CatalogRepository {
	return CatalogRepository{sqldb}
}

func (r CatalogRepository) ProductBySlug(
	ctx context.Context, slug string,
) (domain.Product, error) {
	const op = "CatalogRepository.ProductBySlug"

	query := `SELECT` + productColumns + ` FROM products p WHERE p.slug = $1;`

	p, err := scanProduct(r.sqldb.QueryRowContext(ctx, query, slug))
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r CatalogRepository) ProductByID(
	ctx context.Context, id uuid.UUID,
) (domain.Product, error) {
	const op = "CatalogRepository.ProductByID"

	query := `SELECT` + productColumns + ` FROM products p WHERE p.id = $1;`

	p, err := scanProduct(r.sqldb.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r CatalogRepository) ListProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	const op = "CatalogRepository.ListProducts"

	query := `
		SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE ($1::text = '' OR c.slug = $1)
			AND ($2::text = '' OR p.name ILIKE $3 OR p.description ILIKE $3)
			AND (NOT $4::boolean OR p.status = 'ACTIVE')
		ORDER BY p.name ASC, p.id ASC
		LIMIT $5 OFFSET $6;`

	rows, err := r.sqldb.QueryContext(ctx, query,
		f.CategorySlug, f.Query, "%"+escapeLike(f.Query)+"%",
		f.OnlyActive, f.Page.Limit, f.Page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ps []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (r CatalogRepository) CreateProduct(
	ctx context.Context, p *domain.Product,
) error {
	const op = "CatalogRepository.CreateProduct"

	features, err := json.Marshal(nonNil(p.Features))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO products (
			id, slug, name, description, price, stock, status,
			features, image_url, category_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at;`

	err = r.sqldb.QueryRowContext(ctx, query,
		p.ID, p.Slug, p.Name, p.Description, p.Price, p.Stock, p.Status,
		string(features), p.ImageURL, p.CategoryID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, productWriteErr(err))
	}
	return nil
}

func (r CatalogRepository) UpdateProduct(
	ctx context.Context, p *domain.Product,
) error {
	const op = "CatalogRepository.UpdateProduct"

	features, err := json.Marshal(nonNil(p.Features))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE products SET
			slug = $2, name = $3, description = $4, price = $5, stock = $6,
			status = $7, features = $8, image_url = $9, category_id = $10,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at;`

	err = r.sqldb.QueryRowContext(ctx, query,
		p.ID, p.Slug, p.Name, p.Description, p.Price, p.Stock, p.Status,
		string(features), p.ImageURL, p.CategoryID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
		}
		return fmt.Errorf("%s: %w", op, productWriteErr(err))
	}
	return nil
}

func (r CatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	const op = "CatalogRepository.DeleteProduct"

	res, err := r.sqldb.ExecContext(ctx, `DELETE FROM products WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrProductNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r CatalogRepository) ListCategories(
	ctx context.Context,
) ([]domain.Category, error) {
	const op = "CatalogRepository.ListCategories"

	query := `SELECT` + categoryColumns + ` FROM categories ORDER BY name ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var cs []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cs = append(cs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cs, nil
}

func (r CatalogRepository) CategoryBySlug(
	ctx context.Context, slug string,
) (domain.Category, error) {
	const op = "CatalogRepository.CategoryBySlug"

	query := `SELECT` + categoryColumns + ` FROM categories WHERE slug = $1;`

	c, err := scanCategory(r.sqldb.QueryRowContext(ctx, query, slug))
	if err != nil {
		return domain.Category{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r CatalogRepository) CreateCategory(
	ctx context.Context, c *domain.Category,
) error {
	const op = "CatalogRepository.CreateCategory"

	query := `
		INSERT INTO categories (id, slug, name, description, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at;`

	err := r.sqldb.QueryRowContext(ctx, query,
		c.ID, c.Slug, c.Name, c.Description, c.ImageURL,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, domain.ErrSlugTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r CatalogRepository) UpdateCategory(
	ctx context.Context, c *domain.Category,
) error {
	const op = "CatalogRepository.UpdateCategory"

	query := `
		UPDATE categories SET
			slug = $2, name = $3, description = $4, image_url = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at;`

	err := r.sqldb.QueryRowContext(ctx, query,
		c.ID, c.Slug, c.Name, c.Description, c.ImageURL,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrCategoryNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrSlugTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r CatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	const op = "CatalogRepository.DeleteCategory"

	res, err := r.sqldb.ExecContext(ctx, `DELETE FROM categories WHERE id = $1;`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf(
				"%s: %w: category has products", op, domain.ErrConflict,
			)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrCategoryNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		features []byte
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Status,
		&features, &p.ImageURL, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}

	if len(features) != 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return domain.Product{}, fmt.Errorf("features: %w", err)
		}
	}
	return p, nil
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Description, &c.ImageURL,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, err
	}
	return c, nil
}

func productWriteErr(err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrSlugTaken
	case isForeignKeyViolation(err):
		return domain.ErrCategoryNotFound
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
