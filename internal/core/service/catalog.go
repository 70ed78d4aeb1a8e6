package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CatalogReader = (*CatalogService)(nil)
var _ port.CatalogManager = (*CatalogService)(nil)

type CatalogService struct {
	storage port.CatalogStorage
}

func NewCatalogService(storage port.CatalogStorage) CatalogService {
	return CatalogService{storage}
}

func (s CatalogService) ListCategories(
	ctx context.Context,
) ([]domain.Category, error) {
	const op = "CatalogService.ListCategories"

	cs, err := s.storage.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cs, nil
}

func (s CatalogService) CategoryBySlug(
	ctx context.Context, slug string,
) (domain.CategoryWithProducts, error) {
	const op = "CatalogService.CategoryBySlug"

	c, err := s.storage.CategoryBySlug(ctx, slug)
	if err != nil {
		return domain.CategoryWithProducts{}, fmt.Errorf("%s: %w", op, err)
	}

	ps, err := s.storage.ListProducts(ctx, domain.ProductFilter{
		CategorySlug: slug,
		OnlyActive:   true,
		Page:         domain.Page{Limit: domain.MaxPageLimit},
	})
	if err != nil {
		return domain.CategoryWithProducts{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.CategoryWithProducts{Category: c, Products: ps}, nil
}

func (s CatalogService) ListProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	f.OnlyActive = true
	return s.listProducts(ctx, f)
}

func (s CatalogService) ListAllProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	return s.listProducts(ctx, f)
}

func (s CatalogService) listProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	const op = "CatalogService.listProducts"

	f.Page = f.Page.Normalize()
	f.Query = strings.TrimSpace(f.Query)

	ps, err := s.storage.ListProducts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// ProductBySlug returns storefront-visible products only.
func (s CatalogService) ProductBySlug(
	ctx context.Context, slug string,
) (domain.Product, error) {
	const op = "CatalogService.ProductBySlug"

	p, err := s.storage.ProductBySlug(ctx, slug)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	if !p.Available() {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}
	return p, nil
}

func (s CatalogService) ProductByID(
	ctx context.Context, id uuid.UUID,
) (domain.Product, error) {
	const op = "CatalogService.ProductByID"

	p, err := s.storage.ProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s CatalogService) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "CatalogService.CreateProduct"

	if err := validateProduct(p); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p.ID = uuid.New()
	if err := s.storage.CreateProduct(ctx, &p); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s CatalogService) UpdateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "CatalogService.UpdateProduct"

	if err := validateProduct(p); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdateProduct(ctx, &p); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	const op = "CatalogService.DeleteProduct"

	if err := s.storage.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CatalogService) CreateCategory(
	ctx context.Context, c domain.Category,
) (domain.Category, error) {
	const op = "CatalogService.CreateCategory"

	if err := validateCategory(c); err != nil {
		return domain.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	c.ID = uuid.New()
	if err := s.storage.CreateCategory(ctx, &c); err != nil {
		return domain.Category{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s CatalogService) UpdateCategory(
	ctx context.Context, c domain.Category,
) (domain.Category, error) {
	const op = "CatalogService.UpdateCategory"

	if err := validateCategory(c); err != nil {
		return domain.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdateCategory(ctx, &c); err != nil {
		return domain.Category{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// DeleteCategory fails with [domain.ErrConflict] while products reference it.
func (s CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	const op = "CatalogService.DeleteCategory"

	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.Slug) == "":
		return fmt.Errorf("%w: empty slug", domain.ErrInvalidInput)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: empty name", domain.ErrInvalidInput)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: negative price", domain.ErrInvalidInput)
	case p.Stock < 0:
		return fmt.Errorf("%w: negative stock", domain.ErrInvalidInput)
	case !p.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, p.Status)
	case p.CategoryID == uuid.Nil:
		return fmt.Errorf("%w: missing category", domain.ErrInvalidInput)
	}
	return nil
}

func validateCategory(c domain.Category) error {
	switch {
	case strings.TrimSpace(c.Slug) == "":
		return fmt.Errorf("%w: empty slug", domain.ErrInvalidInput)
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: empty name", domain.ErrInvalidInput)
	}
	return nil
}
