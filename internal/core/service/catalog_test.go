package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogStorage struct {
	mock.Mock
}

func (m *MockCatalogStorage) ProductBySlug(
	ctx context.Context, slug string,
) (domain.Product, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockCatalogStorage) ProductByID(
	ctx context.Context, id uuid.UUID,
) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockCatalogStorage) ListProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockCatalogStorage) CreateProduct(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogStorage) UpdateProduct(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogStorage) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogStorage) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockCatalogStorage) CategoryBySlug(
	ctx context.Context, slug string,
) (domain.Category, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(domain.Category), args.Error(1)
}

func (m *MockCatalogStorage) CreateCategory(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogStorage) UpdateCategory(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogStorage) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func TestCatalogService(t *testing.T) {
	t.Run("ProductBySlugHidesInactive", func(t *testing.T) {
		storage := new(MockCatalogStorage)
		p := product("lamp", "10", 1)
		p.Status = domain.ProductInactive
		storage.On("ProductBySlug", mock.Anything, "lamp").Return(p, nil)

		_, err := service.NewCatalogService(storage).ProductBySlug(t.Context(), "lamp")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("ListProductsOnlyActive", func(t *testing.T) {
		storage := new(MockCatalogStorage)
		storage.On("ListProducts", mock.Anything, domain.ProductFilter{
			Query:      "lamp",
			OnlyActive: true,
			Page:       domain.Page{Limit: domain.DefaultPageLimit},
		}).Return([]domain.Product{product("lamp", "10", 1)}, nil).Once()

		ps, err := service.NewCatalogService(storage).ListProducts(
			t.Context(), domain.ProductFilter{Query: " lamp "},
		)
		require.NoError(t, err)
		assert.Len(t, ps, 1)
		storage.AssertExpectations(t)
	})

	t.Run("CategoryWithProducts", func(t *testing.T) {
		storage := new(MockCatalogStorage)
		c := domain.Category{ID: uuid.New(), Slug: "home", Name: "Home"}
		storage.On("CategoryBySlug", mock.Anything, "home").Return(c, nil)
		storage.On("ListProducts", mock.Anything, mock.MatchedBy(
			func(f domain.ProductFilter) bool {
				return f.CategorySlug == "home" && f.OnlyActive
			},
		)).Return([]domain.Product{product("lamp", "10", 1)}, nil)

		got, err := service.NewCatalogService(storage).CategoryBySlug(t.Context(), "home")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.Category.ID)
		assert.Len(t, got.Products, 1)
	})

	t.Run("CreateProductAssignsID", func(t *testing.T) {
		storage := new(MockCatalogStorage)
		storage.On("CreateProduct", mock.Anything, mock.AnythingOfType("*domain.Product")).
			Return(nil)

		p, err := service.NewCatalogService(storage).CreateProduct(t.Context(), domain.Product{
			Slug:       "lamp",
			Name:       "Lamp",
			Price:      decimal.RequireFromString("99.90"),
			Stock:      3,
			Status:     domain.ProductActive,
			CategoryID: uuid.New(),
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, p.ID)
	})

	t.Run("CreateProductInvalid", func(t *testing.T) {
		storage := new(MockCatalogStorage)

		_, err := service.NewCatalogService(storage).CreateProduct(t.Context(), domain.Product{
			Slug:   "lamp",
			Name:   "Lamp",
			Price:  decimal.RequireFromString("-1"),
			Status: domain.ProductActive,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		storage.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})
}
