package httphandler_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockServices implements every inbound port served by the router.
type MockServices struct {
	mock.Mock
}

func (m *MockServices) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockServices) CategoryBySlug(
	ctx context.Context, slug string,
) (domain.CategoryWithProducts, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(domain.CategoryWithProducts), args.Error(1)
}

func (m *MockServices) ListProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockServices) ProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockServices) ListAllProducts(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockServices) ProductByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockServices) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockServices) UpdateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockServices) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockServices) CreateCategory(
	ctx context.Context, c domain.Category,
) (domain.Category, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Category), args.Error(1)
}

func (m *MockServices) UpdateCategory(
	ctx context.Context, c domain.Category,
) (domain.Category, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Category), args.Error(1)
}

func (m *MockServices) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockServices) PlaceOrder(
	ctx context.Context, cmd domain.PlaceOrder,
) (domain.Order, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockServices) OrderByNumber(
	ctx context.Context, number, email string,
) (domain.Order, error) {
	args := m.Called(ctx, number, email)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockServices) UserOrders(
	ctx context.Context, userID uuid.UUID, page domain.Page,
) ([]domain.Order, error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockServices) ListOrders(
	ctx context.Context, f domain.OrderFilter,
) ([]domain.Order, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockServices) OrderByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockServices) UpdateStatus(
	ctx context.Context, id uuid.UUID, status domain.OrderStatus,
) (domain.Order, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockServices) CreateCart(ctx context.Context) (domain.Cart, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *MockServices) Cart(ctx context.Context, id string) (domain.PricedCart, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PricedCart), args.Error(1)
}

func (m *MockServices) SetItem(
	ctx context.Context, cartID, slug string, quantity int,
) (domain.PricedCart, error) {
	args := m.Called(ctx, cartID, slug, quantity)
	return args.Get(0).(domain.PricedCart), args.Error(1)
}

func (m *MockServices) RemoveItem(
	ctx context.Context, cartID, slug string,
) (domain.PricedCart, error) {
	args := m.Called(ctx, cartID, slug)
	return args.Get(0).(domain.PricedCart), args.Error(1)
}

func (m *MockServices) ClearCart(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockServices) SyncUser(ctx context.Context, u domain.User) (domain.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockServices) DeleteUser(ctx context.Context, externalID string) error {
	return m.Called(ctx, externalID).Error(0)
}

func (m *MockServices) UserByExternalID(
	ctx context.Context, externalID string,
) (domain.User, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockServices) ListUsers(ctx context.Context, page domain.Page) ([]domain.User, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockServices) SetRole(
	ctx context.Context, id uuid.UUID, role domain.Role,
) (domain.User, error) {
	args := m.Called(ctx, id, role)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockServices) ListMetrics(
	ctx context.Context, f domain.EmailMetricFilter,
) ([]domain.EmailMetric, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.EmailMetric), args.Error(1)
}

func (m *MockServices) DeleteMetric(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockServices) RetryMetric(
	ctx context.Context, id uuid.UUID,
) (domain.EmailMetric, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.EmailMetric), args.Error(1)
}

func (m *MockServices) Summary(ctx context.Context) ([]domain.EmailStats, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.EmailStats), args.Error(1)
}
