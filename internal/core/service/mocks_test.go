package service_test

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func product(slug string, price string, stock int) domain.Product {
	return domain.Product{
		ID:     uuid.New(),
		Slug:   slug,
		Name:   "Product " + slug,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Status: domain.ProductActive,
	}
}

type catalogStub struct {
	mu       sync.Mutex
	products map[string]domain.Product
	calls    int
}

func newCatalogStub(ps ...domain.Product) *catalogStub {
	c := &catalogStub{products: make(map[string]domain.Product)}
	for _, p := range ps {
		c.products[p.Slug] = p
	}
	return c
}

func (c *catalogStub) ProductBySlug(
	_ context.Context, slug string,
) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	p, ok := c.products[slug]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// orderStore is an in-memory OrderStorage. WithinTx serializes
// transactions and rolls state back when fn fails.
type orderStore struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	orders    map[uuid.UUID]domain.Order
	insertErr []error
	inserts   int
	locked    [][]string
	restored  []uuid.UUID
}

var _ port.OrderStorage = (*orderStore)(nil)

func newOrderStore(ps ...domain.Product) *orderStore {
	s := &orderStore{
		products: make(map[string]domain.Product),
		orders:   make(map[uuid.UUID]domain.Order),
	}
	for _, p := range ps {
		s.products[p.Slug] = p
	}
	return s
}

func (s *orderStore) WithinTx(
	ctx context.Context, fn func(context.Context, port.OrderTx) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := maps.Clone(s.products)
	orders := maps.Clone(s.orders)
	if err := fn(ctx, (*orderTx)(s)); err != nil {
		s.products = products
		s.orders = orders
		return err
	}
	return nil
}

func (s *orderStore) OrderByID(_ context.Context, id uuid.UUID) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *orderStore) OrderByNumber(_ context.Context, n string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Number == n {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (s *orderStore) ListOrders(
	_ context.Context, f domain.OrderFilter,
) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.UserID.Valid && o.UserID != f.UserID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *orderStore) stock(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[slug].Stock
}

func (s *orderStore) put(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// orderTx runs with orderStore.mu held.
type orderTx orderStore

func (tx *orderTx) LockProducts(
	_ context.Context, slugs []string,
) (map[string]domain.Product, error) {
	tx.locked = append(tx.locked, slugs)
	out := make(map[string]domain.Product, len(slugs))
	for _, slug := range slugs {
		if p, ok := tx.products[slug]; ok {
			out[slug] = p
		}
	}
	return out, nil
}

func (tx *orderTx) InsertOrder(_ context.Context, o *domain.Order) error {
	if len(tx.insertErr) != 0 {
		err := tx.insertErr[0]
		tx.insertErr = tx.insertErr[1:]
		if err != nil {
			return err
		}
	}
	tx.inserts++
	tx.orders[o.ID] = *o
	return nil
}

func (tx *orderTx) DecrementStock(_ context.Context, id uuid.UUID, q int) error {
	for slug, p := range tx.products {
		if p.ID != id {
			continue
		}
		if p.Stock < q {
			return domain.ErrOutOfStock
		}
		p.Stock -= q
		tx.products[slug] = p
		return nil
	}
	return domain.ErrProductNotFound
}

func (tx *orderTx) RestoreStock(_ context.Context, id uuid.UUID, q int) error {
	tx.restored = append(tx.restored, id)
	for slug, p := range tx.products {
		if p.ID == id {
			p.Stock += q
			tx.products[slug] = p
		}
	}
	return nil
}

func (tx *orderTx) LockOrder(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := tx.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (tx *orderTx) SetOrderStatus(
	_ context.Context, id uuid.UUID, st domain.OrderStatus,
) error {
	o, ok := tx.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = st
	tx.orders[id] = o
	return nil
}

type cartStore struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func newCartStore() *cartStore {
	return &cartStore{carts: make(map[string]domain.Cart)}
}

func (s *cartStore) SaveCart(_ context.Context, c domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Items = slices.Clone(c.Items)
	s.carts[c.ID] = c
	return nil
}

func (s *cartStore) Cart(_ context.Context, id string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	c.Items = slices.Clone(c.Items)
	return c, nil
}

func (s *cartStore) UpdateCart(
	_ context.Context, id string, fn func(*domain.Cart) error,
) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	c.Items = slices.Clone(c.Items)
	if err := fn(&c); err != nil {
		return domain.Cart{}, err
	}
	s.carts[id] = c
	c.Items = slices.Clone(c.Items)
	return c, nil
}

func (s *cartStore) DeleteCart(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
	return nil
}

type metricStore struct {
	mu   sync.Mutex
	rows []domain.EmailMetric
}

func (s *metricStore) AppendMetric(_ context.Context, m *domain.EmailMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *m)
	return nil
}

func (s *metricStore) MetricByID(_ context.Context, id uuid.UUID) (domain.EmailMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.rows {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.EmailMetric{}, domain.ErrEmailMetricNotFound
}

func (s *metricStore) LatestMetric(
	_ context.Context, c domain.MetricChain,
) (domain.EmailMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range slices.Backward(s.rows) {
		if m.Chain() == c {
			return m, nil
		}
	}
	return domain.EmailMetric{}, domain.ErrEmailMetricNotFound
}

func (s *metricStore) ListMetrics(
	_ context.Context, f domain.EmailMetricFilter,
) ([]domain.EmailMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EmailMetric
	for _, m := range s.rows {
		if f.Status == "" || m.Status == f.Status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *metricStore) DeleteMetric(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.rows)
	s.rows = slices.DeleteFunc(s.rows, func(m domain.EmailMetric) bool {
		return m.ID == id
	})
	if len(s.rows) == n {
		return domain.ErrEmailMetricNotFound
	}
	return nil
}

type MockNotificationPublisher struct {
	mock.Mock
}

func (m *MockNotificationPublisher) PublishNotification(
	ctx context.Context, n domain.Notification,
) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockMetricPublisher struct {
	mock.Mock
}

func (m *MockMetricPublisher) PublishMetric(
	ctx context.Context, em domain.EmailMetric,
) error {
	args := m.Called(ctx, em)
	return args.Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(
	ctx context.Context,
	recipient string,
	kind domain.NotificationKind,
	payload domain.Notification,
) error {
	args := m.Called(ctx, recipient, kind, payload)
	return args.Error(0)
}

type MockUserStorage struct {
	mock.Mock
}

func (m *MockUserStorage) UpsertUser(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStorage) DeleteUserByExternalID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStorage) UserByExternalID(
	ctx context.Context, id string,
) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserStorage) UserByID(
	ctx context.Context, id uuid.UUID,
) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserStorage) ListUsers(
	ctx context.Context, p domain.Page,
) ([]domain.User, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserStorage) SetUserRole(
	ctx context.Context, id uuid.UUID, r domain.Role,
) error {
	args := m.Called(ctx, id, r)
	return args.Error(0)
}

type MockEmailStatsReader struct {
	mock.Mock
}

func (m *MockEmailStatsReader) EmailStats(
	ctx context.Context, kind domain.NotificationKind,
) (domain.EmailStats, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(domain.EmailStats), args.Error(1)
}
