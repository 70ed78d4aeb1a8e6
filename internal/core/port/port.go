package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
)

// Inbound ports, implemented by the core services.

type CatalogReader interface {
	ListCategories(context.Context) ([]domain.Category, error)
	CategoryBySlug(context.Context, string) (domain.CategoryWithProducts, error)
	ListProducts(context.Context, domain.ProductFilter) ([]domain.Product, error)
	ProductBySlug(context.Context, string) (domain.Product, error)
}

type CatalogManager interface {
	ListAllProducts(context.Context, domain.ProductFilter) ([]domain.Product, error)
	ProductByID(context.Context, uuid.UUID) (domain.Product, error)
	CreateProduct(context.Context, domain.Product) (domain.Product, error)
	UpdateProduct(context.Context, domain.Product) (domain.Product, error)
	DeleteProduct(context.Context, uuid.UUID) error
	CreateCategory(context.Context, domain.Category) (domain.Category, error)
	UpdateCategory(context.Context, domain.Category) (domain.Category, error)
	DeleteCategory(context.Context, uuid.UUID) error
}

type OrderPlacer interface {
	PlaceOrder(context.Context, domain.PlaceOrder) (domain.Order, error)
}

type OrderReader interface {
	OrderByNumber(ctx context.Context, number, email string) (domain.Order, error)
	UserOrders(context.Context, uuid.UUID, domain.Page) ([]domain.Order, error)
}

type OrderManager interface {
	ListOrders(context.Context, domain.OrderFilter) ([]domain.Order, error)
	OrderByID(context.Context, uuid.UUID) (domain.Order, error)
	UpdateStatus(context.Context, uuid.UUID, domain.OrderStatus) (domain.Order, error)
}

type CartManager interface {
	CreateCart(context.Context) (domain.Cart, error)
	Cart(context.Context, string) (domain.PricedCart, error)
	SetItem(ctx context.Context, cartID, slug string, quantity int) (domain.PricedCart, error)
	RemoveItem(ctx context.Context, cartID, slug string) (domain.PricedCart, error)
	ClearCart(context.Context, string) error
}

type UserSyncer interface {
	SyncUser(context.Context, domain.User) (domain.User, error)
	DeleteUser(ctx context.Context, externalID string) error
}

type UserManager interface {
	UserByExternalID(context.Context, string) (domain.User, error)
	ListUsers(context.Context, domain.Page) ([]domain.User, error)
	SetRole(context.Context, uuid.UUID, domain.Role) (domain.User, error)
}

type EmailMetricsManager interface {
	ListMetrics(context.Context, domain.EmailMetricFilter) ([]domain.EmailMetric, error)
	DeleteMetric(context.Context, uuid.UUID) error
	RetryMetric(context.Context, uuid.UUID) (domain.EmailMetric, error)
	Summary(context.Context) ([]domain.EmailStats, error)
}

type NotificationHandler interface {
	HandleNotification(context.Context, domain.Notification) error
}

// Outbound ports, implemented by adapters.

// A ProductFinder resolves a product by slug or returns
// [domain.ErrProductNotFound].
type ProductFinder interface {
	ProductBySlug(context.Context, string) (domain.Product, error)
}

type CatalogStorage interface {
	ProductFinder
	ProductByID(context.Context, uuid.UUID) (domain.Product, error)
	ListProducts(context.Context, domain.ProductFilter) ([]domain.Product, error)
	CreateProduct(context.Context, *domain.Product) error
	UpdateProduct(context.Context, *domain.Product) error
	DeleteProduct(context.Context, uuid.UUID) error

	ListCategories(context.Context) ([]domain.Category, error)
	CategoryBySlug(context.Context, string) (domain.Category, error)
	CreateCategory(context.Context, *domain.Category) error
	UpdateCategory(context.Context, *domain.Category) error
	DeleteCategory(context.Context, uuid.UUID) error
}

// An OrderTx is the transaction-scoped view of the order storage.
// LockProducts and LockOrder take row locks held until commit.
type OrderTx interface {
	// LockProducts locks the products with the given slugs in id order
	// and returns them keyed by slug. Unknown slugs are absent from the
	// result.
	LockProducts(ctx context.Context, slugs []string) (map[string]domain.Product, error)
	InsertOrder(context.Context, *domain.Order) error
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	// RestoreStock callers touching several products go in id order.
	RestoreStock(ctx context.Context, productID uuid.UUID, quantity int) error
	LockOrder(context.Context, uuid.UUID) (domain.Order, error)
	SetOrderStatus(context.Context, uuid.UUID, domain.OrderStatus) error
}

type OrderStorage interface {
	WithinTx(context.Context, func(context.Context, OrderTx) error) error
	OrderByID(context.Context, uuid.UUID) (domain.Order, error)
	OrderByNumber(context.Context, string) (domain.Order, error)
	ListOrders(context.Context, domain.OrderFilter) ([]domain.Order, error)
}

type UserStorage interface {
	UpsertUser(context.Context, *domain.User) error
	DeleteUserByExternalID(context.Context, string) error
	UserByExternalID(context.Context, string) (domain.User, error)
	UserByID(context.Context, uuid.UUID) (domain.User, error)
	ListUsers(context.Context, domain.Page) ([]domain.User, error)
	SetUserRole(context.Context, uuid.UUID, domain.Role) error
}

type EmailMetricStorage interface {
	AppendMetric(context.Context, *domain.EmailMetric) error
	MetricByID(context.Context, uuid.UUID) (domain.EmailMetric, error)
	// LatestMetric returns the newest row of the delivery chain or
	// [domain.ErrEmailMetricNotFound].
	LatestMetric(context.Context, domain.MetricChain) (domain.EmailMetric, error)
	ListMetrics(context.Context, domain.EmailMetricFilter) ([]domain.EmailMetric, error)
	DeleteMetric(context.Context, uuid.UUID) error
}

type CartStorage interface {
	SaveCart(context.Context, domain.Cart) error
	Cart(context.Context, string) (domain.Cart, error)
	// UpdateCart runs fn on the current cart and stores the result
	// atomically. An error from fn aborts the update and is returned.
	UpdateCart(ctx context.Context, id string, fn func(*domain.Cart) error) (domain.Cart, error)
	DeleteCart(context.Context, string) error
}

type NotificationPublisher interface {
	PublishNotification(context.Context, domain.Notification) error
}

type MetricPublisher interface {
	PublishMetric(context.Context, domain.EmailMetric) error
}

// A Dispatcher delivers a notification over one channel.
type Dispatcher interface {
	Send(
		ctx context.Context,
		recipient string,
		kind domain.NotificationKind,
		payload domain.Notification,
	) error
}

type EmailStatsReader interface {
	EmailStats(context.Context, domain.NotificationKind) (domain.EmailStats, error)
}
