package httphandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/niksmo/storefront/internal/core/port"
)

// Services groups the core services served over HTTP.
type Services struct {
	CatalogReader  port.CatalogReader
	CatalogManager port.CatalogManager
	OrderPlacer    port.OrderPlacer
	OrderReader    port.OrderReader
	OrderManager   port.OrderManager
	Carts          port.CartManager
	UserSyncer     port.UserSyncer
	UserManager    port.UserManager
	EmailMetrics   port.EmailMetricsManager
}

func NewRouter(
	s Services,
	auth Authenticator,
	checkoutLimiter *IPRateLimiter,
	webhook WebhookVerifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(AllowJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	RegisterCatalog(r, s.CatalogReader)
	RegisterCarts(r, s.Carts)
	RegisterOrders(
		r, s.OrderPlacer, s.OrderReader,
		chi.Chain(checkoutLimiter.Middleware, auth.Optional).Handler,
		auth.Required,
	)
	RegisterUserWebhook(r, s.UserSyncer, webhook)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(auth.Required, RequireAdmin)
		RegisterCatalogAdmin(r, s.CatalogManager, s.CatalogReader)
		RegisterOrdersAdmin(r, s.OrderManager)
		RegisterUsersAdmin(r, s.UserManager)
		RegisterEmailMetrics(r, s.EmailMetrics)
	})

	return r
}
