package httphandler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
)

const testSecret = "test-secret"

type verifierFunc func([]byte, http.Header) error

func (f verifierFunc) Verify(payload []byte, headers http.Header) error {
	return f(payload, headers)
}

var acceptAll = verifierFunc(func([]byte, http.Header) error { return nil })

func newRouter(
	t *testing.T, s *MockServices, v httphandler.WebhookVerifier,
) http.Handler {
	t.Helper()
	auth, err := httphandler.NewAuthenticator(
		httphandler.AuthConfig{Secret: testSecret}, s,
	)
	require.NoError(t, err)
	limiter := httphandler.NewIPRateLimiter(httphandler.RateConfig{RPS: 1, Burst: 2})
	if v == nil {
		v = acceptAll
	}
	return httphandler.NewRouter(httphandler.Services{
		CatalogReader:  s,
		CatalogManager: s,
		OrderPlacer:    s,
		OrderReader:    s,
		OrderManager:   s,
		Carts:          s,
		UserSyncer:     s,
		UserManager:    s,
		EmailMetrics:   s,
	}, auth, limiter, v)
}

func signToken(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func serve(
	h http.Handler, method, path, body string, headers ...string,
) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httphandler.ErrorResponse {
	t.Helper()
	var resp httphandler.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

const checkoutBody = `{
  "email": "ana@example.com",
  "items": [{"slug": "tee", "price": "10.00", "quantity": 2}],
  "contact": {"first_name": "Ana"},
  "shipping_address": {"line1": "Main 1", "city": "CDMX", "country": "MX"}
}`

func placedOrder() domain.Order {
	return domain.Order{
		ID:     uuid.New(),
		Number: "ORD-20260101-ABCDEFGH",
		Status: domain.OrderPending,
		Totals: domain.Totals{Total: decimal.RequireFromString("173.20")},
		Email:  "ana@example.com",
	}
}

func TestHealthz(t *testing.T) {
	h := newRouter(t, new(MockServices), nil)

	w := serve(h, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProductNotFound(t *testing.T) {
	s := new(MockServices)
	s.On("ProductBySlug", mock.Anything, "missing").Return(
		domain.Product{},
		fmt.Errorf("CatalogService.ProductBySlug: %w", domain.ErrProductNotFound),
	)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodGet, "/v1/products/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", decodeError(t, w).Error)
}

func TestListProductsPassesFilter(t *testing.T) {
	s := new(MockServices)
	want := domain.ProductFilter{
		CategorySlug: "shirts",
		Query:        "blue",
		Page:         domain.Page{Limit: 5, Offset: 10},
	}
	s.On("ListProducts", mock.Anything, want).Return(
		[]domain.Product{{Slug: "blue-tee", Status: domain.ProductActive}}, nil,
	)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodGet, "/v1/products?category=shirts&q=blue&limit=5&offset=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	var ps []httphandler.Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ps))
	require.Len(t, ps, 1)
	assert.Equal(t, "blue-tee", ps[0].Slug)
	assert.Equal(t, []string{}, ps[0].Features)
	s.AssertExpectations(t)
}

func TestCheckoutGuest(t *testing.T) {
	s := new(MockServices)
	order := placedOrder()
	s.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(cmd domain.PlaceOrder) bool {
		return !cmd.UserID.Valid &&
			cmd.Email == "ana@example.com" &&
			len(cmd.Items) == 1 &&
			cmd.Items[0].Price.Equal(decimal.RequireFromString("10")) &&
			cmd.Items[0].Quantity == 2
	})).Return(order, nil)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodPost, "/v1/orders", checkoutBody)

	require.Equal(t, http.StatusCreated, w.Code)
	var got httphandler.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, order.Number, got.Number)
	assert.True(t, got.Total.Equal(order.Totals.Total))
	s.AssertExpectations(t)
}

func TestCheckoutLinksSignedInUser(t *testing.T) {
	s := new(MockServices)
	user := domain.User{
		ID: uuid.New(), ExternalID: "user_1", Email: "u@example.com",
		Role: domain.RoleUser,
	}
	s.On("UserByExternalID", mock.Anything, "user_1").Return(user, nil)
	s.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(cmd domain.PlaceOrder) bool {
		return cmd.UserID.Valid && cmd.UserID.UUID == user.ID &&
			cmd.Email == user.Email
	})).Return(placedOrder(), nil)
	h := newRouter(t, s, nil)

	body := strings.Replace(checkoutBody, `"email": "ana@example.com",`, "", 1)
	w := serve(h, http.MethodPost, "/v1/orders", body,
		bearer(signToken(t, "user_1", time.Minute))...)

	assert.Equal(t, http.StatusCreated, w.Code)
	s.AssertExpectations(t)
}

func TestCheckoutViolations(t *testing.T) {
	s := new(MockServices)
	vErr := &domain.ValidationError{}
	vErr.Add("tee", domain.ReasonInsufficientStock, "Stock insuficiente para tee: 2 solicitados, 1 disponibles")
	vErr.Add("cap", domain.ReasonNotFound, "Producto no encontrado: cap")
	s.On("PlaceOrder", mock.Anything, mock.Anything).Return(
		domain.Order{}, fmt.Errorf("OrderService.PlaceOrder: %w", vErr),
	)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodPost, "/v1/orders", checkoutBody)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Violations, 2)
	assert.Equal(t, "tee", resp.Violations[0].Slug)
	assert.Equal(t, string(domain.ReasonInsufficientStock), resp.Violations[0].Reason)
	assert.Equal(t, "cap", resp.Violations[1].Slug)
}

func TestCheckoutRejectsInvalidBody(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ctype  string
		status int
	}{
		{
			name:   "missing shipping address",
			body:   `{"items": [], "contact": {"first_name": "Ana"}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   strings.Replace(checkoutBody, `"email"`, `"coupon": "X", "email"`, 1),
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed json",
			body:   `{"items": [`,
			status: http.StatusBadRequest,
		},
		{
			name:   "not json",
			body:   checkoutBody,
			ctype:  "text/plain",
			status: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockServices)
			h := newRouter(t, s, nil)

			var headers []string
			if tt.ctype != "" {
				headers = []string{"Content-Type", tt.ctype}
			}
			w := serve(h, http.MethodPost, "/v1/orders", tt.body, headers...)

			assert.Equal(t, tt.status, w.Code)
			s.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutRateLimited(t *testing.T) {
	s := new(MockServices)
	s.On("PlaceOrder", mock.Anything, mock.Anything).Return(placedOrder(), nil)
	h := newRouter(t, s, nil)

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(h, http.MethodPost, "/v1/orders", checkoutBody).Code
	}

	assert.Equal(t, []int{
		http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests,
	}, codes)
	s.AssertNumberOfCalls(t, "PlaceOrder", 2)
}

func TestGuestOrderLookup(t *testing.T) {
	s := new(MockServices)
	order := placedOrder()
	s.On("OrderByNumber", mock.Anything, order.Number, "ana@example.com").
		Return(order, nil)
	s.On("OrderByNumber", mock.Anything, order.Number, "other@example.com").
		Return(domain.Order{}, domain.ErrOrderNotFound)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodGet, "/v1/orders/"+order.Number+"?email=ana@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/v1/orders/"+order.Number+"?email=other@example.com", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMyOrdersRequiresToken(t *testing.T) {
	s := new(MockServices)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodGet, "/v1/me/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodGet, "/v1/me/orders", "",
		bearer(signToken(t, "user_1", -time.Minute))...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.AssertNotCalled(t, "UserOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestMyOrders(t *testing.T) {
	s := new(MockServices)
	user := domain.User{ID: uuid.New(), ExternalID: "user_1", Role: domain.RoleUser}
	s.On("UserByExternalID", mock.Anything, "user_1").Return(user, nil)
	s.On("UserOrders", mock.Anything, user.ID, domain.Page{}).
		Return([]domain.Order{placedOrder()}, nil)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodGet, "/v1/me/orders", "",
		bearer(signToken(t, "user_1", time.Minute))...)

	require.Equal(t, http.StatusOK, w.Code)
	var got []httphandler.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 1)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := new(MockServices)
	s.On("UserByExternalID", mock.Anything, "user_1").Return(
		domain.User{ID: uuid.New(), Role: domain.RoleUser}, nil,
	)
	s.On("UserByExternalID", mock.Anything, "admin_1").Return(
		domain.User{ID: uuid.New(), Role: domain.RoleAdmin}, nil,
	)
	s.On("UserByExternalID", mock.Anything, "ghost").Return(
		domain.User{}, domain.ErrUserNotFound,
	)
	s.On("ListOrders", mock.Anything, domain.OrderFilter{
		Status: domain.OrderPending,
		Page:   domain.Page{Limit: 10},
	}).Return([]domain.Order{}, nil)
	h := newRouter(t, s, nil)
	path := "/v1/admin/orders?status=PENDING&limit=10"

	w := serve(h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodGet, path, "", bearer(signToken(t, "ghost", time.Minute))...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodGet, path, "", bearer(signToken(t, "user_1", time.Minute))...)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(h, http.MethodGet, path, "", bearer(signToken(t, "admin_1", time.Minute))...)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func adminRouter(t *testing.T, s *MockServices) (http.Handler, []string) {
	t.Helper()
	s.On("UserByExternalID", mock.Anything, "admin_1").Return(
		domain.User{ID: uuid.New(), Role: domain.RoleAdmin}, nil,
	)
	return newRouter(t, s, nil), bearer(signToken(t, "admin_1", time.Minute))
}

func TestAdminUpdateStatus(t *testing.T) {
	id := uuid.New()

	t.Run("invalid transition", func(t *testing.T) {
		s := new(MockServices)
		s.On("UpdateStatus", mock.Anything, id, domain.OrderPending).Return(
			domain.Order{},
			fmt.Errorf("OrderService.UpdateStatus: %w", domain.ErrInvalidTransition),
		)
		h, auth := adminRouter(t, s)

		w := serve(h, http.MethodPatch, "/v1/admin/orders/"+id.String()+"/status",
			`{"status": "PENDING"}`, auth...)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "invalid order status transition", decodeError(t, w).Error)
	})

	t.Run("unknown status", func(t *testing.T) {
		s := new(MockServices)
		s.On("UpdateStatus", mock.Anything, id, domain.OrderStatus("LOST")).Return(
			domain.Order{},
			fmt.Errorf("OrderService.UpdateStatus: %w: unknown status %q",
				domain.ErrInvalidInput, "LOST"),
		)
		h, auth := adminRouter(t, s)

		w := serve(h, http.MethodPatch, "/v1/admin/orders/"+id.String()+"/status",
			`{"status": "LOST"}`, auth...)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("shipped", func(t *testing.T) {
		s := new(MockServices)
		o := placedOrder()
		o.ID = id
		o.Status = domain.OrderShipped
		s.On("UpdateStatus", mock.Anything, id, domain.OrderShipped).Return(o, nil)
		h, auth := adminRouter(t, s)

		w := serve(h, http.MethodPatch, "/v1/admin/orders/"+id.String()+"/status",
			`{"status": "SHIPPED"}`, auth...)

		require.Equal(t, http.StatusOK, w.Code)
		var got httphandler.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "SHIPPED", got.Status)
	})

	t.Run("bad id", func(t *testing.T) {
		s := new(MockServices)
		h, auth := adminRouter(t, s)

		w := serve(h, http.MethodPatch, "/v1/admin/orders/42/status",
			`{"status": "SHIPPED"}`, auth...)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminCreateProductSlugTaken(t *testing.T) {
	s := new(MockServices)
	catID := uuid.New()
	s.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		return p.Slug == "tee" && p.Status == domain.ProductActive &&
			p.CategoryID == catID && p.Price.Equal(decimal.RequireFromString("19.9"))
	})).Return(domain.Product{}, fmt.Errorf("CatalogService.CreateProduct: %w", domain.ErrSlugTaken))
	h, auth := adminRouter(t, s)

	body := `{"slug": "tee", "name": "Tee", "price": 19.90, "category_id": "` + catID.String() + `"}`
	w := serve(h, http.MethodPost, "/v1/admin/products", body, auth...)

	assert.Equal(t, http.StatusConflict, w.Code)
	s.AssertExpectations(t)
}

func TestAdminEmailMetrics(t *testing.T) {
	s := new(MockServices)
	metricID := uuid.New()
	orderID := uuid.New()
	s.On("ListMetrics", mock.Anything, domain.EmailMetricFilter{
		Status:  domain.MetricFailed,
		OrderID: uuid.NullUUID{UUID: orderID, Valid: true},
	}).Return([]domain.EmailMetric{{ID: metricID, Status: domain.MetricFailed}}, nil)
	s.On("RetryMetric", mock.Anything, metricID).Return(
		domain.EmailMetric{}, fmt.Errorf("NotificationService.RetryMetric: %w", domain.ErrRetryNotAllowed),
	)
	s.On("Summary", mock.Anything).Return([]domain.EmailStats{
		{Kind: domain.KindStatusUpdate, Sent: 3, Failed: 1},
	}, nil)
	s.On("DeleteMetric", mock.Anything, metricID).Return(nil)
	h, auth := adminRouter(t, s)

	w := serve(h, http.MethodGet,
		"/v1/admin/email-metrics?status=failed&order_id="+orderID.String(), "", auth...)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodPost, "/v1/admin/email-metrics/"+metricID.String()+"/retry", "", auth...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(h, http.MethodGet, "/v1/admin/email-metrics/summary", "", auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`[{"type":"STATUS_UPDATE","sent":3,"failed":1,"retry":0}]`, w.Body.String())

	w = serve(h, http.MethodDelete, "/v1/admin/email-metrics/"+metricID.String(), "", auth...)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.AssertExpectations(t)
}

func TestCartSetItem(t *testing.T) {
	s := new(MockServices)
	s.On("SetItem", mock.Anything, "c1", "tee", 3).Return(domain.PricedCart{
		ID: "c1",
		Lines: []domain.CartLine{{
			Slug: "tee", Quantity: 3, Available: true,
			Price:     decimal.RequireFromString("10"),
			LineTotal: decimal.RequireFromString("30"),
		}},
		Subtotal: decimal.RequireFromString("30"),
	}, nil)
	s.On("SetItem", mock.Anything, "c1", "cap", 9).Return(
		domain.PricedCart{}, fmt.Errorf("CartService.SetItem: %w", domain.ErrOutOfStock),
	)
	h := newRouter(t, s, nil)

	w := serve(h, http.MethodPut, "/v1/carts/c1/items", `{"slug": "tee", "quantity": 3}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got httphandler.Cart
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("30")))

	w = serve(h, http.MethodPut, "/v1/carts/c1/items", `{"slug": "cap", "quantity": 9}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(h, http.MethodPut, "/v1/carts/c1/items", `{"slug": "tee", "quantity": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const userCreatedEvent = `{
  "type": "user.created",
  "data": {
    "id": "user_1",
    "first_name": "Ana",
    "primary_email_address_id": "e2",
    "email_addresses": [
      {"id": "e1", "email_address": "old@example.com"},
      {"id": "e2", "email_address": "ana@example.com"}
    ]
  }
}`

func TestUserWebhook(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		s := new(MockServices)
		reject := verifierFunc(func([]byte, http.Header) error {
			return errors.New("no matching signature")
		})
		h := newRouter(t, s, reject)

		w := serve(h, http.MethodPost, "/v1/webhooks/auth", userCreatedEvent)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		s.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
	})

	t.Run("user created", func(t *testing.T) {
		s := new(MockServices)
		s.On("SyncUser", mock.Anything, domain.User{
			ExternalID: "user_1",
			Email:      "ana@example.com",
			FirstName:  "Ana",
		}).Return(domain.User{ID: uuid.New()}, nil)
		h := newRouter(t, s, nil)

		w := serve(h, http.MethodPost, "/v1/webhooks/auth", userCreatedEvent)

		assert.Equal(t, http.StatusNoContent, w.Code)
		s.AssertExpectations(t)
	})

	t.Run("user deleted twice", func(t *testing.T) {
		s := new(MockServices)
		s.On("DeleteUser", mock.Anything, "user_1").Return(
			fmt.Errorf("UserService.DeleteUser: %w", domain.ErrUserNotFound),
		)
		h := newRouter(t, s, nil)

		w := serve(h, http.MethodPost, "/v1/webhooks/auth",
			`{"type": "user.deleted", "data": {"id": "user_1"}}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("signed with svix", func(t *testing.T) {
		const secret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"
		verifier, err := httphandler.NewSvixVerifier(secret)
		require.NoError(t, err)
		wh, err := svix.NewWebhook(secret)
		require.NoError(t, err)

		now := time.Now()
		sig, err := wh.Sign("msg_1", now, []byte(userCreatedEvent))
		require.NoError(t, err)

		s := new(MockServices)
		s.On("SyncUser", mock.Anything, mock.Anything).Return(domain.User{}, nil)
		h := newRouter(t, s, verifier)

		w := serve(h, http.MethodPost, "/v1/webhooks/auth", userCreatedEvent,
			"svix-id", "msg_1",
			"svix-timestamp", strconv.FormatInt(now.Unix(), 10),
			"svix-signature", sig,
		)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = serve(h, http.MethodPost, "/v1/webhooks/auth", userCreatedEvent,
			"svix-id", "msg_1",
			"svix-timestamp", strconv.FormatInt(now.Unix(), 10),
			"svix-signature", "v1,Zm9yZ2Vk",
		)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
