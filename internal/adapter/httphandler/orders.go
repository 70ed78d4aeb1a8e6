package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// POST v1/orders JSON checkout (201 Created, 400, 422 with violations, 429)
// GET v1/orders/{number}?email= (200 OK, 404 Not found)
// GET v1/me/orders Headers Authorization Bearer (200 OK, 401)

type OrdersHandler struct {
	placer port.OrderPlacer
	reader port.OrderReader
}

// RegisterOrders mounts the storefront order routes. checkout wraps the
// checkout endpoint, signedIn wraps the routes requiring a user.
func RegisterOrders(
	r chi.Router,
	placer port.OrderPlacer,
	reader port.OrderReader,
	checkout, signedIn func(http.Handler) http.Handler,
) {
	h := OrdersHandler{placer, reader}
	r.With(checkout).Post("/v1/orders", h.PlaceOrder)
	r.Get("/v1/orders/{number}", h.GuestOrder)
	r.With(signedIn).Get("/v1/me/orders", h.MyOrders)
}

func (h OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.PlaceOrder"
	log := slog.With("op", op)

	var in CheckoutInput
	if err := decodeBody(r, checkoutLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	var userID uuid.NullUUID
	if u, ok := UserFrom(r.Context()); ok {
		userID = uuid.NullUUID{UUID: u.ID, Valid: true}
		if in.Email == "" {
			in.Email = u.Email
		}
	}

	o, err := h.placer.PlaceOrder(r.Context(), in.toDomain(userID))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, fromOrder(o))
}

func (h OrdersHandler) GuestOrder(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.GuestOrder"
	log := slog.With("op", op)

	o, err := h.reader.OrderByNumber(
		r.Context(), chi.URLParam(r, "number"), r.URL.Query().Get("email"),
	)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOrder(o))
}

func (h OrdersHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.MyOrders"
	log := slog.With("op", op)

	u, ok := UserFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, errNoToken.Error())
		return
	}

	os, err := h.reader.UserOrders(r.Context(), u.ID, pageFromQuery(r))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOrders(os))
}

// Admin: v1/admin/orders.

type OrdersAdminHandler struct {
	orders port.OrderManager
}

func RegisterOrdersAdmin(r chi.Router, orders port.OrderManager) {
	h := OrdersAdminHandler{orders}
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateStatus)
	})
}

func (h OrdersAdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersAdminHandler.ListOrders"
	log := slog.With("op", op)

	os, err := h.orders.ListOrders(r.Context(), domain.OrderFilter{
		Status: domain.OrderStatus(r.URL.Query().Get("status")),
		Page:   pageFromQuery(r),
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOrders(os))
}

func (h OrdersAdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersAdminHandler.GetOrder"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	o, err := h.orders.OrderByID(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOrder(o))
}

func (h OrdersAdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersAdminHandler.UpdateStatus"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	var in StatusInput
	if err := decodeBody(r, statusLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, domain.OrderStatus(in.Status))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOrder(o))
}
