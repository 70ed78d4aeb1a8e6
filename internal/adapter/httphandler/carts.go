package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niksmo/storefront/internal/core/port"
)

// POST v1/carts (201 Created)
// GET v1/carts/{cartID} (200 OK, 404 Not found)
// PUT v1/carts/{cartID}/items JSON {"slug" string, "quantity" int} (200 OK, 400, 404, 409)
// DELETE v1/carts/{cartID}/items/{slug} (200 OK, 404 Not found)
// DELETE v1/carts/{cartID} (204 No content)

type CartsHandler struct {
	carts port.CartManager
}

func RegisterCarts(r chi.Router, carts port.CartManager) {
	h := CartsHandler{carts}
	r.Route("/v1/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Get("/{cartID}", h.GetCart)
		r.Put("/{cartID}/items", h.SetItem)
		r.Delete("/{cartID}/items/{slug}", h.RemoveItem)
		r.Delete("/{cartID}", h.ClearCart)
	})
}

func (h CartsHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartsHandler.CreateCart"
	log := slog.With("op", op)

	c, err := h.carts.CreateCart(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, Cart{ID: c.ID, Lines: []CartLine{}})
}

func (h CartsHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartsHandler.GetCart"
	log := slog.With("op", op)

	c, err := h.carts.Cart(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromCart(c))
}

func (h CartsHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartsHandler.SetItem"
	log := slog.With("op", op)

	var in CartItemInput
	if err := decodeBody(r, cartItemLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	c, err := h.carts.SetItem(
		r.Context(), chi.URLParam(r, "cartID"), in.Slug, in.Quantity,
	)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromCart(c))
}

func (h CartsHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartsHandler.RemoveItem"
	log := slog.With("op", op)

	c, err := h.carts.RemoveItem(
		r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "slug"),
	)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromCart(c))
}

func (h CartsHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartsHandler.ClearCart"
	log := slog.With("op", op)

	if err := h.carts.ClearCart(r.Context(), chi.URLParam(r, "cartID")); err != nil {
		writeError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
