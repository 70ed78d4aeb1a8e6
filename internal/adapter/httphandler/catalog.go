package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// GET v1/categories (200 OK)
// GET v1/categories/{slug} (200 OK, 404 Not found)
// GET v1/products?category=&q=&limit=&offset= (200 OK)
// GET v1/products/{slug} (200 OK, 404 Not found)

type CatalogHandler struct {
	catalog port.CatalogReader
}

func RegisterCatalog(r chi.Router, catalog port.CatalogReader) {
	h := CatalogHandler{catalog}
	r.Get("/v1/categories", h.ListCategories)
	r.Get("/v1/categories/{slug}", h.GetCategory)
	r.Get("/v1/products", h.ListProducts)
	r.Get("/v1/products/{slug}", h.GetProduct)
}

func (h CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.ListCategories"
	log := slog.With("op", op)

	cs, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}

	out := make([]Category, len(cs))
	for i, c := range cs {
		out[i] = fromCategory(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetCategory"
	log := slog.With("op", op)

	cp, err := h.catalog.CategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, CategoryPage{
		Category: fromCategory(cp.Category),
		Products: fromProducts(cp.Products),
	})
}

func (h CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.ListProducts"
	log := slog.With("op", op)

	ps, err := h.catalog.ListProducts(r.Context(), productFilter(r))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromProducts(ps))
}

func (h CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetProduct"
	log := slog.With("op", op)

	p, err := h.catalog.ProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromProduct(p))
}

func productFilter(r *http.Request) domain.ProductFilter {
	q := r.URL.Query()
	return domain.ProductFilter{
		CategorySlug: q.Get("category"),
		Query:        q.Get("q"),
		Page:         pageFromQuery(r),
	}
}

// Admin: v1/admin/products and v1/admin/categories.

type CatalogAdminHandler struct {
	catalog port.CatalogManager
	reader  port.CatalogReader
}

func RegisterCatalogAdmin(
	r chi.Router, catalog port.CatalogManager, reader port.CatalogReader,
) {
	h := CatalogAdminHandler{catalog, reader}
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
}

func (h CatalogAdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.ListProducts"
	log := slog.With("op", op)

	ps, err := h.catalog.ListAllProducts(r.Context(), productFilter(r))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromProducts(ps))
}

func (h CatalogAdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.GetProduct"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	p, err := h.catalog.ProductByID(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromProduct(p))
}

func (h CatalogAdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.CreateProduct"
	log := slog.With("op", op)

	var in ProductInput
	if err := decodeBody(r, productLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), in.toDomain(uuid.Nil))
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("product created", "slug", p.Slug)
	writeJSON(w, http.StatusCreated, fromProduct(p))
}

func (h CatalogAdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.UpdateProduct"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	var in ProductInput
	if err := decodeBody(r, productLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), in.toDomain(id))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromProduct(p))
}

func (h CatalogAdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.DeleteProduct"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h CatalogAdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.ListCategories"
	log := slog.With("op", op)

	cs, err := h.reader.ListCategories(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}

	out := make([]Category, len(cs))
	for i, c := range cs {
		out[i] = fromCategory(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h CatalogAdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.CreateCategory"
	log := slog.With("op", op)

	var in CategoryInput
	if err := decodeBody(r, categoryLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	c, err := h.catalog.CreateCategory(r.Context(), in.toDomain(uuid.Nil))
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("category created", "slug", c.Slug)
	writeJSON(w, http.StatusCreated, fromCategory(c))
}

func (h CatalogAdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.UpdateCategory"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	var in CategoryInput
	if err := decodeBody(r, categoryLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	c, err := h.catalog.UpdateCategory(r.Context(), in.toDomain(id))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, fromCategory(c))
}

func (h CatalogAdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogAdminHandler.DeleteCategory"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, requestError{"invalid id"}
	}
	return id, nil
}
