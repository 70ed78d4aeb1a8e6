package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// Admin: v1/admin/email-metrics.

type EmailMetricsHandler struct {
	metrics port.EmailMetricsManager
}

func RegisterEmailMetrics(r chi.Router, metrics port.EmailMetricsManager) {
	h := EmailMetricsHandler{metrics}
	r.Route("/email-metrics", func(r chi.Router) {
		r.Get("/", h.ListMetrics)
		r.Get("/summary", h.Summary)
		r.Post("/{id}/retry", h.Retry)
		r.Delete("/{id}", h.DeleteMetric)
	})
}

func (h EmailMetricsHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "EmailMetricsHandler.ListMetrics"
	log := slog.With("op", op)

	q := r.URL.Query()
	f := domain.EmailMetricFilter{
		Status: domain.MetricStatus(q.Get("status")),
		Page:   pageFromQuery(r),
	}
	if s := q.Get("order_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid order_id")
			return
		}
		f.OrderID = uuid.NullUUID{UUID: id, Valid: true}
	}

	ms, err := h.metrics.ListMetrics(r.Context(), f)
	if err != nil {
		writeError(w, log, err)
		return
	}

	out := make([]EmailMetric, len(ms))
	for i, m := range ms {
		out[i] = fromMetric(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h EmailMetricsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	const op = "EmailMetricsHandler.Summary"
	log := slog.With("op", op)

	stats, err := h.metrics.Summary(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}

	out := make([]EmailStats, len(stats))
	for i, s := range stats {
		out[i] = EmailStats{
			Kind:   string(s.Kind),
			Sent:   s.Sent,
			Failed: s.Failed,
			Retry:  s.Retry,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h EmailMetricsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	const op = "EmailMetricsHandler.Retry"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	m, err := h.metrics.RetryMetric(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("notification retried", "metricID", id, "status", m.Status)
	writeJSON(w, http.StatusOK, fromMetric(m))
}

func (h EmailMetricsHandler) DeleteMetric(w http.ResponseWriter, r *http.Request) {
	const op = "EmailMetricsHandler.DeleteMetric"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	if err := h.metrics.DeleteMetric(r.Context(), id); err != nil {
		writeError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
