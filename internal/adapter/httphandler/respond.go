package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

// A requestError is a malformed or schema-invalid request body.
type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "err", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		vErr   *domain.ValidationError
		reqErr requestError
	)
	switch {
	case errors.As(err, &vErr):
		resp := ErrorResponse{
			Error:      "order items are not valid",
			Violations: make([]Violation, len(vErr.Violations)),
		}
		for i, v := range vErr.Violations {
			resp.Violations[i] = Violation{
				Slug:    v.Slug,
				Reason:  string(v.Reason),
				Message: v.Message,
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &reqErr):
		writeMessage(w, http.StatusBadRequest, reqErr.msg)
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, publicMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, publicMessage(err))
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRetryNotAllowed):
		writeMessage(w, http.StatusConflict, publicMessage(err))
	default:
		log.Error("request failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// publicMessage strips the "op: " prefixes added while wrapping.
func publicMessage(err error) string {
	msg := err.Error()
	for {
		i := strings.Index(msg, ": ")
		if i < 0 || strings.ContainsAny(msg[:i], " ") {
			return msg
		}
		msg = msg[i+2:]
	}
}

// decodeBody validates the request body against schema and decodes it into v.
func decodeBody(r *http.Request, schema gojsonschema.JSONLoader, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return requestError{"failed to read body"}
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return requestError{"invalid JSON data"}
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return requestError{strings.Join(msgs, "; ")}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return requestError{"invalid JSON data"}
	}
	return nil
}

// pageFromQuery reads limit and offset; malformed values fall back to zero
// and are clamped by the services.
func pageFromQuery(r *http.Request) domain.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return domain.Page{Limit: limit, Offset: offset}
}
