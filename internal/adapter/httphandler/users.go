package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	svix "github.com/svix/svix-webhooks/go"
	"github.com/xeipuuv/gojsonschema"
)

// POST v1/webhooks/auth svix-signed user event (204 No content, 400, 401)

const (
	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
	eventUserDeleted = "user.deleted"
)

type (
	userEvent struct {
		Type string        `json:"type"`
		Data userEventData `json:"data"`
	}

	userEventData struct {
		ID                    string              `json:"id"`
		FirstName             string              `json:"first_name"`
		LastName              string              `json:"last_name"`
		ImageURL              string              `json:"image_url"`
		PrimaryEmailAddressID string              `json:"primary_email_address_id"`
		EmailAddresses        []userEventEmail    `json:"email_addresses"`
		PrimaryPhoneNumberID  string              `json:"primary_phone_number_id"`
		PhoneNumbers          []userEventPhoneNum `json:"phone_numbers"`
	}

	userEventEmail struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	}

	userEventPhoneNum struct {
		ID          string `json:"id"`
		PhoneNumber string `json:"phone_number"`
	}
)

func (d userEventData) toDomain() domain.User {
	u := domain.User{
		ExternalID: d.ID,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		ImageURL:   d.ImageURL,
	}
	for i, e := range d.EmailAddresses {
		if i == 0 || e.ID == d.PrimaryEmailAddressID {
			u.Email = e.EmailAddress
		}
	}
	for i, p := range d.PhoneNumbers {
		if i == 0 || p.ID == d.PrimaryPhoneNumberID {
			u.Phone = p.PhoneNumber
		}
	}
	return u
}

// A WebhookVerifier checks the signature headers of a webhook payload.
type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

func NewSvixVerifier(secret string) (WebhookVerifier, error) {
	const op = "NewSvixVerifier"

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return wh, nil
}

type UserWebhookHandler struct {
	users    port.UserSyncer
	verifier WebhookVerifier
}

func RegisterUserWebhook(
	r chi.Router, users port.UserSyncer, verifier WebhookVerifier,
) {
	h := UserWebhookHandler{users, verifier}
	r.Post("/v1/webhooks/auth", h.HandleEvent)
}

func (h UserWebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	const op = "UserWebhookHandler.HandleEvent"
	log := slog.With("op", op)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.verifier.Verify(payload, r.Header); err != nil {
		log.Warn("rejected webhook", "err", err)
		writeMessage(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	result, err := gojsonschema.Validate(
		userEventLoader, gojsonschema.NewBytesLoader(payload),
	)
	if err != nil || !result.Valid() {
		writeMessage(w, http.StatusBadRequest, "invalid event")
		return
	}

	var ev userEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid event")
		return
	}

	switch ev.Type {
	case eventUserCreated, eventUserUpdated:
		u, err := h.users.SyncUser(r.Context(), ev.Data.toDomain())
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("user synced", "event", ev.Type, "userID", u.ID)
	case eventUserDeleted:
		err := h.users.DeleteUser(r.Context(), ev.Data.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeError(w, log, err)
			return
		}
		log.Info("user deleted", "externalID", ev.Data.ID)
	default:
		log.Debug("ignored event", "event", ev.Type)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Admin: v1/admin/users.

type UsersAdminHandler struct {
	users port.UserManager
}

func RegisterUsersAdmin(r chi.Router, users port.UserManager) {
	h := UsersAdminHandler{users}
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Patch("/{id}/role", h.SetRole)
	})
}

func (h UsersAdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	const op = "UsersAdminHandler.ListUsers"
	log := slog.With("op", op)

	us, err := h.users.ListUsers(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, log, err)
		return
	}

	out := make([]User, len(us))
	for i, u := range us {
		out[i] = fromUser(u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h UsersAdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	const op = "UsersAdminHandler.SetRole"
	log := slog.With("op", op)

	id, err := idParam(r)
	if err != nil {
		writeError(w, log, err)
		return
	}

	var in RoleInput
	if err := decodeBody(r, roleLoader, &in); err != nil {
		writeError(w, log, err)
		return
	}

	u, err := h.users.SetRole(r.Context(), id, domain.Role(in.Role))
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("role changed", "userID", u.ID, "role", u.Role)
	writeJSON(w, http.StatusOK, fromUser(u))
}
