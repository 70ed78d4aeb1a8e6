package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.Dispatcher = WhatsAppDispatcher{}

type WhatsAppConfig struct {
	APIURL        string
	PhoneNumberID string
	Token         string
	Timeout       time.Duration
}

// A WhatsAppDispatcher posts text messages to the WhatsApp Cloud API.
type WhatsAppDispatcher struct {
	client   *http.Client
	endpoint string
	token    string
}

func NewWhatsAppDispatcher(cfg WhatsAppConfig) WhatsAppDispatcher {
	endpoint := strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.PhoneNumberID + "/messages"
	return WhatsAppDispatcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: endpoint,
		token:    cfg.Token,
	}
}

type waTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (d WhatsAppDispatcher) Send(
	ctx context.Context,
	recipient string,
	kind domain.NotificationKind,
	payload domain.Notification,
) error {
	const op = "WhatsAppDispatcher.Send"
	log := slog.With("op", op)

	content, err := render(kind, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := waTextMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(recipient, "+"),
		Type:             "text",
	}
	msg.Text.Body = content.Subject + "\n\n" + content.Body

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf(
			"%s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(detail),
		)
	}

	log.Debug("whatsapp message sent", "orderNumber", payload.OrderNumber, "kind", kind)
	return nil
}
