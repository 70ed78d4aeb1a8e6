package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/wneessen/go-mail"
)

var _ port.Dispatcher = EmailDispatcher{}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// An EmailDispatcher sends notifications through an SMTP relay.
type EmailDispatcher struct {
	sender mailSender
	from   string
}

func NewEmailDispatcher(cfg SMTPConfig) (EmailDispatcher, error) {
	const op = "NewEmailDispatcher"

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	cl, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return EmailDispatcher{}, fmt.Errorf("%s: %w", op, err)
	}
	return EmailDispatcher{sender: cl, from: cfg.From}, nil
}

func (d EmailDispatcher) Send(
	ctx context.Context,
	recipient string,
	kind domain.NotificationKind,
	payload domain.Notification,
) error {
	const op = "EmailDispatcher.Send"
	log := slog.With("op", op)

	msg, err := d.buildMsg(recipient, kind, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := d.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("email sent", "orderNumber", payload.OrderNumber, "kind", kind)
	return nil
}

func (d EmailDispatcher) buildMsg(
	recipient string, kind domain.NotificationKind, n domain.Notification,
) (*mail.Msg, error) {
	content, err := render(kind, n)
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(d.from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := m.To(recipient); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	m.Subject(content.Subject)
	m.SetBodyString(mail.TypeTextPlain, content.Body)
	return m, nil
}
