package notify

import (
	"context"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.Dispatcher = LogDispatcher{}

// A LogDispatcher only logs rendered messages. Used when no transport
// is configured.
type LogDispatcher struct {
	channel domain.Channel
}

func NewLogDispatcher(channel domain.Channel) LogDispatcher {
	return LogDispatcher{channel}
}

func (d LogDispatcher) Send(
	_ context.Context,
	recipient string,
	kind domain.NotificationKind,
	payload domain.Notification,
) error {
	const op = "LogDispatcher.Send"

	content, err := render(kind, payload)
	if err != nil {
		return err
	}

	slog.Info(
		"notification",
		"op", op,
		"channel", d.channel,
		"recipient", recipient,
		"subject", content.Subject,
	)
	return nil
}
