package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.NotificationHandler = (*NotificationService)(nil)
var _ port.EmailMetricsManager = (*NotificationService)(nil)

const DefaultMaxAttempts = 5

var channelOrder = []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp}

type NotificationService struct {
	dispatchers map[domain.Channel]port.Dispatcher
	metrics     port.EmailMetricStorage
	metricPub   port.MetricPublisher
	orders      port.OrderStorage
	stats       port.EmailStatsReader
	maxAttempts int
	now         func() time.Time
}

func NewNotificationService(
	dispatchers map[domain.Channel]port.Dispatcher,
	metrics port.EmailMetricStorage,
	metricPub port.MetricPublisher,
	orders port.OrderStorage,
	stats port.EmailStatsReader,
	maxAttempts int,
) NotificationService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return NotificationService{
		dispatchers: dispatchers,
		metrics:     metrics,
		metricPub:   metricPub,
		orders:      orders,
		stats:       stats,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// HandleNotification delivers n over every configured channel that has a
// recipient. Delivery failures are recorded as metrics, not returned.
func (s NotificationService) HandleNotification(
	ctx context.Context, n domain.Notification,
) error {
	const op = "NotificationService.HandleNotification"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n.Attempt <= 0 {
		n.Attempt = 1
	}

	for _, ch := range channelOrder {
		if _, ok := s.dispatchers[ch]; !ok {
			continue
		}
		recipient := recipientFor(ch, n)
		if recipient == "" {
			continue
		}
		s.deliver(ctx, ch, recipient, n, domain.MetricFailed)
	}
	return nil
}

// RetryMetric re-sends the notification recorded by a failed metric row.
// A new row with the next attempt number is appended; the original row is
// left untouched.
//
// Only the newest row of a delivery chain can be retried, and only while
// the chain is undelivered and below the attempt limit. Retries run with
// the order row locked, so concurrent retries of one order are serialized.
func (s NotificationService) RetryMetric(
	ctx context.Context, id uuid.UUID,
) (domain.EmailMetric, error) {
	const op = "NotificationService.RetryMetric"

	m, err := s.metrics.MetricByID(ctx, id)
	if err != nil {
		return domain.EmailMetric{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkRetry(m); err != nil {
		return domain.EmailMetric{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, ok := s.dispatchers[m.Channel]; !ok {
		return domain.EmailMetric{}, fmt.Errorf(
			"%s: %w: channel %s disabled", op, domain.ErrRetryNotAllowed, m.Channel,
		)
	}

	var retried domain.EmailMetric
	err = s.orders.WithinTx(ctx, func(ctx context.Context, tx port.OrderTx) error {
		o, err := tx.LockOrder(ctx, m.OrderID)
		if err != nil {
			return err
		}

		latest, err := s.metrics.LatestMetric(ctx, m.Chain())
		if err != nil {
			return err
		}
		if latest.ID != m.ID {
			if latest.Status == domain.MetricSent {
				return fmt.Errorf("%w: delivered on attempt %d",
					domain.ErrRetryNotAllowed, latest.Attempt)
			}
			return fmt.Errorf("%w: superseded by attempt %d",
				domain.ErrRetryNotAllowed, latest.Attempt)
		}

		n := domain.Notification{
			Kind:         m.Kind,
			OrderID:      o.ID,
			OrderNumber:  o.Number,
			Recipient:    m.Recipient,
			Phone:        o.Contact.Phone,
			CustomerName: o.Contact.FullName(),
			Status:       o.Status,
			Total:        o.Totals.Total,
			Attempt:      m.Attempt + 1,
			CreatedAt:    s.now(),
		}
		retried = s.deliver(ctx, m.Channel, m.Recipient, n, domain.MetricRetry)
		return nil
	})
	if err != nil {
		return domain.EmailMetric{}, fmt.Errorf("%s: %w", op, err)
	}
	return retried, nil
}

func (s NotificationService) checkRetry(m domain.EmailMetric) error {
	if m.Status == domain.MetricSent {
		return fmt.Errorf("%w: already sent", domain.ErrRetryNotAllowed)
	}
	if m.Attempt >= s.maxAttempts {
		return fmt.Errorf("%w: %d attempts made", domain.ErrRetryNotAllowed, m.Attempt)
	}
	return nil
}

func (s NotificationService) deliver(
	ctx context.Context,
	ch domain.Channel,
	recipient string,
	n domain.Notification,
	failStatus domain.MetricStatus,
) domain.EmailMetric {
	const op = "NotificationService.deliver"
	log := slog.With(
		"op", op,
		"orderNumber", n.OrderNumber,
		"kind", n.Kind,
		"channel", ch,
		"attempt", n.Attempt,
	)

	m := domain.EmailMetric{
		ID:        uuid.New(),
		Kind:      n.Kind,
		Channel:   ch,
		Recipient: recipient,
		OrderID:   n.OrderID,
		Status:    domain.MetricSent,
		Attempt:   n.Attempt,
		CreatedAt: s.now(),
	}

	if err := s.dispatchers[ch].Send(ctx, recipient, n.Kind, n); err != nil {
		m.Status = failStatus
		m.Error = err.Error()
		log.Warn("failed to deliver notification", "err", err)
	} else {
		log.Info("notification delivered")
	}

	if err := s.metrics.AppendMetric(ctx, &m); err != nil {
		log.Error("failed to record metric", "err", err)
	}
	if err := s.metricPub.PublishMetric(ctx, m); err != nil {
		log.Error("failed to publish metric", "err", err)
	}
	return m
}

func recipientFor(ch domain.Channel, n domain.Notification) string {
	switch ch {
	case domain.ChannelEmail:
		return n.Recipient
	case domain.ChannelWhatsApp:
		return n.Phone
	}
	return ""
}

func (s NotificationService) ListMetrics(
	ctx context.Context, f domain.EmailMetricFilter,
) ([]domain.EmailMetric, error) {
	const op = "NotificationService.ListMetrics"

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf(
			"%s: %w: unknown status %q", op, domain.ErrInvalidInput, f.Status,
		)
	}
	f.Page = f.Page.Normalize()

	ms, err := s.metrics.ListMetrics(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ms, nil
}

func (s NotificationService) DeleteMetric(ctx context.Context, id uuid.UUID) error {
	const op = "NotificationService.DeleteMetric"

	if err := s.metrics.DeleteMetric(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Summary returns aggregated delivery counters, one entry per kind.
func (s NotificationService) Summary(
	ctx context.Context,
) ([]domain.EmailStats, error) {
	const op = "NotificationService.Summary"

	out := make([]domain.EmailStats, 0, len(domain.NotificationKinds))
	for _, kind := range domain.NotificationKinds {
		st, err := s.stats.EmailStats(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, st)
	}
	return out, nil
}
