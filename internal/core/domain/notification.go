package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	KindStatusUpdate      NotificationKind = "STATUS_UPDATE"
	KindOrderConfirmation NotificationKind = "ORDER_CONFIRMATION"
)

var NotificationKinds = []NotificationKind{
	KindStatusUpdate,
	KindOrderConfirmation,
}

type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
)

// A Notification is the payload handed to dispatchers.
type Notification struct {
	Kind         NotificationKind
	OrderID      uuid.UUID
	OrderNumber  string
	Recipient    string
	Phone        string
	CustomerName string
	Status       OrderStatus
	Total        decimal.Decimal
	Attempt      int
	CreatedAt    time.Time
}

type MetricStatus string

const (
	MetricSent   MetricStatus = "sent"
	MetricFailed MetricStatus = "failed"
	MetricRetry  MetricStatus = "retry"
)

func (s MetricStatus) Valid() bool {
	return s == MetricSent || s == MetricFailed || s == MetricRetry
}

// An EmailMetric records one delivery attempt. Rows are append-only.
type EmailMetric struct {
	ID        uuid.UUID
	Kind      NotificationKind
	Channel   Channel
	Recipient string
	OrderID   uuid.UUID
	Status    MetricStatus
	Attempt   int
	Error     string
	CreatedAt time.Time
}

// A MetricChain identifies the attempts made to deliver one notification
// kind of an order to one recipient over one channel.
type MetricChain struct {
	OrderID   uuid.UUID
	Kind      NotificationKind
	Channel   Channel
	Recipient string
}

func (m EmailMetric) Chain() MetricChain {
	return MetricChain{
		OrderID:   m.OrderID,
		Kind:      m.Kind,
		Channel:   m.Channel,
		Recipient: m.Recipient,
	}
}

type EmailMetricFilter struct {
	Status  MetricStatus
	OrderID uuid.NullUUID
	Page    Page
}

// EmailStats is the aggregated delivery outcome per notification kind.
type EmailStats struct {
	Kind   NotificationKind
	Sent   int64
	Failed int64
	Retry  int64
}
