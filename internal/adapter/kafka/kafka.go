package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

// A ConnConfig holds broker connection settings shared by franz-go
// clients and goka processors. TLS and SASL are optional.
type ConnConfig struct {
	SeedBrokers []string
	TLSConfig   *tls.Config
	User        string
	Pass        string
}

func (c ConnConfig) kgoOpts() []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(c.SeedBrokers...)}
	if c.TLSConfig != nil {
		opts = append(opts, kgo.DialTLSConfig(c.TLSConfig))
	}
	if c.User != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: c.User,
			Pass: c.Pass,
		}.AsMechanism()))
	}
	return opts
}

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

func ProducerClientOpt(
	ctx context.Context, conn ConnConfig, topic string,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := append(conn.kgoOpts(),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	SetOffsets(map[string]map[int32]kgo.EpochOffset)
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

// applySASLTLS installs TLS and SASL settings into goka's global sarama
// config. It must run before any goka processor or view is created.
func applySASLTLS(conn ConnConfig) {
	if conn.TLSConfig == nil && conn.User == "" {
		return
	}

	cfg := goka.DefaultConfig()
	if conn.TLSConfig != nil {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = conn.TLSConfig
	}
	if conn.User != "" {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		cfg.Net.SASL.User = conn.User
		cfg.Net.SASL.Password = conn.Pass
	}
	goka.ReplaceGlobalConfig(cfg)
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func notificationToSchemaV1(v domain.Notification) (s schema.NotificationV1) {
	s.Kind = string(v.Kind)
	s.OrderID = v.OrderID.String()
	s.OrderNumber = v.OrderNumber
	s.Recipient = v.Recipient
	s.Phone = v.Phone
	s.CustomerName = v.CustomerName
	s.Status = string(v.Status)
	s.Total = v.Total.StringFixed(2)
	s.Attempt = v.Attempt
	s.CreatedAt = v.CreatedAt.UTC()
	return
}

func schemaV1ToNotification(s schema.NotificationV1) (domain.Notification, error) {
	orderID, err := uuid.Parse(s.OrderID)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("order id: %w", err)
	}
	total, err := decimal.NewFromString(s.Total)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("total: %w", err)
	}
	return domain.Notification{
		Kind:         domain.NotificationKind(s.Kind),
		OrderID:      orderID,
		OrderNumber:  s.OrderNumber,
		Recipient:    s.Recipient,
		Phone:        s.Phone,
		CustomerName: s.CustomerName,
		Status:       domain.OrderStatus(s.Status),
		Total:        total,
		Attempt:      s.Attempt,
		CreatedAt:    s.CreatedAt,
	}, nil
}

func metricToSchemaV1(v domain.EmailMetric) (s schema.EmailMetricEventV1) {
	s.ID = v.ID.String()
	s.Kind = string(v.Kind)
	s.Channel = string(v.Channel)
	s.Recipient = v.Recipient
	s.OrderID = v.OrderID.String()
	s.Status = string(v.Status)
	s.Attempt = v.Attempt
	s.Error = v.Error
	s.CreatedAt = v.CreatedAt.UTC()
	return
}

func schemaV1ToStats(s schema.EmailStatsV1) domain.EmailStats {
	return domain.EmailStats{
		Kind:   domain.NotificationKind(s.Kind),
		Sent:   s.Sent,
		Failed: s.Failed,
		Retry:  s.Retry,
	}
}
