package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.NotificationPublisher = NotificationProducer{}
var _ port.MetricPublisher = MetricProducer{}

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
	encoder  Encoder
}

func newProducer(opPrefix string, opts []ProducerOpt) (producer, error) {
	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, opPrefix)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return producer{}, err
		}
	}

	return producer{
		opPrefix: opPrefix,
		cl:       options.cl,
		encoder:  options.encoder,
	}, nil
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, key string, v any,
) error {
	const op = "produce"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	b, err := p.encoder.Encode(v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r := &kgo.Record{Key: []byte(key), Value: b}
	res := p.cl.ProduceSync(ctx, r)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// A NotificationProducer publishes [domain.Notification] keyed by order id,
// so events of one order stay ordered.
type NotificationProducer struct {
	producer producer
}

func NewNotificationProducer(
	opts ...ProducerOpt,
) (NotificationProducer, error) {
	const op = "NewNotificationProducer"

	p, err := newProducer("NotificationProducer", opts)
	if err != nil {
		return NotificationProducer{}, opErr(err, op)
	}
	return NotificationProducer{p}, nil
}

func (p NotificationProducer) Close() {
	p.producer.close()
}

func (p NotificationProducer) PublishNotification(
	ctx context.Context, n domain.Notification,
) error {
	s := notificationToSchemaV1(n)
	return p.producer.produce(ctx, s.OrderID, s)
}

// A MetricProducer publishes delivery outcomes keyed by notification kind,
// the key of the stats aggregation.
type MetricProducer struct {
	producer producer
}

func NewMetricProducer(opts ...ProducerOpt) (MetricProducer, error) {
	const op = "NewMetricProducer"

	p, err := newProducer("MetricProducer", opts)
	if err != nil {
		return MetricProducer{}, opErr(err, op)
	}
	return MetricProducer{p}, nil
}

func (p MetricProducer) Close() {
	p.producer.close()
}

func (p MetricProducer) PublishMetric(
	ctx context.Context, m domain.EmailMetric,
) error {
	s := metricToSchemaV1(m)
	return p.producer.produce(ctx, s.Kind, s)
}
