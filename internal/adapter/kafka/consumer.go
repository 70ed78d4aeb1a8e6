package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

type ConsumerOpt func(*consumerOpts) error

func ConsumerClientOpt(
	conn ConnConfig, topic, group string,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kopts := append(conn.kgoOpts(),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		)
		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func NotificationHandlerOpt(h port.NotificationHandler) ConsumerOpt {
	return func(co *consumerOpts) error {
		if h == nil {
			return errors.New("notification handler is nil")
		}
		co.handler = h
		return nil
	}
}

type consumerOpts struct {
	cl      ConsumerClient
	decoder Decoder
	handler port.NotificationHandler
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	if co.cl == nil || co.decoder == nil || co.handler == nil {
		return ErrTooFewOpts
	}
	return nil
}

type consumerParent interface {
	processFetches(context.Context, kgo.Fetches) error
}

// A consumer is used for composition.
//
// Fetching records from kafka broker and closing underlying [kgo.Client].
type consumer struct {
	opPrefix      string
	parent        consumerParent
	cl            ConsumerClient
	slowDownDelay time.Duration
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
				c.slowDown(ctx)
			}
		}
	}
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	err = c.parent.processFetches(ctx, fetches)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.commit(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	err := c.handleFetchesErrs(fetches)
	if err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c consumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		if err != nil {
			errMsg := fmt.Sprintf(
				"topic %q partition %d: %q", t, p, err,
			)
			errsMessages = append(errsMessages, errMsg)
		}
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

func (c consumer) slowDown(ctx context.Context) {
	t := time.NewTimer(c.slowDownDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c consumer) commit(ctx context.Context) error {
	const op = "commit"

	err := ctx.Err()
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.cl.CommitUncommittedOffsets(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

// rewindOffsets tracks, per partition, the first record left unprocessed
// in a polled batch.
type rewindOffsets map[string]map[int32]kgo.EpochOffset

func (ro rewindOffsets) mark(r *kgo.Record) {
	parts, ok := ro[r.Topic]
	if !ok {
		parts = make(map[int32]kgo.EpochOffset)
		ro[r.Topic] = parts
	}
	if _, ok := parts[r.Partition]; ok {
		return
	}
	parts[r.Partition] = kgo.EpochOffset{Epoch: r.LeaderEpoch, Offset: r.Offset}
}

// rewind moves the fetch position back so unprocessed records are
// polled again.
func (c consumer) rewind(ro rewindOffsets) {
	const op = "rewind"

	if len(ro) == 0 {
		return
	}
	c.cl.SetOffsets(ro)
	slog.Warn("fetch position rewound", "op", makeOp(c.opPrefix, op), "offsets", ro)
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// A NotificationConsumer consumes notification requests
// then hands each to the core service for delivery.
type NotificationConsumer struct {
	opPrefix string
	consumer consumer
	handler  port.NotificationHandler
	decoder  Decoder
}

func NewNotificationConsumer(
	opts ...ConsumerOpt,
) (nc NotificationConsumer, err error) {
	const op = "NewNotificationConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return nc, opErr(err, op)
	}

	opPrefix := "NotificationConsumer"

	nc.opPrefix = opPrefix
	nc.handler = options.handler
	nc.decoder = options.decoder

	nc.consumer = consumer{
		opPrefix:      opPrefix,
		cl:            options.cl,
		slowDownDelay: time.Second,
	}
	// parent is a copy; it needs the client to rewind.
	nc.consumer.parent = nc

	return nc, nil
}

func (c NotificationConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c NotificationConsumer) Close() {
	c.consumer.close()
}

// processFetches hands records to the handler in order. Undecodable
// records are logged and skipped. A handler error stops the batch: the
// fetch position of every partition is rewound to its first unhandled
// record and nothing is committed, so those records are polled again.
func (c NotificationConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"
	log := slog.With("op", makeOp(c.opPrefix, op))

	var (
		procErr error
		pending = make(rewindOffsets)
	)
	fetches.EachRecord(func(r *kgo.Record) {
		if procErr != nil {
			pending.mark(r)
			return
		}

		n, err := c.decodeRecValue(r)
		if err != nil {
			log.Error(
				"failed to decode value",
				"offset", r.Offset,
				"err", opErr(err, c.opPrefix, op),
			)
			return
		}

		if err := c.handler.HandleNotification(ctx, n); err != nil {
			procErr = err
			pending.mark(r)
		}
	})

	if procErr != nil {
		c.consumer.rewind(pending)
		return opErr(procErr, c.opPrefix, op)
	}
	return nil
}

func (c NotificationConsumer) decodeRecValue(
	r *kgo.Record,
) (domain.Notification, error) {
	var s schema.NotificationV1
	err := c.decoder.Decode(r.Value, &s)
	if err != nil {
		return domain.Notification{}, err
	}
	return schemaV1ToNotification(s)
}
