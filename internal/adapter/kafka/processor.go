package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
		return
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A metricEventCodec used for serde [schema.EmailMetricEventV1]
type metricEventCodec struct {
	serde Serde
}

func (c metricEventCodec) Encode(v any) ([]byte, error) {
	const op = "metricEventCodec.Encode"
	if _, ok := v.(schema.EmailMetricEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c metricEventCodec) Decode(data []byte) (any, error) {
	const op = "metricEventCodec.Decode"
	var s schema.EmailMetricEventV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// An emailStatsCodec used for serde [schema.EmailStatsV1]
type emailStatsCodec struct {
	serde Serde
}

func (c emailStatsCodec) Encode(v any) ([]byte, error) {
	const op = "emailStatsCodec.Encode"
	if _, ok := v.(schema.EmailStatsV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c emailStatsCodec) Decode(data []byte) (any, error) {
	const op = "emailStatsCodec.Decode"
	var s schema.EmailStatsV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// An EmailStatsProcessor folds delivery outcome events from the input
// stream into per-kind counters kept in its group table.
type EmailStatsProcessor struct {
	opPrefix string
	proc     processor
}

func NewEmailStatsProc(
	conn ConnConfig,
	inputStream string,
	group string,
	metricSerde Serde,
	statsSerde Serde,
) (*EmailStatsProcessor, error) {
	const op = "NewEmailStatsProc"

	applySASLTLS(conn)

	p := EmailStatsProcessor{opPrefix: "EmailStatsProcessor"}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			metricEventCodec{metricSerde},
			p.processFn,
		),
		goka.Persist(emailStatsCodec{statsSerde}),
	)

	gp, err := goka.NewProcessor(conn.SeedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{
		opPrefix: p.opPrefix,
		gp:       gp,
	}

	return &p, nil
}

func (p *EmailStatsProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *EmailStatsProcessor) Close() {
	p.proc.close()
}

func (p *EmailStatsProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"
	log := slog.With("op", makeOp(p.opPrefix, op))

	event, ok := msg.(schema.EmailMetricEventV1)
	if !ok {
		log.Error("unexpected message type", "err", ErrInvalidValueType)
		return
	}

	var current schema.EmailStatsV1
	if v := ctx.Value(); v != nil {
		current, _ = v.(schema.EmailStatsV1)
	}

	next := foldEmailStats(current, event)
	ctx.SetValue(next)
	log.Debug(
		"stats updated",
		"kind", next.Kind,
		"sent", next.Sent,
		"failed", next.Failed,
		"retry", next.Retry,
	)
}

func foldEmailStats(
	s schema.EmailStatsV1, e schema.EmailMetricEventV1,
) schema.EmailStatsV1 {
	s.Kind = e.Kind
	switch domain.MetricStatus(e.Status) {
	case domain.MetricSent:
		s.Sent++
	case domain.MetricFailed:
		s.Failed++
	case domain.MetricRetry:
		s.Retry++
	}
	return s
}
