package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
)

var _ port.EmailStatsReader = (*EmailStatsView)(nil)

// An EmailStatsView serves the email stats group table.
type EmailStatsView struct {
	gv *goka.View
}

func NewEmailStatsView(
	conn ConnConfig, group string, statsSerde Serde,
) (*EmailStatsView, error) {
	const op = "NewEmailStatsView"

	applySASLTLS(conn)

	gv, err := goka.NewView(
		conn.SeedBrokers,
		goka.GroupTable(goka.Group(group)),
		emailStatsCodec{statsSerde},
	)
	if err != nil {
		return nil, opErr(err, op)
	}

	return &EmailStatsView{gv}, nil
}

func (v *EmailStatsView) Run(ctx context.Context) {
	const op = "EmailStatsView.Run"
	log := slog.With("op", op)

	log.Info("running")
	err := v.gv.Run(ctx)
	if err != nil {
		log.Error("unexpected fail on run", "err", err)
		return
	}
	log.Info("stopped")
}

// EmailStats returns zero counters for a kind with no recorded events.
func (v *EmailStatsView) EmailStats(
	ctx context.Context, kind domain.NotificationKind,
) (domain.EmailStats, error) {
	const op = "EmailStatsView.EmailStats"

	if err := ctx.Err(); err != nil {
		return domain.EmailStats{}, opErr(err, op)
	}

	val, err := v.gv.Get(string(kind))
	if err != nil {
		return domain.EmailStats{}, opErr(err, op)
	}

	if val == nil {
		return domain.EmailStats{Kind: kind}, nil
	}

	s, ok := val.(schema.EmailStatsV1)
	if !ok {
		return domain.EmailStats{}, opErr(
			fmt.Errorf("%w: %T", ErrInvalidValueType, val), op,
		)
	}
	return schemaV1ToStats(s), nil
}
