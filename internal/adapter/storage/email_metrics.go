package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.EmailMetricStorage = EmailMetricRepository{}

const emailMetricColumns = `
	id, type, channel, recipient, order_id, status, attempt, error, created_at`

type EmailMetricRepository struct {
	sqldb sqldb
}

func NewEmailMetricRepository(sqldb sqldb) EmailMetricRepository {
	return EmailMetricRepository{sqldb}
}

func (r EmailMetricRepository) AppendMetric(
	ctx context.Context, m *domain.EmailMetric,
) error {
	const op = "EmailMetricRepository.AppendMetric"

	query := `
		INSERT INTO email_metrics (` + emailMetricColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err := r.sqldb.ExecContext(ctx, query,
		m.ID, m.Kind, m.Channel, m.Recipient, m.OrderID, m.Status, m.Attempt,
		sql.NullString{String: m.Error, Valid: m.Error != ""}, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r EmailMetricRepository) MetricByID(
	ctx context.Context, id uuid.UUID,
) (domain.EmailMetric, error) {
	const op = "EmailMetricRepository.MetricByID"

	query := `SELECT` + emailMetricColumns + ` FROM email_metrics WHERE id = $1;`

	m, err := scanEmailMetric(r.sqldb.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.EmailMetric{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (r EmailMetricRepository) LatestMetric(
	ctx context.Context, c domain.MetricChain,
) (domain.EmailMetric, error) {
	const op = "EmailMetricRepository.LatestMetric"

	query := `
		SELECT` + emailMetricColumns + `
		FROM email_metrics
		WHERE order_id = $1 AND type = $2 AND channel = $3 AND recipient = $4
		ORDER BY created_at DESC, attempt DESC
		LIMIT 1;`

	row := r.sqldb.QueryRowContext(ctx, query,
		c.OrderID, c.Kind, c.Channel, c.Recipient,
	)
	m, err := scanEmailMetric(row)
	if err != nil {
		return domain.EmailMetric{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (r EmailMetricRepository) ListMetrics(
	ctx context.Context, f domain.EmailMetricFilter,
) ([]domain.EmailMetric, error) {
	const op = "EmailMetricRepository.ListMetrics"

	query := `
		SELECT` + emailMetricColumns + `
		FROM email_metrics
		WHERE ($1::text = '' OR status = $1)
			AND ($2::uuid IS NULL OR order_id = $2)
		ORDER BY created_at DESC, id ASC
		LIMIT $3 OFFSET $4;`

	rows, err := r.sqldb.QueryContext(ctx, query,
		f.Status, f.OrderID, f.Page.Limit, f.Page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ms []domain.EmailMetric
	for rows.Next() {
		m, err := scanEmailMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ms, nil
}

func (r EmailMetricRepository) DeleteMetric(ctx context.Context, id uuid.UUID) error {
	const op = "EmailMetricRepository.DeleteMetric"

	res, err := r.sqldb.ExecContext(ctx, `DELETE FROM email_metrics WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrEmailMetricNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanEmailMetric(row rowScanner) (domain.EmailMetric, error) {
	var (
		m       domain.EmailMetric
		errText sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.Kind, &m.Channel, &m.Recipient, &m.OrderID, &m.Status,
		&m.Attempt, &errText, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EmailMetric{}, domain.ErrEmailMetricNotFound
		}
		return domain.EmailMetric{}, err
	}
	m.Error = errText.String
	return m, nil
}
