package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

type sqldb interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLDB struct {
	*sql.DB
}

func NewSQLDB(ctx context.Context, dsn string, pool PoolConfig) (SQLDB, error) {
	const op = "SQLDB"
	log := slog.With("op", op)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return SQLDB{}, fmt.Errorf("%s: invalid dsn: %w", op, err)
	}
	connStr := stdlib.RegisterConnConfig(connConfig)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return SQLDB{}, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	s := SQLDB{db}
	if err := s.PingContext(ctx); err != nil {
		_ = db.Close()
		return SQLDB{}, fmt.Errorf("%s: database is unavailable: %w", op, err)
	}
	log.Info("database is available")
	return s, nil
}

func (s SQLDB) Close() {
	const op = "SQLDB.Close"
	log := slog.With("op", op)

	log.Info("closing sql database...")

	if err := s.DB.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("sql database is closed")
}

func pgErrCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrCode(err)
	return code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrCode(err)
	return code == pgerrcode.ForeignKeyViolation
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// withinTx runs fn in a transaction committed on success and rolled back
// on error.
func withinTx(
	ctx context.Context, db sqldb, op string, fn func(*sql.Tx) error,
) (txErr error) {
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if txErr == nil {
			if err := tx.Commit(); err != nil {
				txErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	return fn(tx)
}
