package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag   = "storage-path"
	migrationPathFlag = "migrations-path"
	downFlag          = "down"
)

type flags struct {
	storagePath    string
	migrationsPath string
	down           int
}

func main() {
	f := getFlagsValues()
	validateFlags(f)
	m := newMigrate(f)
	defer closeMigrate(m)

	if f.down > 0 {
		rollback(m, f.down)
		return
	}
	makeMigrations(m)
}

type MigrationLogger struct {
	logger  *slog.Logger
	verbose bool
}

func NewMigrationLogger() *MigrationLogger {
	return &MigrationLogger{
		logger:  slog.Default(),
		verbose: true,
	}
}

func (ml *MigrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (ml *MigrationLogger) Verbose() bool {
	return ml.verbose
}

func getFlagsValues() flags {
	storagePath := pflag.StringP(storagePathFlag, "s", "",
		"postgres connection string without scheme, user:pass@host:port/db")
	migrationsPath := pflag.StringP(migrationPathFlag, "m", "", "migrations directory")
	down := pflag.IntP(downFlag, "d", 0, "roll back N migrations instead of applying")
	pflag.Parse()
	return flags{*storagePath, *migrationsPath, *down}
}

func validateFlags(f flags) {
	var errs []error

	if f.storagePath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", storagePathFlag))
	}

	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationPathFlag))
	}

	if f.down < 0 {
		errs = append(errs, fmt.Errorf("--%s flag: must not be negative", downFlag))
	}

	if len(errs) != 0 {
		slog.Error("invalid args", "err", errors.Join(errs...))
		fallDown()
	}
}

func newMigrate(f flags) *migrate.Migrate {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", f.migrationsPath),
		fmt.Sprintf("pgx5://%s", f.storagePath),
	)
	if err != nil {
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}

	m.Log = NewMigrationLogger()
	return m
}

func makeMigrations(m *migrate.Migrate) {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return
		}
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}
	printVersion(m, "migration applied")
}

func rollback(m *migrate.Migrate, steps int) {
	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to roll back")
			return
		}
		slog.Error("failed to roll back", "err", err)
		fallDown()
	}
	printVersion(m, "migration rolled back")
}

func printVersion(m *migrate.Migrate, msg string) {
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			m.Log.Printf("%s, schema is empty", msg)
			return
		}
		slog.Error("failed to read version", "err", err)
		return
	}
	m.Log.Printf("%s, version=%d dirty=%t", msg, version, dirty)
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		slog.Error("failed to close migrate", "err", err)
	}
}

func fallDown() {
	os.Exit(2)
}
