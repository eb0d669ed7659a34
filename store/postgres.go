package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// DefaultStateKey is the bot_state row used when PostgresBackend.Key is empty.
const DefaultStateKey = "memebot"

// Connect opens a Postgres connection pool for dsn.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is required for the postgres store backend")
	}
	return sql.Open("pgx", dsn)
}

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded versioned migrations. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing the postgres driver closes db as well.

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("database schema is up to date", slog.String("component", "db_migrate"))
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d - manual intervention required", version)
	}
	slog.Info("migrations applied successfully", slog.Uint64("version", uint64(version)), slog.String("component", "db_migrate"))
	return nil
}

// PostgresBackend stores the document as one JSONB row keyed by Key.
type PostgresBackend struct {
	DB  *sql.DB
	Key string
}

// NewPostgresBackend returns a backend using the default state key.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{DB: db, Key: DefaultStateKey}
}

func (p *PostgresBackend) key() string {
	if p.Key == "" {
		return DefaultStateKey
	}
	return p.Key
}

// Load returns the stored document, or an empty snapshot when the row is absent.
func (p *PostgresBackend) Load(ctx context.Context) (Snapshot, error) {
	var raw []byte
	err := p.DB.QueryRowContext(ctx, `SELECT value FROM bot_state WHERE key=$1`, p.key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Info("no stored state row, starting empty", slog.String("key", p.key()), slog.String("component", "store"))
		return Empty(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load bot_state %s: %w", p.key(), err)
	}
	snap, err := Decode(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("bot_state %s is corrupt: %w", p.key(), err)
	}
	return snap, nil
}

// Save upserts the document.
func (p *PostgresBackend) Save(ctx context.Context, snap Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	_, err = p.DB.ExecContext(ctx,
		`INSERT INTO bot_state (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		p.key(), string(data))
	if err != nil {
		return fmt.Errorf("save bot_state %s: %w", p.key(), err)
	}
	return nil
}
