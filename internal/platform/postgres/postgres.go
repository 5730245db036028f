package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/bubbletasks/internal/platform/sqlstore"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations are the schema migrations for the PostgreSQL backend.
var Migrations = sqlstore.Migrations{Dialect: "postgres", FS: migrationFS, Dir: "migrations"}

// Dialect is the sqlstore dialect for PostgreSQL.
var Dialect = sqlstore.Dialect{
	Name:        "postgres",
	Placeholder: sqlstore.DollarPlaceholder,
	MapError:    MapError,
}

// Open establishes a connection pool and verifies it with a ping.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewTaskStore returns a task store backed by db.
func NewTaskStore(db *sql.DB, log *slog.Logger) *sqlstore.TaskStore {
	return sqlstore.NewTaskStore(db, Dialect, log)
}

// Migrate runs a goose command against db.
func Migrate(ctx context.Context, db *sql.DB, command string, log *slog.Logger) error {
	return sqlstore.Migrate(ctx, db, Migrations, command, log)
}
