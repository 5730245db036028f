// Package sqlite stores tasks in an embedded SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/bubbletasks/internal/platform/sqlstore"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations are the schema migrations for the SQLite backend.
var Migrations = sqlstore.Migrations{Dialect: "sqlite3", FS: migrationFS, Dir: "migrations"}

// Dialect is the sqlstore dialect for SQLite.
var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	Placeholder: sqlstore.QuestionPlaceholder,
	MapError:    MapError,
}

// Open opens (creating if needed) the database at path and applies the
// connection pragmas. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per connection, and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
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
