// Package migrate applies schema migrations with goose. The server schema
// for PostgreSQL is embedded from the migrations package.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sharecode/sharecode-backend/migrations"
)

// Migrator runs goose commands against a database.
type Migrator struct {
	db *sql.DB
}

// Open connects to the PostgreSQL database identified by dsn and uses the
// embedded schema migrations.
func Open(dsn string) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m, err := New(db, "postgres", migrations.FS)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// New runs the goose migrations found at the root of fsys against db.
// The Migrator owns db and closes it on Close.
func New(db *sql.DB, dialect string, fsys fs.FS) (*Migrator, error) {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return nil, fmt.Errorf("failed to set dialect %q: %w", dialect, err)
	}
	return &Migrator{db: db}, nil
}

// Close closes the database connection.
func (m *Migrator) Close() error {
	return m.db.Close()
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	return goose.UpContext(ctx, m.db, ".")
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	return goose.DownContext(ctx, m.db, ".")
}

// Status prints the state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	return goose.StatusContext(ctx, m.db, ".")
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return goose.GetDBVersionContext(ctx, m.db)
}

// Up runs all pending migrations against dsn.
func Up(ctx context.Context, dsn string) error {
	m, err := Open(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up(ctx)
}
