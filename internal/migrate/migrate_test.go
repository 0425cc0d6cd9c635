package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sharecode/sharecode-backend/migrations"
)

var testMigrations = fstest.MapFS{
	"00001_users.sql": {Data: []byte(`-- +goose Up
CREATE TABLE users (id TEXT PRIMARY KEY, email_address TEXT NOT NULL);

-- +goose Down
DROP TABLE users;
`)},
	"00002_snippets.sql": {Data: []byte(`-- +goose Up
CREATE TABLE snippets (id TEXT PRIMARY KEY, owner_id TEXT REFERENCES users (id));

-- +goose Down
DROP TABLE snippets;
`)},
}

func newTestMigrator(t *testing.T) (*Migrator, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)

	m, err := New(db, "sqlite3", testMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrator_UpDownVersion(t *testing.T) {
	m, db := newTestMigrator(t)
	ctx := context.Background()

	require.NoError(t, m.Up(ctx))
	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.True(t, tableExists(t, db, "snippets"))

	require.NoError(t, m.Up(ctx), "up is idempotent")

	require.NoError(t, m.Down(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.False(t, tableExists(t, db, "snippets"))
	assert.True(t, tableExists(t, db, "users"))

	require.NoError(t, m.Status(ctx))
}

func TestNew_UnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, "oracle", testMigrations)
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	raw, err := fs.ReadFile(migrations.FS, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "-- +goose Up")
	assert.Contains(t, string(raw), "-- +goose Down")
}
