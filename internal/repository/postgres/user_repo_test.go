package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/domain"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewWithPool(mock, zerolog.Nop()), mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var userRowColumns = []string{
	"id", "email_address", "first_name", "middle_name", "last_name", "password_hash",
	"email_verified", "active", "inactive_reason", "visibility", "profile_picture", "metadata",
	"enable_notifications_for_mentions", "allow_tagging", "last_login", "created_at", "updated_at", "version",
}

func userRow(id uuid.UUID, reason *string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows(userRowColumns).AddRow(
		id.String(), "jane@example.com", "Jane", "", "Doe", "hash",
		true, reason == nil, reason, "private", "", []byte(`{"locale":"en"}`),
		true, false, now, now, now, int64(3),
	)
}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepository(db)
	ctx := context.Background()
	u := domain.NewUser("jane@example.com", "Jane", "", "Doe", "hash", domain.VisibilityPublic)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(anyArgs(18)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(anyArgs(18)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, u)
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepository(db)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(userRow(id, nil))
	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, domain.VisibilityPrivate, u.Visibility)
	assert.Equal(t, "en", u.Metadata["locale"])
	assert.True(t, u.InactiveReason.IsZero())
	assert.False(t, u.Setting.AllowTagging)
	assert.Equal(t, int64(3), u.Version)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_ParsesInactiveReason(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepository(db)
	id := uuid.New()
	reason := domain.ReasonInvalidPassword.String()

	mock.ExpectQuery(`FROM users WHERE LOWER\(email_address\) = \$1`).
		WithArgs("jane@example.com").
		WillReturnRows(userRow(id, &reason))

	u, err := r.GetByEmail(context.Background(), " Jane@Example.com")
	require.NoError(t, err)
	assert.False(t, u.Active)
	assert.True(t, u.InactiveReason.Equal(domain.ReasonInvalidPassword))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Update_OptimisticConcurrency(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepository(db)
	ctx := context.Background()
	u := domain.NewUser("jane@example.com", "Jane", "", "Doe", "hash", domain.VisibilityPublic)

	args := append([]any{u.ID, int64(1)}, anyArgs(14)...)

	mock.ExpectExec(`UPDATE users`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Update(ctx, u))
	assert.Equal(t, int64(2), u.Version)

	// A stale copy still at version 1 loses.
	stale := *u
	stale.Version = 1
	mock.ExpectExec(`UPDATE users`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := r.Update(ctx, &stale)
	require.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Equal(t, int64(1), stale.Version)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_IsEmailUnique(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("taken@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	unique, err := r.IsEmailUnique(ctx, "Taken@example.com")
	require.NoError(t, err)
	assert.False(t, unique)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("free@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	unique, err = r.IsEmailUnique(ctx, "free@example.com")
	require.NoError(t, err)
	assert.True(t, unique)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("x@example.com").
		WillReturnError(errors.New("boom"))
	_, err = r.IsEmailUnique(ctx, "x@example.com")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
