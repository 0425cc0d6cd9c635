package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, DefaultConfig(filepath.Join(t.TempDir(), "test.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func createUser(t *testing.T, repo repository.UserRepository, email string) *domain.User {
	t.Helper()
	u := domain.NewUser(email, "Jane", "", "Doe", "hash", domain.VisibilityPublic)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	var version int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := domain.NewUser("jane@example.com", "Jane", "Q", "Doe", "hash", domain.VisibilityPrivate)
	u.Metadata["locale"] = "en"
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Q", got.MiddleName)
	assert.Equal(t, domain.VisibilityPrivate, got.Visibility)
	assert.Equal(t, "en", got.Metadata["locale"])
	assert.True(t, got.Active)
	assert.True(t, got.InactiveReason.IsZero())
	assert.Equal(t, domain.DefaultAccountSetting(), got.Setting)
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Millisecond)

	byEmail, err := repo.GetByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	dup := domain.NewUser("Jane@Example.com", "J", "", "D", "h", domain.VisibilityPublic)
	require.ErrorIs(t, repo.Create(ctx, dup), domain.ErrUserAlreadyExists)
}

func TestUserRepository_IsEmailUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	createUser(t, repo, "taken@example.com")

	unique, err := repo.IsEmailUnique(context.Background(), "Taken@example.com")
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = repo.IsEmailUnique(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.True(t, unique)
}

func TestUserRepository_UpdateVersioning(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, repo, "jane@example.com")

	first, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)

	require.True(t, first.Deactivate(domain.ReasonContactSupport))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Verify()
	err = repo.Update(ctx, second)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.False(t, stored.EmailVerified)
	assert.True(t, stored.InactiveReason.Equal(domain.ReasonContactSupport))
	assert.Equal(t, int64(2), stored.Version)

	// Activation clears the stored reason.
	require.True(t, stored.Activate())
	require.NoError(t, repo.Update(ctx, stored))
	reloaded, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Active)
	assert.True(t, reloaded.InactiveReason.IsZero())
}

func TestSnippetRepository_OwnedSnippet(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	snippets := NewSnippetRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()
	owner := createUser(t, users, "owner@example.com")

	s := domain.NewSnippet(&owner.ID, "hello", "desc", "go", "", []byte("package main"), []string{"go", "cli"}, false)
	require.NoError(t, snippets.Create(ctx, s))

	got, err := snippets.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("package main"), got.Content)
	assert.Equal(t, []string{"go", "cli"}, got.Tags)
	assert.False(t, got.Public)
	assert.True(t, got.IsOwnedBy(owner.ID))

	acl, err := snippets.GetAccess(ctx, s.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, acl.Read && acl.Write && acl.Manage)

	require.NoError(t, snippets.IncrementViews(ctx, s.ID))
	require.NoError(t, snippets.IncrementViews(ctx, s.ID))

	c, err := domain.NewSnippetComment(s.ID, owner.ID, "first", nil)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, c))

	list, err := snippets.ListByOwner(ctx, owner.ID, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(2), list.Items[0].View)
	assert.Equal(t, int64(1), list.Items[0].Comment)
	assert.Equal(t, repository.DefaultLimit, list.Limit)
}

func TestSnippetRepository_AnonymousSnippet(t *testing.T) {
	db := newTestDB(t)
	snippets := NewSnippetRepository(db)
	ctx := context.Background()

	s := domain.NewSnippet(nil, "anon", "", "python", "", []byte("print(1)"), nil, false)
	require.NoError(t, snippets.Create(ctx, s))

	got, err := snippets.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Public)
	assert.Nil(t, got.OwnerID)
	assert.Empty(t, got.Tags)

	acls, err := snippets.ListAccess(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, acls)

	_, err = snippets.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrSnippetNotFound)
	require.ErrorIs(t, snippets.IncrementViews(ctx, uuid.New()), domain.ErrSnippetNotFound)
}

func TestSnippetRepository_UpsertAccess(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	snippets := NewSnippetRepository(db)
	ctx := context.Background()
	owner := createUser(t, users, "owner@example.com")
	reader := createUser(t, users, "reader@example.com")

	s := domain.NewSnippet(&owner.ID, "t", "", "go", "", []byte("x"), nil, false)
	require.NoError(t, snippets.Create(ctx, s))

	_, err := snippets.GetAccess(ctx, s.ID, reader.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, snippets.UpsertAccess(ctx, &domain.SnippetAccessControl{SnippetID: s.ID, UserID: reader.ID, Read: true}))
	require.NoError(t, snippets.UpsertAccess(ctx, &domain.SnippetAccessControl{SnippetID: s.ID, UserID: reader.ID, Write: true}))

	acl, err := snippets.GetAccess(ctx, s.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, acl.Read)
	assert.True(t, acl.Write)

	acls, err := snippets.ListAccess(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, acls, 2)

	err = snippets.UpsertAccess(ctx, &domain.SnippetAccessControl{SnippetID: s.ID, UserID: uuid.New(), Read: true})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCommentRepository(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	snippets := NewSnippetRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()
	u := createUser(t, users, "jane@example.com")

	s := domain.NewSnippet(nil, "t", "", "go", "", []byte("x"), nil, true)
	require.NoError(t, snippets.Create(ctx, s))

	parent, err := domain.NewSnippetComment(s.ID, u.ID, "parent", nil)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, parent))

	reply, err := domain.NewSnippetComment(s.ID, u.ID, "reply", &parent.ID)
	require.NoError(t, err)
	reply.CreatedAt = parent.CreatedAt.Add(time.Second)
	require.NoError(t, comments.Create(ctx, reply))

	n, err := comments.CountBySnippet(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := comments.ListBySnippet(ctx, s.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "parent", list.Items[0].Text)
	assert.Nil(t, list.Items[0].ParentCommentID)
	require.NotNil(t, list.Items[1].ParentCommentID)
	assert.Equal(t, parent.ID, *list.Items[1].ParentCommentID)

	page, err := comments.ListBySnippet(ctx, s.ID, repository.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "reply", page.Items[0].Text)
	assert.Equal(t, int64(2), page.Total)

	got, err := comments.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "reply", got.Text)

	_, err = comments.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrCommentNotFound)

	orphan, err := domain.NewSnippetComment(uuid.New(), u.ID, "x", nil)
	require.NoError(t, err)
	require.ErrorIs(t, comments.Create(ctx, orphan), domain.ErrSnippetNotFound)
}
