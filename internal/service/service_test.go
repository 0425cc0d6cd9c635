package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/cache"
	"github.com/sharecode/sharecode-backend/internal/cache/memory"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
	"github.com/sharecode/sharecode-backend/internal/repository/sqlite"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "correct-horse"
	adminEmail   = "admin@sharecode.test"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventName()
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	repos    repository.Repositories
	cache    *cache.ResourceCache
	tokens   *auth.TokenManager
	events   *recordingPublisher
	users    *UserService
	snippets *SnippetService
	commands *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "svc.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	backend := memory.NewCache(time.Hour)
	t.Cleanup(backend.Stop)

	tokens, err := auth.NewTokenManager(testSecret, "sharecode", 15*time.Minute, time.Hour)
	require.NoError(t, err)

	f := &fixture{
		repos: repository.Repositories{
			User:    sqlite.NewUserRepository(db),
			Snippet: sqlite.NewSnippetRepository(db),
			Comment: sqlite.NewCommentRepository(db),
		},
		cache:  cache.NewResourceCache(backend, "test", zerolog.Nop()),
		tokens: tokens,
		events: &recordingPublisher{},
	}

	f.users = NewUserService(f.repos.User, f.repos.Snippet, f.cache, tokens, f.events, UserServiceConfig{
		BcryptCost:        bcrypt.MinCost,
		MaxFailedLogins:   3,
		FailedLoginWindow: time.Minute,
		IsAdmin:           func(email string) bool { return email == adminEmail },
	}, zerolog.Nop())
	f.snippets = NewSnippetService(f.repos.Snippet, f.repos.Comment, f.cache, time.Minute, zerolog.Nop())
	f.commands = NewCommandRegistry(f.users, f.snippets)
	return f
}

func (f *fixture) register(t *testing.T, emailAddress string) *domain.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{
		EmailAddress: emailAddress,
		FirstName:    "Jane",
		LastName:     "Doe",
		Password:     testPassword,
	})
	require.NoError(t, err)
	return u
}
