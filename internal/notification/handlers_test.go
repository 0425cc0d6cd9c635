package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/cache"
	"github.com/sharecode/sharecode-backend/internal/cache/memory"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/email"
	"github.com/sharecode/sharecode-backend/internal/event"
	"github.com/sharecode/sharecode-backend/internal/pkg/crypto"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

type fixture struct {
	notifier *Notifier
	mail     *email.Recorder
	tokens   *cache.ResourceCache
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	backend := memory.NewCache(time.Hour)
	t.Cleanup(backend.Stop)

	mail := &email.Recorder{}
	tokens := cache.NewResourceCache(backend, "test", zerolog.Nop())
	n := NewNotifier(mail, tokens, Config{
		VerificationTokenTTL: time.Hour,
		ResetTokenTTL:        time.Hour,
		LinkBaseURL:          "https://sharecode.test/",
	}, zerolog.Nop())
	return fixture{notifier: n, mail: mail, tokens: tokens}
}

func newUser() *domain.User {
	return domain.NewUser("jane@example.com", "Jane", "", "Doe", "h", domain.VisibilityPublic)
}

func TestNotifier_UserCreatedIssuesVerificationToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := newUser()
	u.RaiseCreatedEvent()

	require.NoError(t, f.notifier.OnUserCreated(ctx, u.DrainEvents()[0]))

	msgs := f.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, email.TemplateVerifyUserEmail, msgs[0].Template)
	assert.Equal(t, []string{"jane@example.com"}, msgs[0].Targets.To)
	assert.Equal(t, "Jane Doe", msgs[0].Placeholders[PlaceholderUser])

	token := msgs[0].Placeholders[PlaceholderToken]
	require.NotEmpty(t, token)
	assert.Equal(t, "https://sharecode.test/verify?token="+token, msgs[0].Placeholders[PlaceholderVerificationURL])

	userID, err := f.tokens.TakeString(ctx, repository.ResourceVerificationToken, crypto.HashToken(token))
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), userID)
}

func TestNotifier_UserVerifiedSendsWelcome(t *testing.T) {
	f := newFixture(t)
	u := newUser()
	u.Verify()

	require.NoError(t, f.notifier.OnUserVerified(context.Background(), u.DrainEvents()[0]))

	msgs := f.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, email.TemplateWelcomeUser, msgs[0].Template)
	assert.Equal(t, map[string]string{"USER": "Jane Doe"}, msgs[0].Placeholders)
	assert.Equal(t, map[string]string{"WELCOME_USER": "Jane Doe"}, msgs[0].SubjectPlaceholders)
}

func TestNotifier_AccountSetInactiveCarriesReason(t *testing.T) {
	f := newFixture(t)
	u := newUser()
	u.Deactivate(domain.ReasonInvalidPassword)

	require.NoError(t, f.notifier.OnAccountSetInactive(context.Background(), u.DrainEvents()[0]))

	msgs := f.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, email.TemplateAccountInactive, msgs[0].Template)
	assert.Equal(t, domain.ReasonInvalidPassword.String(), msgs[0].Placeholders[PlaceholderReason])
}

func TestNotifier_RequestPasswordResetIssuesResetToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := newUser()
	u.RequestPasswordReset(true)

	require.NoError(t, f.notifier.OnRequestPasswordReset(ctx, u.DrainEvents()[0]))

	msgs := f.mail.Messages()
	require.Len(t, msgs, 1)
	token := msgs[0].Placeholders[PlaceholderToken]
	assert.Contains(t, msgs[0].Placeholders[PlaceholderResetURL], "/reset-password?token=")

	_, err := f.tokens.TakeString(ctx, repository.ResourceVerificationToken, crypto.HashToken(token))
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	userID, err := f.tokens.TakeString(ctx, repository.ResourceResetToken, crypto.HashToken(token))
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), userID)
}

func TestNotifier_RejectsWrongEventType(t *testing.T) {
	f := newFixture(t)
	u := newUser()
	u.Verify()

	err := f.notifier.OnUserCreated(context.Background(), u.DrainEvents()[0])
	require.Error(t, err)
	assert.Empty(t, f.mail.Messages())
}

func TestNotifier_RegisterThroughDispatcher(t *testing.T) {
	f := newFixture(t)
	d := event.NewDispatcher(nil, zerolog.Nop())
	f.notifier.Register(d)

	for _, name := range []string{
		domain.EventUserCreated,
		domain.EventUserVerified,
		domain.EventAccountSetInactive,
		domain.EventRequestPasswordReset,
	} {
		assert.Equal(t, 1, d.HandlerCount(name), name)
	}

	u := newUser()
	u.RaiseCreatedEvent()
	u.Verify()
	d.Publish(context.Background(), u.DrainEvents()...)
	d.Wait()

	assert.Len(t, f.mail.Messages(), 2)
}
