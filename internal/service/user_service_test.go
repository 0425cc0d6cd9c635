package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/pkg/crypto"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, RegisterInput{
		EmailAddress: "  Jane@Example.com ",
		FirstName:    "Jane",
		LastName:     "Doe",
		Password:     testPassword,
		Visibility:   domain.VisibilityPrivate,
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.EmailAddress)
	assert.False(t, u.EmailVerified)
	assert.True(t, u.Active)
	assert.NotEqual(t, testPassword, u.PasswordHash)
	assert.Equal(t, []string{domain.EventUserCreated}, f.events.names())
	assert.Empty(t, u.PendingEvents())

	_, err = f.users.Register(ctx, RegisterInput{
		EmailAddress: "jane@example.com",
		FirstName:    "J",
		LastName:     "D",
		Password:     testPassword,
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestUserService_RegisterValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{
		EmailAddress: "not-an-email",
		Password:     "short",
	})
	require.ErrorIs(t, err, ErrValidation)

	var v *ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "emailAddress")
	assert.Contains(t, v.Fields, "firstName")
	assert.Contains(t, v.Fields, "lastName")
	assert.Contains(t, v.Fields, "password")
	assert.Empty(t, f.events.names())
}

func TestUserService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")

	out, err := f.users.Login(ctx, "JANE@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, out.User.ID)

	p, err := f.tokens.Parse(out.Tokens.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)

	_, err = f.users.Login(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.users.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUserService_LoginLocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")
	f.events.reset()

	for i := 0; i < 2; i++ {
		_, err := f.users.Login(ctx, "jane@example.com", "wrong-password")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	_, err := f.users.Login(ctx, "jane@example.com", "wrong-password")
	require.ErrorIs(t, err, domain.ErrUserInactive)
	assert.Contains(t, err.Error(), domain.ReasonInvalidPassword.String())
	assert.Equal(t, []string{domain.EventAccountSetInactive}, f.events.names())

	stored, err := f.repos.User.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.True(t, stored.InactiveReason.Equal(domain.ReasonInvalidPassword))

	_, err = f.users.Login(ctx, "jane@example.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	// Locked accounts cannot request a reset.
	assert.ErrorIs(t, f.users.ForgotPassword(ctx, "jane@example.com"), domain.ErrPasswordResetNotAllowed)
}

func TestUserService_SuccessfulLoginResetsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "jane@example.com")

	for i := 0; i < 2; i++ {
		_, err := f.users.Login(ctx, "jane@example.com", "wrong-password")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	_, err := f.users.Login(ctx, "jane@example.com", testPassword)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.users.Login(ctx, "jane@example.com", "wrong-password")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
}

func TestUserService_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")

	out, err := f.users.Login(ctx, "jane@example.com", testPassword)
	require.NoError(t, err)

	refreshed, err := f.users.Refresh(ctx, out.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, refreshed.User.ID)

	_, err = f.users.Refresh(ctx, out.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestUserService_Verify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")
	f.events.reset()

	require.NoError(t, f.cache.PutString(ctx, repository.ResourceVerificationToken, crypto.HashToken("tok"), u.ID.String(), time.Minute))

	verified, err := f.users.Verify(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Equal(t, []string{domain.EventUserVerified}, f.events.names())

	// Tokens are single use.
	_, err = f.users.Verify(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	require.NoError(t, f.cache.PutString(ctx, repository.ResourceVerificationToken, crypto.HashToken("tok2"), u.ID.String(), time.Minute))
	_, err = f.users.Verify(ctx, "tok2")
	assert.ErrorIs(t, err, domain.ErrUserAlreadyVerified)
	assert.Len(t, f.events.names(), 1)

	assert.ErrorIs(t, f.users.ResendVerification(ctx, "jane@example.com"), domain.ErrUserAlreadyVerified)
}

func TestUserService_ResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "jane@example.com")
	f.events.reset()

	require.NoError(t, f.users.ResendVerification(ctx, "jane@example.com"))
	assert.Equal(t, []string{domain.EventUserCreated}, f.events.names())

	require.NoError(t, f.users.ResendVerification(ctx, "unknown@example.com"))
	assert.Len(t, f.events.names(), 1)
}

func TestUserService_ForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")
	f.events.reset()

	require.NoError(t, f.users.ForgotPassword(ctx, "jane@example.com"))
	assert.Equal(t, []string{domain.EventRequestPasswordReset}, f.events.names())
	require.NoError(t, f.users.ForgotPassword(ctx, "unknown@example.com"))

	err := f.users.ResetPassword(ctx, "tok", "short")
	require.ErrorIs(t, err, ErrValidation)

	require.ErrorIs(t, f.users.ResetPassword(ctx, "missing", "new-password-1"), domain.ErrInvalidToken)

	require.NoError(t, f.cache.PutString(ctx, repository.ResourceResetToken, crypto.HashToken("tok"), u.ID.String(), time.Minute))
	require.NoError(t, f.users.ResetPassword(ctx, "tok", "new-password-1"))

	_, err = f.users.Login(ctx, "jane@example.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.users.Login(ctx, "jane@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestUserService_GetRespectsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")
	other := f.register(t, "other@example.com")

	private := domain.VisibilityPrivate
	_, err := f.users.UpdateSettings(ctx, u.ID, UpdateSettingsInput{Visibility: &private})
	require.NoError(t, err)

	got, err := f.users.Get(ctx, u.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPrivate, got.Visibility)

	_, err = f.users.Get(ctx, other.ID, u.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	_, err = f.users.Get(ctx, uuid.Nil, u.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	got, err = f.users.Get(ctx, uuid.Nil, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)

	_, err = f.users.Get(ctx, u.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_UpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")

	off := false
	updated, err := f.users.UpdateSettings(ctx, u.ID, UpdateSettingsInput{AllowTagging: &off})
	require.NoError(t, err)
	assert.False(t, updated.Setting.AllowTagging)
	assert.True(t, updated.Setting.EnableNotificationsForMentions)

	bogus := domain.AccountVisibility("friends")
	_, err = f.users.UpdateSettings(ctx, u.ID, UpdateSettingsInput{Visibility: &bogus})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_AdminLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, adminEmail)
	u := f.register(t, "jane@example.com")
	f.events.reset()

	adminPrincipal := auth.Principal{UserID: admin.ID, Email: adminEmail}
	userPrincipal := auth.Principal{UserID: u.ID, Email: u.EmailAddress}

	_, err := f.users.Deactivate(ctx, userPrincipal, admin.ID, "")
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	deactivated, err := f.users.Deactivate(ctx, adminPrincipal, u.ID, "")
	require.NoError(t, err)
	assert.False(t, deactivated.Active)
	assert.True(t, deactivated.InactiveReason.Equal(domain.ReasonContactSupport))
	assert.Equal(t, []string{domain.EventAccountSetInactive}, f.events.names())

	_, err = f.users.Deactivate(ctx, adminPrincipal, u.ID, "spam")
	require.ErrorIs(t, err, domain.ErrUserAlreadyInactive)

	activated, err := f.users.Activate(ctx, adminPrincipal, u.ID)
	require.NoError(t, err)
	assert.True(t, activated.Active)
	assert.True(t, activated.InactiveReason.IsZero())
	assert.Len(t, f.events.names(), 1, "activation raises no event")

	_, err = f.users.Activate(ctx, adminPrincipal, u.ID)
	require.ErrorIs(t, err, domain.ErrUserAlreadyActive)

	byEmail, err := f.users.DeactivateByEmail(ctx, "jane@example.com", "spam")
	require.NoError(t, err)
	assert.Equal(t, "spam", byEmail.InactiveReason.String())

	_, err = f.users.ActivateByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
}

func TestUserService_MySnippets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "jane@example.com")

	_, err := f.snippets.Create(ctx, &u.ID, CreateSnippetInput{Title: "a", Language: "go", Content: []byte("x")})
	require.NoError(t, err)
	_, err = f.snippets.Create(ctx, nil, CreateSnippetInput{Title: "anon", Language: "go", Content: []byte("x")})
	require.NoError(t, err)

	list, err := f.users.MySnippets(ctx, u.ID, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "a", list.Items[0].Title)
}
