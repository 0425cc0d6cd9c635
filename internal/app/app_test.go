package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/config"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/email"
	"github.com/sharecode/sharecode-backend/internal/notification"
	"github.com/sharecode/sharecode-backend/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{MaxBodySize: 1 << 20},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "app.db")},
		Auth: config.AuthConfig{
			JWTSecret:            "0123456789abcdef0123456789abcdef",
			Issuer:               "sharecode",
			AccessTokenTTL:       time.Minute,
			RefreshTokenTTL:      time.Hour,
			BcryptCost:           4,
			MaxFailedLogins:      5,
			FailedLoginWindow:    time.Minute,
			VerificationTokenTTL: time.Hour,
			ResetTokenTTL:        time.Hour,
		},
		Cache:   config.CacheConfig{Prefix: "test", SnippetTTL: time.Minute},
		Email:   config.EmailConfig{From: "no-reply@sharecode.test", LinkBaseURL: "https://sharecode.test"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestApp_RegistrationMailFlow(t *testing.T) {
	ctx := context.Background()
	mail := &email.Recorder{}

	a, err := New(ctx, testConfig(t), zerolog.Nop(), Options{Mail: mail})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	registered, err := service.Execute[*domain.User](ctx, a.Commands, service.RegisterUser{RegisterInput: service.RegisterInput{
		EmailAddress: "jane@sharecode.test",
		FirstName:    "Jane",
		LastName:     "Doe",
		Password:     "correct-horse",
	}})
	require.NoError(t, err)
	assert.False(t, registered.EmailVerified)

	a.Dispatcher.Wait()
	msgs := mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, email.TemplateVerifyUserEmail, msgs[0].Template)
	token := msgs[0].Placeholders[notification.PlaceholderToken]
	require.NotEmpty(t, token)
	assert.Contains(t, msgs[0].Placeholders[notification.PlaceholderVerificationURL], "https://sharecode.test/verify?token=")

	user, err := a.Users.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	a.Dispatcher.Wait()
	msgs = mail.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, email.TemplateWelcomeUser, msgs[1].Template)
}

func TestApp_RouterServesHealthAndMetrics(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zerolog.Nop(), Options{Mail: &email.Recorder{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	h := a.Router().Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sharecode_http_requests_total")
}

func TestNew_RejectsWeakSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"

	_, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	assert.Error(t, err)
}
