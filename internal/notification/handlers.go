// Package notification turns user lifecycle events into emails.
package notification

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/cache"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/email"
	"github.com/sharecode/sharecode-backend/internal/event"
	"github.com/sharecode/sharecode-backend/internal/pkg/crypto"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// Placeholder keys used by the mail templates.
const (
	PlaceholderUser            = "USER"
	PlaceholderReason          = "REASON"
	PlaceholderToken           = "TOKEN"
	PlaceholderVerificationURL = "VERIFICATION_URL"
	PlaceholderResetURL        = "RESET_URL"
)

// Config controls token lifetimes and link generation.
type Config struct {
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	LinkBaseURL          string
}

// Notifier handles user lifecycle events.
type Notifier struct {
	mail   email.Client
	tokens *cache.ResourceCache
	cfg    Config
	logger zerolog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(mail email.Client, tokens *cache.ResourceCache, cfg Config, logger zerolog.Logger) *Notifier {
	return &Notifier{
		mail:   mail,
		tokens: tokens,
		cfg:    cfg,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Register wires every handler into the dispatcher.
func (n *Notifier) Register(d *event.Dispatcher) {
	d.Register(domain.EventUserCreated, event.HandlerFunc(n.OnUserCreated))
	d.Register(domain.EventUserVerified, event.HandlerFunc(n.OnUserVerified))
	d.Register(domain.EventAccountSetInactive, event.HandlerFunc(n.OnAccountSetInactive))
	d.Register(domain.EventRequestPasswordReset, event.HandlerFunc(n.OnRequestPasswordReset))
}

// OnUserCreated issues a verification token and mails the verification link.
func (n *Notifier) OnUserCreated(ctx context.Context, e domain.Event) error {
	ev, ok := e.(domain.UserCreated)
	if !ok {
		return unexpected(e)
	}

	token, err := n.issueToken(ctx, repository.ResourceVerificationToken, ev.UserID.String(), n.cfg.VerificationTokenTTL)
	if err != nil {
		return err
	}

	err = n.mail.SendTemplateMail(ctx, email.TemplateVerifyUserEmail, email.To(ev.EmailAddress),
		map[string]string{
			PlaceholderUser:            ev.FullName,
			PlaceholderToken:           token,
			PlaceholderVerificationURL: n.link("verify", token),
		},
		map[string]string{PlaceholderUser: ev.FullName},
	)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	n.logger.Info().Str("email", ev.EmailAddress).Msg("verification email sent")
	return nil
}

// OnUserVerified sends the welcome mail.
func (n *Notifier) OnUserVerified(ctx context.Context, e domain.Event) error {
	ev, ok := e.(domain.UserVerified)
	if !ok {
		return unexpected(e)
	}

	err := n.mail.SendTemplateMail(ctx, email.TemplateWelcomeUser, email.To(ev.EmailAddress),
		map[string]string{PlaceholderUser: ev.FullName},
		map[string]string{email.TemplateWelcomeUser: ev.FullName},
	)
	if err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	n.logger.Info().Str("email", ev.EmailAddress).Msg("welcome email sent")
	return nil
}

// OnAccountSetInactive tells the user why the account was deactivated.
func (n *Notifier) OnAccountSetInactive(ctx context.Context, e domain.Event) error {
	ev, ok := e.(domain.AccountSetInactive)
	if !ok {
		return unexpected(e)
	}

	err := n.mail.SendTemplateMail(ctx, email.TemplateAccountInactive, email.To(ev.EmailAddress),
		map[string]string{
			PlaceholderUser:   ev.FullName,
			PlaceholderReason: ev.Reason.String(),
		},
		map[string]string{PlaceholderUser: ev.FullName},
	)
	if err != nil {
		return fmt.Errorf("failed to send account inactive email: %w", err)
	}

	n.logger.Info().Str("email", ev.EmailAddress).Str("reason", ev.Reason.String()).Msg("account inactive email sent")
	return nil
}

// OnRequestPasswordReset issues a reset token and mails the reset link.
func (n *Notifier) OnRequestPasswordReset(ctx context.Context, e domain.Event) error {
	ev, ok := e.(domain.RequestPasswordReset)
	if !ok {
		return unexpected(e)
	}

	token, err := n.issueToken(ctx, repository.ResourceResetToken, ev.UserID.String(), n.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	err = n.mail.SendTemplateMail(ctx, email.TemplateResetPassword, email.To(ev.EmailAddress),
		map[string]string{
			PlaceholderUser:     ev.FullName,
			PlaceholderToken:    token,
			PlaceholderResetURL: n.link("reset-password", token),
		},
		map[string]string{PlaceholderUser: ev.FullName},
	)
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	n.logger.Info().Str("email", ev.EmailAddress).Msg("password reset email sent")
	return nil
}

// issueToken stores the token hash mapped to the user id.
func (n *Notifier) issueToken(ctx context.Context, resourceType, userID string, ttl time.Duration) (string, error) {
	token, err := crypto.GenerateToken(crypto.TokenBytes)
	if err != nil {
		return "", err
	}
	if err := n.tokens.PutString(ctx, resourceType, crypto.HashToken(token), userID, ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (n *Notifier) link(path, token string) string {
	return strings.TrimRight(n.cfg.LinkBaseURL, "/") + "/" + path + "?token=" + url.QueryEscape(token)
}

func unexpected(e domain.Event) error {
	return fmt.Errorf("unexpected event type %T for %s", e, e.EventName())
}
