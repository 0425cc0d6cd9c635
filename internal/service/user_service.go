package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/cache"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/event"
	"github.com/sharecode/sharecode-backend/internal/pkg/crypto"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// Password length limits. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// TokenIssuer signs and validates access and refresh tokens.
type TokenIssuer interface {
	Issue(p auth.Principal) (*auth.TokenPair, error)
	Parse(raw string, want auth.TokenType) (auth.Principal, error)
}

// UserServiceConfig holds the account policy.
type UserServiceConfig struct {
	BcryptCost        int
	MaxFailedLogins   int
	FailedLoginWindow time.Duration

	// IsAdmin reports whether an email belongs to an administrator.
	IsAdmin func(email string) bool
}

// UserService handles account registration, authentication and lifecycle.
type UserService struct {
	users    repository.UserRepository
	snippets repository.SnippetRepository
	cache    *cache.ResourceCache
	tokens   TokenIssuer
	events   event.Publisher
	cfg      UserServiceConfig
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	users repository.UserRepository,
	snippets repository.SnippetRepository,
	resourceCache *cache.ResourceCache,
	tokens TokenIssuer,
	events event.Publisher,
	cfg UserServiceConfig,
	logger zerolog.Logger,
) *UserService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.IsAdmin == nil {
		cfg.IsAdmin = func(string) bool { return false }
	}
	return &UserService{
		users:    users,
		snippets: snippets,
		cache:    resourceCache,
		tokens:   tokens,
		events:   events,
		cfg:      cfg,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput contains the data needed to create an account.
type RegisterInput struct {
	EmailAddress string
	FirstName    string
	MiddleName   string
	LastName     string
	Password     string
	Visibility   domain.AccountVisibility
}

// LoginOutput is the authenticated user with its tokens.
type LoginOutput struct {
	User   *domain.User
	Tokens *auth.TokenPair
}

// Register creates an unverified account and raises UserCreated.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.EmailAddress = strings.ToLower(strings.TrimSpace(input.EmailAddress))
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.MiddleName = strings.TrimSpace(input.MiddleName)
	input.LastName = strings.TrimSpace(input.LastName)

	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	unique, err := s.users.IsEmailUnique(ctx, input.EmailAddress)
	if err != nil {
		s.logger.Error().Err(err).Str("email", input.EmailAddress).Msg("failed to check email uniqueness")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !unique {
		return nil, fmt.Errorf("%w: email '%s'", domain.ErrUserAlreadyExists, input.EmailAddress)
	}

	passwordHash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(input.EmailAddress, input.FirstName, input.MiddleName, input.LastName, passwordHash, input.Visibility)
	user.RaiseCreatedEvent()

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("email", input.EmailAddress).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.publish(ctx, user)

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("email", user.EmailAddress).
		Msg("user registered")

	return user, nil
}

// Login verifies credentials and issues tokens. Repeated failures within
// the configured window deactivate the account with ReasonInvalidPassword.
func (s *UserService) Login(ctx context.Context, emailAddress, password string) (*LoginOutput, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(emailAddress))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", emailAddress).Msg("user not found during authentication")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.CanAuthenticate() {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("inactive user attempted authentication")
		return nil, inactiveError(user)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.recordFailedLogin(ctx, user)
	}

	if err := s.cache.Reset(ctx, repository.ResourceFailedLogin, user.ID.String()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to reset failed-login counter")
	}

	user.SetLastLogin()
	if err := s.users.Update(ctx, user); err != nil {
		// The login itself still succeeds; only the timestamp is lost.
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record last login")
	}

	tokens, err := s.tokens.Issue(auth.Principal{UserID: user.ID, Email: user.EmailAddress})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue tokens")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user authenticated")
	return &LoginOutput{User: user, Tokens: tokens}, nil
}

func (s *UserService) recordFailedLogin(ctx context.Context, user *domain.User) error {
	log := s.logger.With().Str("user_id", user.ID.String()).Logger()

	attempts, err := s.cache.Count(ctx, repository.ResourceFailedLogin, user.ID.String(), s.cfg.FailedLoginWindow)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count failed login")
		return domain.ErrInvalidCredentials
	}
	log.Debug().Int64("attempts", attempts).Msg("invalid password during authentication")

	if s.cfg.MaxFailedLogins <= 0 || attempts < int64(s.cfg.MaxFailedLogins) {
		return domain.ErrInvalidCredentials
	}

	if !user.Deactivate(domain.ReasonInvalidPassword) {
		return domain.ErrInvalidCredentials
	}
	if err := s.users.Update(ctx, user); err != nil {
		log.Error().Err(err).Msg("failed to lock account")
		return domain.ErrInvalidCredentials
	}
	s.publish(ctx, user)

	if err := s.cache.Reset(ctx, repository.ResourceFailedLogin, user.ID.String()); err != nil {
		log.Warn().Err(err).Msg("failed to reset failed-login counter")
	}

	log.Warn().Int64("attempts", attempts).Msg("account locked after repeated failed logins")
	return inactiveError(user)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*LoginOutput, error) {
	p, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	user, err := s.loadUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanAuthenticate() {
		return nil, inactiveError(user)
	}

	tokens, err := s.tokens.Issue(auth.Principal{UserID: user.ID, Email: user.EmailAddress})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return &LoginOutput{User: user, Tokens: tokens}, nil
}

// Verify consumes a verification token and marks the email verified.
func (s *UserService) Verify(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.consumeToken(ctx, repository.ResourceVerificationToken, token)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Verify() {
		return nil, domain.ErrUserAlreadyVerified
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("email verified")
	return user, nil
}

// ResendVerification raises UserCreated again for an unverified account.
// Unknown addresses are ignored so the endpoint does not reveal accounts.
func (s *UserService) ResendVerification(ctx context.Context, emailAddress string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(emailAddress))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", emailAddress).Msg("verification resend for unknown email")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.ResendVerificationEmail() {
		return domain.ErrUserAlreadyVerified
	}
	s.publish(ctx, user)
	return nil
}

// ForgotPassword raises RequestPasswordReset. Accounts locked by failed
// logins are refused; unknown addresses are ignored.
func (s *UserService) ForgotPassword(ctx context.Context, emailAddress string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(emailAddress))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", emailAddress).Msg("password reset for unknown email")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.RequestPasswordReset(true) {
		return domain.ErrPasswordResetNotAllowed
	}
	s.publish(ctx, user)
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		v := NewValidationError()
		v.AddError("password", err)
		return v
	}

	userID, err := s.consumeToken(ctx, repository.ResourceResetToken, token)
	if err != nil {
		return err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	passwordHash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash

	if err := s.save(ctx, user); err != nil {
		return err
	}

	if err := s.cache.Reset(ctx, repository.ResourceFailedLogin, user.ID.String()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to reset failed-login counter")
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("password reset")
	return nil
}

// Get returns the profile of id as seen by viewer. viewer is uuid.Nil
// for anonymous callers.
func (s *UserService) Get(ctx context.Context, viewer, id uuid.UUID) (*domain.User, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.CanBeViewedBy(viewer) {
		return nil, domain.NewDomainError(domain.ErrAccessDenied, "profile is private", id.String())
	}
	return user, nil
}

// UpdateSettingsInput holds optional setting changes. Nil fields are kept.
type UpdateSettingsInput struct {
	EnableNotificationsForMentions *bool
	AllowTagging                   *bool
	Visibility                     *domain.AccountVisibility
}

// UpdateSettings applies the account setting changes.
func (s *UserService) UpdateSettings(ctx context.Context, userID uuid.UUID, input UpdateSettingsInput) (*domain.User, error) {
	if input.Visibility != nil && !input.Visibility.IsValid() {
		v := NewValidationError()
		v.Add("visibility", "must be 'public' or 'private'")
		return nil, v
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.EnableNotificationsForMentions != nil {
		user.Setting.EnableNotificationsForMentions = *input.EnableNotificationsForMentions
	}
	if input.AllowTagging != nil {
		user.Setting.AllowTagging = *input.AllowTagging
	}
	if input.Visibility != nil {
		user.Visibility = *input.Visibility
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// MySnippets lists the snippets owned by userID.
func (s *UserService) MySnippets(ctx context.Context, userID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.SnippetSummary], error) {
	result, err := s.snippets.ListByOwner(ctx, userID, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list snippets")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// Deactivate sets the target account inactive. actor must be an administrator.
// A blank reason falls back to ReasonContactSupport.
func (s *UserService) Deactivate(ctx context.Context, actor auth.Principal, targetID uuid.UUID, reasonText string) (*domain.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.deactivate(ctx, user, reasonText); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("actor", actor.UserID.String()).
		Str("reason", user.InactiveReason.String()).
		Msg("user deactivated")
	return user, nil
}

// Activate reactivates the target account. actor must be an administrator.
func (s *UserService) Activate(ctx context.Context, actor auth.Principal, targetID uuid.UUID) (*domain.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.activate(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("actor", actor.UserID.String()).
		Msg("user activated")
	return user, nil
}

// DeactivateByEmail is the operator entry point used by the admin CLI.
func (s *UserService) DeactivateByEmail(ctx context.Context, emailAddress, reasonText string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return nil, err
	}
	if err := s.deactivate(ctx, user, reasonText); err != nil {
		return nil, err
	}
	return user, nil
}

// ActivateByEmail is the operator entry point used by the admin CLI.
func (s *UserService) ActivateByEmail(ctx context.Context, emailAddress string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return nil, err
	}
	if err := s.activate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) deactivate(ctx context.Context, user *domain.User, reasonText string) error {
	reason := domain.ReasonContactSupport
	if strings.TrimSpace(reasonText) != "" {
		r, err := domain.NewInactiveReason(strings.TrimSpace(reasonText))
		if err != nil {
			return err
		}
		reason = r
	}

	if !user.Deactivate(reason) {
		return domain.ErrUserAlreadyInactive
	}
	return s.save(ctx, user)
}

func (s *UserService) activate(ctx context.Context, user *domain.User) error {
	if !user.Activate() {
		return domain.ErrUserAlreadyActive
	}
	if err := s.save(ctx, user); err != nil {
		return err
	}
	if err := s.cache.Reset(ctx, repository.ResourceFailedLogin, user.ID.String()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to reset failed-login counter")
	}
	return nil
}

func (s *UserService) requireAdmin(actor auth.Principal) error {
	if !s.cfg.IsAdmin(actor.Email) {
		return domain.NewDomainError(domain.ErrAccessDenied, "administrator role required", "")
	}
	return nil
}

// save persists the user and then publishes its drained events.
func (s *UserService) save(ctx context.Context, user *domain.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.publish(ctx, user)
	return nil
}

func (s *UserService) publish(ctx context.Context, user *domain.User) {
	if events := user.DrainEvents(); len(events) > 0 && s.events != nil {
		s.events.Publish(ctx, events...)
	}
}

func (s *UserService) loadUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// consumeToken redeems a single-use token and returns the user it was issued to.
func (s *UserService) consumeToken(ctx context.Context, resourceType, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, domain.ErrInvalidToken
	}

	raw, err := s.cache.TakeString(ctx, resourceType, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return uuid.Nil, domain.ErrInvalidToken
		}
		s.logger.Error().Err(err).Str("resource", resourceType).Msg("failed to read token")
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return id, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return "", fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}
	return string(hash), nil
}

func inactiveError(user *domain.User) error {
	return domain.NewDomainError(domain.ErrUserInactive, user.InactiveReason.String(), "")
}

func validateRegisterInput(input RegisterInput) error {
	v := NewValidationError()

	if err := validateEmail(input.EmailAddress); err != nil {
		v.AddError("emailAddress", err)
	}
	if input.FirstName == "" {
		v.AddError("firstName", domain.ErrInvalidName)
	}
	if input.LastName == "" {
		v.AddError("lastName", domain.ErrInvalidName)
	}
	if err := validatePassword(input.Password); err != nil {
		v.AddError("password", err)
	}
	if input.Visibility != "" && !input.Visibility.IsValid() {
		v.Add("visibility", "must be 'public' or 'private'")
	}

	return v.OrNil()
}

func validateEmail(emailAddress string) error {
	addr, err := mail.ParseAddress(emailAddress)
	if err != nil || addr.Address != emailAddress {
		return domain.ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return domain.ErrInvalidPassword
	}
	return nil
}
