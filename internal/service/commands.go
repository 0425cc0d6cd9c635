package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
)

// Command is a state-changing request routed through a Registry.
type Command interface {
	CommandName() string
}

// handlerFunc is the type-erased form stored in the registry.
type handlerFunc func(ctx context.Context, cmd Command) (any, error)

// Registry maps command names to their handlers. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	handlers map[string]handlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]handlerFunc)}
}

// Register binds the handler for commands of type C. Registering the same
// command twice panics.
func Register[C Command, R any](r *Registry, h func(ctx context.Context, cmd C) (R, error)) {
	var zero C
	name := zero.CommandName()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("service: command %q registered twice", name))
	}
	r.handlers[name] = func(ctx context.Context, cmd Command) (any, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s", ErrUnknownCommand, cmd, name)
		}
		return h(ctx, c)
	}
}

// Has reports whether a handler is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Execute runs the handler registered for cmd and returns its typed result.
func Execute[R any](ctx context.Context, r *Registry, cmd Command) (R, error) {
	var zero R
	h, ok := r.handlers[cmd.CommandName()]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.CommandName())
	}

	out, err := h(ctx, cmd)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	res, ok := out.(R)
	if !ok {
		return zero, fmt.Errorf("command %s returned %T", cmd.CommandName(), out)
	}
	return res, nil
}

// Done is the result of commands without a payload.
type Done struct{}

// User commands.

// RegisterUser creates an account.
type RegisterUser struct{ RegisterInput }

// LoginUser authenticates with email and password.
type LoginUser struct {
	EmailAddress string
	Password     string
}

// RefreshToken exchanges a refresh token.
type RefreshToken struct{ Token string }

// VerifyUser redeems a verification token.
type VerifyUser struct{ Token string }

// ResendVerification re-sends the verification email.
type ResendVerification struct{ EmailAddress string }

// ForgotPassword requests a reset email.
type ForgotPassword struct{ EmailAddress string }

// ResetPassword redeems a reset token.
type ResetPassword struct {
	Token    string
	Password string
}

// UpdateSettings changes account settings.
type UpdateSettings struct {
	UserID uuid.UUID
	UpdateSettingsInput
}

// DeactivateUser is an administrator deactivation.
type DeactivateUser struct {
	Actor    auth.Principal
	TargetID uuid.UUID
	Reason   string
}

// ActivateUser is an administrator reactivation.
type ActivateUser struct {
	Actor    auth.Principal
	TargetID uuid.UUID
}

// Snippet commands.

// CreateSnippet stores a snippet. OwnerID is nil for anonymous snippets.
type CreateSnippet struct {
	OwnerID *uuid.UUID
	CreateSnippetInput
}

// CreateComment adds a comment.
type CreateComment struct {
	AuthorID  uuid.UUID
	SnippetID uuid.UUID
	CreateCommentInput
}

// UpdateAccess grants or changes access.
type UpdateAccess struct {
	Actor     uuid.UUID
	SnippetID uuid.UUID
	GrantAccessInput
}

func (RegisterUser) CommandName() string       { return "user.register" }
func (LoginUser) CommandName() string          { return "user.login" }
func (RefreshToken) CommandName() string       { return "user.refresh" }
func (VerifyUser) CommandName() string         { return "user.verify" }
func (ResendVerification) CommandName() string { return "user.verify.resend" }
func (ForgotPassword) CommandName() string     { return "user.password.forgot" }
func (ResetPassword) CommandName() string      { return "user.password.reset" }
func (UpdateSettings) CommandName() string     { return "user.settings.update" }
func (DeactivateUser) CommandName() string     { return "user.deactivate" }
func (ActivateUser) CommandName() string       { return "user.activate" }
func (CreateSnippet) CommandName() string      { return "snippet.create" }
func (CreateComment) CommandName() string      { return "snippet.comment.create" }
func (UpdateAccess) CommandName() string       { return "snippet.access.update" }

// NewCommandRegistry binds every command to its service method.
func NewCommandRegistry(users *UserService, snippets *SnippetService) *Registry {
	r := NewRegistry()

	Register(r, func(ctx context.Context, c RegisterUser) (*domain.User, error) {
		return users.Register(ctx, c.RegisterInput)
	})
	Register(r, func(ctx context.Context, c LoginUser) (*LoginOutput, error) {
		return users.Login(ctx, c.EmailAddress, c.Password)
	})
	Register(r, func(ctx context.Context, c RefreshToken) (*LoginOutput, error) {
		return users.Refresh(ctx, c.Token)
	})
	Register(r, func(ctx context.Context, c VerifyUser) (*domain.User, error) {
		return users.Verify(ctx, c.Token)
	})
	Register(r, func(ctx context.Context, c ResendVerification) (Done, error) {
		return Done{}, users.ResendVerification(ctx, c.EmailAddress)
	})
	Register(r, func(ctx context.Context, c ForgotPassword) (Done, error) {
		return Done{}, users.ForgotPassword(ctx, c.EmailAddress)
	})
	Register(r, func(ctx context.Context, c ResetPassword) (Done, error) {
		return Done{}, users.ResetPassword(ctx, c.Token, c.Password)
	})
	Register(r, func(ctx context.Context, c UpdateSettings) (*domain.User, error) {
		return users.UpdateSettings(ctx, c.UserID, c.UpdateSettingsInput)
	})
	Register(r, func(ctx context.Context, c DeactivateUser) (*domain.User, error) {
		return users.Deactivate(ctx, c.Actor, c.TargetID, c.Reason)
	})
	Register(r, func(ctx context.Context, c ActivateUser) (*domain.User, error) {
		return users.Activate(ctx, c.Actor, c.TargetID)
	})

	Register(r, func(ctx context.Context, c CreateSnippet) (*domain.Snippet, error) {
		return snippets.Create(ctx, c.OwnerID, c.CreateSnippetInput)
	})
	Register(r, func(ctx context.Context, c CreateComment) (*domain.SnippetComment, error) {
		return snippets.CreateComment(ctx, c.AuthorID, c.SnippetID, c.CreateCommentInput)
	})
	Register(r, func(ctx context.Context, c UpdateAccess) (domain.AccessControlRecord, error) {
		return snippets.UpdateAccess(ctx, c.Actor, c.SnippetID, c.GrantAccessInput)
	})

	return r
}
