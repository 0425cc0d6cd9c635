// Package repository defines data access interfaces for Sharecode.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, embedded SQLite) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sharecode/sharecode-backend/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists the user if its Version still matches the stored row.
	// On success user.Version is incremented. Returns domain.ErrVersionConflict
	// when no row was updated.
	Update(ctx context.Context, user *domain.User) error

	// IsEmailUnique reports whether no user has the given email.
	IsEmailUnique(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Snippet Repository
// =============================================================================

// SnippetRepository defines the interface for snippet data access.
type SnippetRepository interface {
	// Create stores a snippet. Owned snippets also get a full access grant
	// for the owner, written in the same transaction.
	Create(ctx context.Context, snippet *domain.Snippet) error

	// GetByID retrieves a snippet with its content.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Snippet, error)

	// ListByOwner returns the owner's snippets with comment counts, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (*ListResult[domain.SnippetSummary], error)

	// IncrementViews atomically bumps the view counter.
	IncrementViews(ctx context.Context, id uuid.UUID) error

	// GetAccess returns the explicit grant of userID on the snippet.
	// Returns ErrNotFound if there is none.
	GetAccess(ctx context.Context, snippetID, userID uuid.UUID) (*domain.SnippetAccessControl, error)

	// UpsertAccess creates or replaces a grant.
	UpsertAccess(ctx context.Context, acl *domain.SnippetAccessControl) error

	// ListAccess returns every grant on the snippet.
	ListAccess(ctx context.Context, snippetID uuid.UUID) ([]*domain.SnippetAccessControl, error)
}

// =============================================================================
// Comment Repository
// =============================================================================

// CommentRepository defines the interface for snippet comment data access.
type CommentRepository interface {
	// Create stores a comment.
	Create(ctx context.Context, comment *domain.SnippetComment) error

	// GetByID retrieves a comment by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SnippetComment, error)

	// ListBySnippet returns comments on a snippet, oldest first.
	ListBySnippet(ctx context.Context, snippetID uuid.UUID, opts ListOptions) (*ListResult[domain.SnippetComment], error)

	// CountBySnippet returns the number of comments on a snippet.
	CountBySnippet(ctx context.Context, snippetID uuid.UUID) (int64, error)
}

// =============================================================================
// Common Types
// =============================================================================

// Default and maximum page sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// Normalize clamps Offset and Limit into their valid ranges.
func (o ListOptions) Normalize() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T `json:"items"`

	// Total is the total number of items (without pagination).
	Total int64 `json:"total"`

	// Offset is the current offset.
	Offset int `json:"offset"`

	// Limit is the current limit.
	Limit int `json:"limit"`
}

// Repositories holds all repository instances.
type Repositories struct {
	User    UserRepository
	Snippet SnippetRepository
	Comment CommentRepository
}

// DatabaseHealth is an interface for database health checks.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}
