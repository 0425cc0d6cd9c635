package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInactiveReason indicates an empty deactivation reason.
	ErrInvalidInactiveReason = errors.New("inactive reason must not be empty")

	// ErrVersionConflict indicates the aggregate was modified concurrently.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUserAlreadyVerified indicates the email address is already verified.
	ErrUserAlreadyVerified = errors.New("user email already verified")

	// ErrUserAlreadyActive indicates an activate request on an active account.
	ErrUserAlreadyActive = errors.New("user account is already active")

	// ErrUserAlreadyInactive indicates a deactivate request on an inactive account.
	ErrUserAlreadyInactive = errors.New("user account is already inactive")

	// ErrPasswordResetNotAllowed indicates the account state blocks a reset.
	ErrPasswordResetNotAllowed = errors.New("password reset not allowed for this account")

	// ErrInvalidToken indicates a verification or reset token is unknown or expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidPassword indicates a password that does not meet requirements.
	ErrInvalidPassword = errors.New("password must be between 8 and 72 characters")

	// ErrInvalidName indicates a missing first or last name.
	ErrInvalidName = errors.New("first and last name are required")

	// ===========================================
	// Snippet Errors
	// ===========================================

	// ErrSnippetNotFound indicates the requested snippet does not exist.
	ErrSnippetNotFound = errors.New("snippet not found")

	// ErrSnippetTitleLength indicates the title length is out of range.
	ErrSnippetTitleLength = errors.New("snippet title must be between 1 and 200 characters")

	// ErrSnippetLanguageRequired indicates a missing language.
	ErrSnippetLanguageRequired = errors.New("snippet language is required")

	// ErrSnippetContentRequired indicates an empty snippet file.
	ErrSnippetContentRequired = errors.New("snippet content is required")

	// ErrSnippetContentTooLarge indicates the snippet file exceeds the limit.
	ErrSnippetContentTooLarge = errors.New("snippet content exceeds 2MB")

	// ErrTooManyTags indicates more tags than allowed.
	ErrTooManyTags = errors.New("snippet can have at most 10 tags")

	// ErrCommentEmpty indicates an empty comment.
	ErrCommentEmpty = errors.New("comment text is required")

	// ErrCommentTooLong indicates the comment exceeds the limit.
	ErrCommentTooLong = errors.New("comment exceeds 4000 characters")

	// ErrCommentNotFound indicates the parent comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the accessor lacks the required capability.
	ErrAccessDenied = errors.New("access denied")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., snippet ID).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
