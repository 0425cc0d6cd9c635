// Package domain contains the core business entities for Sharecode.
// These are plain Go structs with no infrastructure dependencies.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountVisibility controls who can view a user's profile.
type AccountVisibility string

const (
	// VisibilityPublic means the profile is visible to everyone.
	VisibilityPublic AccountVisibility = "public"

	// VisibilityPrivate means the profile is visible only to its owner.
	VisibilityPrivate AccountVisibility = "private"
)

// IsValid returns true if the visibility is a known value.
func (v AccountVisibility) IsValid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// AccountSetting holds per-user preferences.
type AccountSetting struct {
	EnableNotificationsForMentions bool `json:"enableNotificationsForMentions"`
	AllowTagging                   bool `json:"allowTagging"`
}

// DefaultAccountSetting returns the settings given to new accounts.
func DefaultAccountSetting() AccountSetting {
	return AccountSetting{
		EnableNotificationsForMentions: true,
		AllowTagging:                   true,
	}
}

// InactiveReason explains why an account was deactivated.
// The zero value means "no reason" and is only valid on active accounts.
type InactiveReason struct {
	value string
}

// Predefined reasons. They are compared by value.
var (
	// ReasonInvalidPassword is set when too many logins failed.
	ReasonInvalidPassword = InactiveReason{value: "Wrong password limit reached"}

	// ReasonContactSupport is set when an operator suspends the account.
	ReasonContactSupport = InactiveReason{value: "Your account has been temporarily suspended, Please contact support!"}
)

// NewInactiveReason creates a reason from text. Blank text is rejected.
func NewInactiveReason(text string) (InactiveReason, error) {
	if strings.TrimSpace(text) == "" {
		return InactiveReason{}, ErrInvalidInactiveReason
	}
	return InactiveReason{value: text}, nil
}

// ParseInactiveReason converts a value read from storage.
// Empty text yields the zero reason.
func ParseInactiveReason(text string) InactiveReason {
	return InactiveReason{value: text}
}

// String returns the reason text.
func (r InactiveReason) String() string { return r.value }

// IsZero reports whether no reason is set.
func (r InactiveReason) IsZero() bool { return r.value == "" }

// Equal compares two reasons by value.
func (r InactiveReason) Equal(other InactiveReason) bool { return r.value == other.value }

// MarshalText implements encoding.TextMarshaler.
func (r InactiveReason) MarshalText() ([]byte, error) { return []byte(r.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *InactiveReason) UnmarshalText(b []byte) error {
	r.value = string(b)
	return nil
}

// User is the account aggregate. Lifecycle methods enqueue domain events;
// callers drain them after the change is persisted.
type User struct {
	AggregateRoot `json:"-"`

	ID             uuid.UUID         `json:"id"`
	EmailAddress   string            `json:"emailAddress"`
	FirstName      string            `json:"firstName"`
	MiddleName     string            `json:"middleName,omitempty"`
	LastName       string            `json:"lastName"`
	PasswordHash   string            `json:"-"`
	EmailVerified  bool              `json:"emailVerified"`
	Active         bool              `json:"active"`
	InactiveReason InactiveReason    `json:"inactiveReason"`
	Visibility     AccountVisibility `json:"visibility"`
	ProfilePicture string            `json:"profilePicture,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Setting        AccountSetting    `json:"settings"`
	LastLogin      time.Time         `json:"lastLogin"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`

	// Version is the optimistic concurrency token, bumped on every update.
	Version int64 `json:"-"`
}

// NewUser creates an unverified, active user.
func NewUser(email, firstName, middleName, lastName, passwordHash string, visibility AccountVisibility) *User {
	now := time.Now().UTC()
	if !visibility.IsValid() {
		visibility = VisibilityPublic
	}
	return &User{
		ID:           uuid.New(),
		EmailAddress: strings.ToLower(strings.TrimSpace(email)),
		FirstName:    firstName,
		MiddleName:   middleName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Active:       true,
		Visibility:   visibility,
		Metadata:     map[string]string{},
		Setting:      DefaultAccountSetting(),
		LastLogin:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// FullName joins the name parts, skipping an empty middle name.
func (u *User) FullName() string {
	if u.MiddleName == "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName + " " + u.MiddleName + " " + u.LastName
}

// RaiseCreatedEvent enqueues UserCreated for an unverified user.
// The registration workflow calls it once.
func (u *User) RaiseCreatedEvent() {
	if u.EmailVerified {
		return
	}
	u.RaiseEvent(UserCreated{newUserEvent(u)})
}

// Verify marks the email address as verified.
// Returns false if it already was.
func (u *User) Verify() bool {
	if u.EmailVerified {
		return false
	}
	u.EmailVerified = true
	u.RaiseEvent(UserVerified{newUserEvent(u)})
	return true
}

// Deactivate sets the account inactive with the given reason.
// Returns false if the account is already inactive; the stored reason is kept.
func (u *User) Deactivate(reason InactiveReason) bool {
	if !u.Active {
		return false
	}
	u.Active = false
	u.InactiveReason = reason
	u.RaiseEvent(AccountSetInactive{userEvent: newUserEvent(u), Reason: reason})
	return true
}

// Activate reactivates the account and clears the reason.
// No event is raised.
func (u *User) Activate() bool {
	if u.Active {
		return false
	}
	u.Active = true
	u.InactiveReason = InactiveReason{}
	return true
}

// RequestPasswordReset enqueues RequestPasswordReset. When checkStatus is set,
// accounts locked for ReasonInvalidPassword are refused.
func (u *User) RequestPasswordReset(checkStatus bool) bool {
	if checkStatus && !u.Active && u.InactiveReason.Equal(ReasonInvalidPassword) {
		return false
	}
	u.RaiseEvent(RequestPasswordReset{newUserEvent(u)})
	return true
}

// ResendVerificationEmail enqueues UserCreated again for an unverified user.
func (u *User) ResendVerificationEmail() bool {
	if u.EmailVerified {
		return false
	}
	u.RaiseEvent(UserCreated{newUserEvent(u)})
	return true
}

// SetLastLogin records a successful login.
func (u *User) SetLastLogin() {
	u.LastLogin = time.Now().UTC()
}

// CanAuthenticate returns true if the user is allowed to log in.
func (u *User) CanAuthenticate() bool {
	return u.Active
}

// CanBeViewedBy reports whether the profile is visible to the viewer.
func (u *User) CanBeViewedBy(viewerID uuid.UUID) bool {
	return u.Visibility == VisibilityPublic || u.ID == viewerID
}
