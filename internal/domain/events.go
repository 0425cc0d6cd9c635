package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event names used by the dispatcher registry.
const (
	EventUserCreated          = "user.created"
	EventUserVerified         = "user.verified"
	EventAccountSetInactive   = "user.account_set_inactive"
	EventRequestPasswordReset = "user.request_password_reset"
)

// Event is an immutable record of something that happened to an aggregate.
type Event interface {
	// EventName identifies the event type.
	EventName() string

	// AggregateID is the ID of the aggregate that raised the event.
	AggregateID() uuid.UUID

	// OccurredAt is when the event was raised.
	OccurredAt() time.Time
}

// AggregateRoot holds the pending events of an aggregate until they are drained.
// It is not safe for concurrent use.
type AggregateRoot struct {
	events []Event
}

// RaiseEvent appends an event to the pending queue.
func (a *AggregateRoot) RaiseEvent(e Event) {
	a.events = append(a.events, e)
}

// PendingEvents returns a copy of the pending events without draining them.
func (a *AggregateRoot) PendingEvents() []Event {
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}

// DrainEvents returns the pending events and empties the queue.
func (a *AggregateRoot) DrainEvents() []Event {
	out := a.events
	a.events = nil
	return out
}

// userEvent carries the fields shared by all user lifecycle events.
type userEvent struct {
	UserID       uuid.UUID `json:"userId"`
	EmailAddress string    `json:"emailAddress"`
	FullName     string    `json:"fullName"`
	At           time.Time `json:"occurredAt"`
}

func newUserEvent(u *User) userEvent {
	return userEvent{
		UserID:       u.ID,
		EmailAddress: u.EmailAddress,
		FullName:     u.FullName(),
		At:           time.Now().UTC(),
	}
}

func (e userEvent) AggregateID() uuid.UUID { return e.UserID }
func (e userEvent) OccurredAt() time.Time  { return e.At }

// UserCreated is raised on registration and when a verification email is re-requested.
type UserCreated struct{ userEvent }

// EventName implements Event.
func (UserCreated) EventName() string { return EventUserCreated }

// UserVerified is raised when the email address is verified.
type UserVerified struct{ userEvent }

// EventName implements Event.
func (UserVerified) EventName() string { return EventUserVerified }

// AccountSetInactive is raised when an active account is deactivated.
type AccountSetInactive struct {
	userEvent
	Reason InactiveReason `json:"reason"`
}

// EventName implements Event.
func (AccountSetInactive) EventName() string { return EventAccountSetInactive }

// RequestPasswordReset is raised when a password reset was accepted.
type RequestPasswordReset struct{ userEvent }

// EventName implements Event.
func (RequestPasswordReset) EventName() string { return EventRequestPasswordReset }
