package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser() *User {
	return NewUser("Jane@Example.com ", "Jane", "", "Doe", "hash", VisibilityPublic)
}

func TestNewUser_Defaults(t *testing.T) {
	u := newTestUser()

	assert.Equal(t, "jane@example.com", u.EmailAddress)
	assert.False(t, u.EmailVerified)
	assert.True(t, u.Active)
	assert.True(t, u.InactiveReason.IsZero())
	assert.Equal(t, int64(1), u.Version)
	assert.Equal(t, DefaultAccountSetting(), u.Setting)
	assert.Empty(t, u.PendingEvents())
}

func TestNewUser_InvalidVisibilityFallsBackToPublic(t *testing.T) {
	u := NewUser("a@b.io", "Ann", "", "Lee", "h", AccountVisibility("hidden"))
	assert.Equal(t, VisibilityPublic, u.Visibility)
}

func TestUser_FullName(t *testing.T) {
	u := newTestUser()
	assert.Equal(t, "Jane Doe", u.FullName())

	u.MiddleName = "Q"
	assert.Equal(t, "Jane Q Doe", u.FullName())
}

func TestUser_RaiseCreatedEvent(t *testing.T) {
	u := newTestUser()
	u.RaiseCreatedEvent()

	events := u.DrainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(UserCreated)
	require.True(t, ok)
	assert.Equal(t, u.ID, created.AggregateID())
	assert.Equal(t, "jane@example.com", created.EmailAddress)
	assert.Equal(t, "Jane Doe", created.FullName)
	assert.Empty(t, u.DrainEvents())

	u.Verify()
	u.DrainEvents()
	u.RaiseCreatedEvent()
	assert.Empty(t, u.PendingEvents())
}

func TestUser_VerifyTwice(t *testing.T) {
	u := newTestUser()

	require.True(t, u.Verify())
	events := u.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserVerified, events[0].EventName())
	assert.True(t, u.EmailVerified)

	require.False(t, u.Verify())
	assert.Empty(t, u.DrainEvents())
}

func TestUser_DeactivateKeepsFirstReason(t *testing.T) {
	u := newTestUser()
	x, err := NewInactiveReason("x")
	require.NoError(t, err)
	y, err := NewInactiveReason("y")
	require.NoError(t, err)

	require.True(t, u.Deactivate(x))
	require.False(t, u.Deactivate(y))

	assert.False(t, u.Active)
	assert.Equal(t, "x", u.InactiveReason.String())

	events := u.DrainEvents()
	require.Len(t, events, 1)
	inactive, ok := events[0].(AccountSetInactive)
	require.True(t, ok)
	assert.True(t, inactive.Reason.Equal(x))
}

func TestUser_ActivateIsSilent(t *testing.T) {
	u := newTestUser()
	require.False(t, u.Activate())

	u.Deactivate(ReasonContactSupport)
	u.DrainEvents()

	require.True(t, u.Activate())
	assert.True(t, u.Active)
	assert.True(t, u.InactiveReason.IsZero())
	assert.Empty(t, u.DrainEvents())
}

func TestUser_RequestPasswordReset(t *testing.T) {
	tests := []struct {
		name        string
		reason      *InactiveReason
		checkStatus bool
		want        bool
	}{
		{name: "active user", checkStatus: true, want: true},
		{name: "locked by invalid password", reason: &ReasonInvalidPassword, checkStatus: true, want: false},
		{name: "locked by invalid password without status check", reason: &ReasonInvalidPassword, checkStatus: false, want: true},
		{name: "suspended for another reason", reason: &ReasonContactSupport, checkStatus: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUser()
			if tt.reason != nil {
				u.Deactivate(*tt.reason)
				u.DrainEvents()
			}

			got := u.RequestPasswordReset(tt.checkStatus)
			assert.Equal(t, tt.want, got)

			events := u.DrainEvents()
			if tt.want {
				require.Len(t, events, 1)
				assert.Equal(t, EventRequestPasswordReset, events[0].EventName())
			} else {
				assert.Empty(t, events)
			}
			if tt.reason != nil {
				assert.False(t, u.Active, "reset request must not change the active flag")
			}
		})
	}
}

func TestUser_ResendVerificationEmail(t *testing.T) {
	u := newTestUser()
	require.True(t, u.ResendVerificationEmail())
	events := u.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserCreated, events[0].EventName())
	assert.False(t, u.EmailVerified)

	u.Verify()
	u.DrainEvents()
	require.False(t, u.ResendVerificationEmail())
	assert.Empty(t, u.DrainEvents())
}

func TestUser_CanBeViewedBy(t *testing.T) {
	u := newTestUser()
	other := uuid.New()
	assert.True(t, u.CanBeViewedBy(other))

	u.Visibility = VisibilityPrivate
	assert.False(t, u.CanBeViewedBy(other))
	assert.True(t, u.CanBeViewedBy(u.ID))
}

func TestInactiveReason(t *testing.T) {
	_, err := NewInactiveReason("   ")
	require.ErrorIs(t, err, ErrInvalidInactiveReason)

	r, err := NewInactiveReason("Wrong password limit reached")
	require.NoError(t, err)
	assert.True(t, r.Equal(ReasonInvalidPassword))
	assert.Equal(t, ReasonInvalidPassword, r)
	assert.False(t, r.Equal(ReasonContactSupport))

	assert.True(t, ParseInactiveReason("").IsZero())
	assert.Equal(t, ReasonContactSupport, ParseInactiveReason(ReasonContactSupport.String()))
}

func TestInactiveReason_JSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Reason InactiveReason `json:"reason"`
	}{ReasonInvalidPassword})
	require.NoError(t, err)
	assert.JSONEq(t, `{"reason":"Wrong password limit reached"}`, string(raw))

	var decoded struct {
		Reason InactiveReason `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Reason.Equal(ReasonInvalidPassword))
}

func TestAggregateRoot_DrainEmptiesQueue(t *testing.T) {
	u := newTestUser()
	u.RaiseCreatedEvent()
	u.RequestPasswordReset(true)

	assert.Len(t, u.PendingEvents(), 2)
	assert.Len(t, u.DrainEvents(), 2)
	assert.Empty(t, u.PendingEvents())
	assert.Nil(t, u.DrainEvents())
}
