package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/domain"
)

type pingCommand struct{ Value string }

func (pingCommand) CommandName() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) CommandName() string { return "test.other" }

func TestRegistry_ExecuteTyped(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, c pingCommand) (string, error) {
		return "pong:" + c.Value, nil
	})

	got, err := Execute[string](context.Background(), r, pingCommand{Value: "x"})
	require.NoError(t, err)
	assert.Equal(t, "pong:x", got)
	assert.True(t, r.Has("test.ping"))

	_, err = Execute[string](context.Background(), r, otherCommand{})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = Execute[int](context.Background(), r, pingCommand{})
	assert.Error(t, err)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	h := func(ctx context.Context, c pingCommand) (Done, error) { return Done{}, nil }
	Register(r, h)
	assert.Panics(t, func() { Register(r, h) })
}

func TestCommandRegistry_CoversEveryCommand(t *testing.T) {
	f := newFixture(t)

	for _, c := range []Command{
		RegisterUser{}, LoginUser{}, RefreshToken{}, VerifyUser{}, ResendVerification{},
		ForgotPassword{}, ResetPassword{}, UpdateSettings{}, DeactivateUser{}, ActivateUser{},
		CreateSnippet{}, CreateComment{}, UpdateAccess{},
	} {
		assert.True(t, f.commands.Has(c.CommandName()), c.CommandName())
	}
}

func TestCommandRegistry_RoutesToServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := Execute[*domain.User](ctx, f.commands, RegisterUser{RegisterInput{
		EmailAddress: "jane@example.com",
		FirstName:    "Jane",
		LastName:     "Doe",
		Password:     testPassword,
	}})
	require.NoError(t, err)

	out, err := Execute[*LoginOutput](ctx, f.commands, LoginUser{EmailAddress: "jane@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, u.ID, out.User.ID)

	s, err := Execute[*domain.Snippet](ctx, f.commands, CreateSnippet{
		OwnerID:            &u.ID,
		CreateSnippetInput: CreateSnippetInput{Title: "t", Language: "go", Content: []byte("x")},
	})
	require.NoError(t, err)
	assert.True(t, s.IsOwnedBy(u.ID))

	_, err = Execute[Done](ctx, f.commands, ForgotPassword{EmailAddress: "jane@example.com"})
	require.NoError(t, err)
}
