package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
)

// AccessGrants looks up explicit snippet grants.
type AccessGrants interface {
	GetAccess(ctx context.Context, snippetID, userID uuid.UUID) (*domain.SnippetAccessControl, error)
}

// AccessResolver gathers the raw permission facts for a snippet and
// evaluates them into a domain.AccessDecision.
type AccessResolver struct {
	grants AccessGrants
}

// NewAccessResolver creates an AccessResolver.
func NewAccessResolver(grants AccessGrants) *AccessResolver {
	return &AccessResolver{grants: grants}
}

// Resolve evaluates accessor's rights on s. accessor is uuid.Nil for
// anonymous callers.
//
// The owner holds manage; an explicit grant contributes its flags; a public
// snippet is readable by everyone. A failed grant lookup returns
// domain.ErrorPermission together with the error.
func (r *AccessResolver) Resolve(ctx context.Context, s *domain.Snippet, accessor uuid.UUID) (domain.AccessDecision, error) {
	read := s.Public
	var write, manage bool

	if s.IsOwnedBy(accessor) {
		manage = true
	} else if accessor != uuid.Nil {
		grant, err := r.grants.GetAccess(ctx, s.ID, accessor)
		switch {
		case err == nil:
			read = read || grant.Read
			write = grant.Write
			manage = grant.Manage
		case errors.Is(err, repository.ErrNotFound):
		default:
			return domain.ErrorPermission(), fmt.Errorf("failed to resolve access: %w", err)
		}
	}

	return domain.NewAccessDecision(s.ID, accessor, read, write, manage, s.Public), nil
}

// Require returns domain.ErrAccessDenied unless the decision holds every capability.
func Require(d domain.AccessDecision, caps ...domain.Capability) error {
	if d.HasAll(caps...) {
		return nil
	}
	return domain.NewDomainError(domain.ErrAccessDenied, "missing "+capabilityList(caps), d.SnippetID().String())
}

func capabilityList(caps []domain.Capability) string {
	out := ""
	for i, c := range caps {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out
}
