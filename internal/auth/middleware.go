package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// TokenParser validates access tokens.
type TokenParser interface {
	Parse(raw string, want TokenType) (Principal, error)
}

// Middleware authenticates bearer tokens.
type Middleware struct {
	tokens  TokenParser
	onError ErrorWriter
}

// NewMiddleware creates a Middleware. A nil onError writes a bare 401.
func NewMiddleware(tokens TokenParser, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return &Middleware{tokens: tokens, onError: onError}
}

// Required rejects requests without a valid access token.
func (m *Middleware) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.authenticate(r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer authentication failed")
			m.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Optional attaches the principal when a valid token is present.
// A missing header passes through anonymously; an invalid token is rejected.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(AuthorizationHeader) == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.authenticate(r)
		if err != nil {
			m.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (Principal, error) {
	raw, err := BearerFromRequest(r)
	if err != nil {
		return Principal{}, err
	}
	return m.tokens.Parse(raw, TokenTypeAccess)
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFrom retrieves the principal from ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// RequirePrincipal returns the principal or ErrUnauthenticated.
func RequirePrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}
