package auth

import "errors"

// Authentication errors.
var (
	// ErrMissingToken indicates the Authorization header is absent.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is malformed.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrInvalidToken indicates the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrWrongTokenType indicates a refresh token used as access token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrUnauthenticated indicates an operation needs an authenticated principal.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrWeakSecret indicates a signing secret shorter than MinSecretLength.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")
)
