// Package auth provides JWT bearer authentication for Sharecode.
package auth

import "time"

// HTTP header names.
const (
	AuthorizationHeader = "Authorization"
	BearerScheme        = "Bearer"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	// TokenTypeAccess authorizes API requests.
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh can only be exchanged for a new token pair.
	TokenTypeRefresh TokenType = "refresh"
)

// ClockLeeway is the allowed clock skew when validating exp and iat.
const ClockLeeway = 30 * time.Second
