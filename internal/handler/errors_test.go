package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/service"
)

func TestClassify(t *testing.T) {
	validation := service.NewValidationError()
	validation.Add("title", "is required")

	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"validation", validation, http.StatusBadRequest, "Validation Error"},
		{"bad request", fmt.Errorf("%w: broken", errBadRequest), http.StatusBadRequest, "Bad Request"},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid Credentials"},
		{"wrapped token", fmt.Errorf("%w: %v", domain.ErrInvalidToken, auth.ErrTokenExpired), http.StatusUnauthorized, "Invalid Token"},
		{"missing bearer", auth.ErrMissingToken, http.StatusUnauthorized, "Unauthorized"},
		{"expired bearer", fmt.Errorf("%w", auth.ErrTokenExpired), http.StatusUnauthorized, "Token Expired"},
		{"inactive", domain.NewDomainError(domain.ErrUserInactive, "locked", ""), http.StatusForbidden, "Account Inactive"},
		{"denied", domain.NewDomainError(domain.ErrAccessDenied, "missing read", "s1"), http.StatusForbidden, "Access Denied"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "User Not Found"},
		{"snippet not found", fmt.Errorf("%w: x", domain.ErrSnippetNotFound), http.StatusNotFound, "Snippet Not Found"},
		{"exists", domain.ErrUserAlreadyExists, http.StatusConflict, "User Already Exists"},
		{"verified", domain.ErrUserAlreadyVerified, http.StatusConflict, "User Already Verified"},
		{"version", domain.ErrVersionConflict, http.StatusConflict, "Conflict"},
		{"reset refused", domain.ErrPasswordResetNotAllowed, http.StatusConflict, "Password Reset Not Allowed"},
		{"internal", fmt.Errorf("%w: db down", service.ErrInternalError), http.StatusInternalServerError, "Unknown Error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Unknown Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, body.Type)
		})
	}
}

func TestClassify_ValidationFields(t *testing.T) {
	v := service.NewValidationError()
	v.Add("title", "is required")
	v.Add("language", "is required")

	_, body := classify(v)
	assert.Equal(t, 400, body.ErrorCode)
	assert.Equal(t, []FieldError{
		{Field: "language", Message: "is required"},
		{Field: "title", Message: "is required"},
	}, body.Errors)
}

func TestWriteError_ClientErrorHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, domain.NewDomainError(domain.ErrAccessDenied, "missing manage", "s1"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "40302", rec.Header().Get(HeaderErrorCode))
	assert.Equal(t, "access denied: missing manage (s1)", rec.Header().Get(HeaderErrorMessage))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Access Denied", body.Type)
	assert.Equal(t, 40302, body.ErrorCode)
}

func TestWriteError_ServerErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderErrorCode))
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), unknownError.Message)
}

func TestHeaderSafe(t *testing.T) {
	assert.Equal(t, "ab c", headerSafe("a\nb c\r"))
}
