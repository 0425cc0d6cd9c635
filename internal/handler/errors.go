package handler

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/repository"
	"github.com/sharecode/sharecode-backend/internal/service"
)

// Response headers carrying the error code and message of 4xx responses.
const (
	HeaderErrorCode    = "SCE-Code"
	HeaderErrorMessage = "SCE-Message"
)

// errBadRequest marks malformed requests rejected before reaching a service.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Type      string       `json:"type"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
	ErrorCode int          `json:"errorCode"`
}

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorKind describes how a family of errors is rendered.
type errorKind struct {
	err    error
	status int
	typ    string
	code   int
}

// errorKinds is matched in order with errors.Is.
var errorKinds = []errorKind{
	{service.ErrValidation, http.StatusBadRequest, "Validation Error", 400},
	{errBadRequest, http.StatusBadRequest, "Bad Request", 40001},

	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid Credentials", 40101},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "Invalid Token", 40102},
	{auth.ErrTokenExpired, http.StatusUnauthorized, "Token Expired", 40103},
	{auth.ErrMissingToken, http.StatusUnauthorized, "Unauthorized", 40104},
	{auth.ErrInvalidAuthorizationHeader, http.StatusUnauthorized, "Unauthorized", 40104},
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized", 40104},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid Token", 40102},
	{auth.ErrWrongTokenType, http.StatusUnauthorized, "Invalid Token", 40102},

	{domain.ErrUserInactive, http.StatusForbidden, "Account Inactive", 40301},
	{domain.ErrAccessDenied, http.StatusForbidden, "Access Denied", 40302},

	{domain.ErrUserNotFound, http.StatusNotFound, "User Not Found", 40401},
	{domain.ErrSnippetNotFound, http.StatusNotFound, "Snippet Not Found", 40402},
	{domain.ErrCommentNotFound, http.StatusNotFound, "Comment Not Found", 40403},
	{repository.ErrNotFound, http.StatusNotFound, "Not Found", 40400},

	{domain.ErrUserAlreadyExists, http.StatusConflict, "User Already Exists", 40901},
	{domain.ErrUserAlreadyVerified, http.StatusConflict, "User Already Verified", 40902},
	{domain.ErrUserAlreadyActive, http.StatusConflict, "User Already Active", 40903},
	{domain.ErrUserAlreadyInactive, http.StatusConflict, "User Already Inactive", 40904},
	{domain.ErrPasswordResetNotAllowed, http.StatusConflict, "Password Reset Not Allowed", 40905},
	{domain.ErrVersionConflict, http.StatusConflict, "Conflict", 40906},
}

var unknownError = ErrorResponse{
	Type:      "Unknown Error",
	Message:   "An unknown error occurred. Please retry again",
	ErrorCode: 500,
}

// classify maps err to its status code and response body.
func classify(err error) (int, ErrorResponse) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.err) {
			continue
		}
		resp := ErrorResponse{Type: k.typ, Message: err.Error(), ErrorCode: k.code}
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			resp.Message = "Failed to validate properties provided"
			resp.Errors = fieldErrors(verr)
		}
		return k.status, resp
	}
	return http.StatusInternalServerError, unknownError
}

func fieldErrors(v *service.ValidationError) []FieldError {
	out := make([]FieldError, 0, len(v.Fields))
	for field, msg := range v.Fields {
		out = append(out, FieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// writeError renders err. Server errors are logged; their details never
// reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	} else {
		w.Header().Set(HeaderErrorCode, strconv.Itoa(body.ErrorCode))
		w.Header().Set(HeaderErrorMessage, headerSafe(body.Message))
	}

	writeJSON(w, status, body)
}

// headerSafe drops control characters, which are invalid in header values.
func headerSafe(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 0x20 && c != 0x7f {
			b = append(b, c)
		}
	}
	return string(b)
}
