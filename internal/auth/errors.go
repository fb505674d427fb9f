package auth

import (
	"net/http"

	"github.com/maybewheel/maybewheel/internal/httputil"
)

// Kind classifies an auth failure and determines its HTTP status.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthentication
	KindNotFound
	KindConflict
	KindInternal
)

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged auth failure. The set of values below is closed:
// handlers match on them exhaustively instead of comparing code strings.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrMissingEmail       = &Error{Kind: KindValidation, Code: httputil.CodeMissingEmail, Message: "Email is required"}
	ErrMissingPassword    = &Error{Kind: KindValidation, Code: httputil.CodeMissingPassword, Message: "Password is required"}
	ErrMissingName        = &Error{Kind: KindValidation, Code: httputil.CodeMissingName, Message: "Name is required"}
	ErrInvalidEmailFormat = &Error{Kind: KindValidation, Code: httputil.CodeInvalidEmailFormat, Message: "Invalid email format"}
	ErrWeakPassword       = &Error{Kind: KindValidation, Code: httputil.CodeWeakPassword, Message: "Password must be at least 6 characters long"}

	ErrDuplicateEmail     = &Error{Kind: KindConflict, Code: httputil.CodeDuplicateEmail, Message: "Email already registered"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: httputil.CodeInvalidCredentials, Message: "Invalid credentials"}

	// Refresh and logout accept the token from header or body; absence is a
	// request shape problem (400). The read-only /auth/me endpoint treats a
	// missing header as an authentication failure (401).
	ErrMissingSessionToken = &Error{Kind: KindValidation, Code: httputil.CodeMissingSessionToken, Message: "Session token is required in request body or Authorization header"}
	ErrMissingAuthHeader   = &Error{Kind: KindAuthentication, Code: httputil.CodeMissingAuthHeader, Message: "Missing or invalid authorization header"}
	ErrEmptyHeaderToken    = &Error{Kind: KindAuthentication, Code: httputil.CodeMissingSessionToken, Message: "Session token is required"}

	ErrSessionNotFound     = &Error{Kind: KindNotFound, Code: httputil.CodeSessionNotFound, Message: "Session not found or already expired"}
	ErrSessionExpired      = &Error{Kind: KindAuthentication, Code: httputil.CodeSessionExpired, Message: "Session has expired"}
	ErrInvalidSession      = &Error{Kind: KindAuthentication, Code: httputil.CodeInvalidSession, Message: "Invalid or expired session token"}
	ErrExpiredSession      = &Error{Kind: KindAuthentication, Code: httputil.CodeExpiredSession, Message: "Session has expired"}
	ErrSessionUpdateFailed = &Error{Kind: KindInternal, Code: httputil.CodeSessionUpdateFailed, Message: "Failed to update session"}
)
