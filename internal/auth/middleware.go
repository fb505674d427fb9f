package auth

import (
	"context"
	"net/http"

	"github.com/maybewheel/maybewheel/internal/httputil"
	"github.com/maybewheel/maybewheel/internal/logging"
	"github.com/maybewheel/maybewheel/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "auth_user"

// Middleware guards routes behind a live session
type Middleware struct {
	service *Service
	logger  *logging.Logger
}

func NewMiddleware(service *Service, logger *logging.Logger) *Middleware {
	return &Middleware{service: service, logger: logger}
}

// RequireSession validates the bearer token against the session store and
// injects the owning user into the request context.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			httputil.RespondErrorWithCode(w, ErrMissingAuthHeader.Message, ErrMissingAuthHeader.Code, http.StatusUnauthorized)
			return
		}

		currentUser, err := m.service.CurrentUser(r.Context(), token)
		if err != nil {
			respondMiddlewareError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, currentUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalSession resolves the bearer token when one is present but lets
// anonymous requests straight through. Lookup failures are treated as
// anonymous rather than rejected.
func (m *Middleware) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		currentUser, err := m.service.CurrentUser(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, currentUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok
}

func respondMiddlewareError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidSession, ErrExpiredSession, ErrEmptyHeaderToken:
		authErr := err.(*Error)
		httputil.RespondErrorWithCode(w, authErr.Message, authErr.Code, http.StatusUnauthorized)
	default:
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
