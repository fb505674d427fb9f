package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maybewheel/maybewheel/internal/httputil"
	"github.com/maybewheel/maybewheel/internal/logging"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogoutResponse acknowledges a deleted session
type LogoutResponse struct {
	Message   string `json:"message"`
	SessionID int64  `json:"sessionId"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new user account with email, password, and display name
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration credentials"
// @Success      201 {object} user.User
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already registered"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.respondAuthError(w, logger, "registration failed", err)
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)
	httputil.RespondJSON(w, newUser, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResult
// @Failure      400 {object} httputil.ErrorResponse "Missing email or password"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, logger, "login failed", err)
		return
	}

	logger.Info("user logged in", "user_id", result.User.ID)
	httputil.RespondJSON(w, result, http.StatusOK)
}

// Refresh handles session rotation
// @Summary      Refresh a session
// @Description  Rotate a live session's token and extend its expiry
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body tokenRequest false "Session token (alternative to Authorization header)"
// @Success      200 {object} RefreshResult
// @Failure      400 {object} httputil.ErrorResponse "Missing session token"
// @Failure      401 {object} httputil.ErrorResponse "Session expired"
// @Failure      404 {object} httputil.ErrorResponse "Session not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := tokenFromRequest(r)
	if token == "" {
		logger.Warn("session token missing from both header and body")
		h.respondAuthError(w, logger, "refresh failed", ErrMissingSessionToken)
		return
	}

	result, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		h.respondAuthError(w, logger, "refresh failed", err)
		return
	}

	logger.Info("session refreshed", "user_id", result.User.ID)
	httputil.RespondJSON(w, result, http.StatusOK)
}

// Logout handles session invalidation
// @Summary      User logout
// @Description  Delete the session identified by the given token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body tokenRequest false "Session token (alternative to Authorization header)"
// @Success      200 {object} LogoutResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing session token"
// @Failure      404 {object} httputil.ErrorResponse "Session not found"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := tokenFromRequest(r)
	if token == "" {
		logger.Warn("session token missing from both header and body")
		h.respondAuthError(w, logger, "logout failed", ErrMissingSessionToken)
		return
	}

	sessionID, err := h.service.Logout(r.Context(), token)
	if err != nil {
		h.respondAuthError(w, logger, "logout failed", err)
		return
	}

	logger.Info("user logged out", "session_id", sessionID)
	httputil.RespondJSON(w, LogoutResponse{
		Message:   "Successfully logged out",
		SessionID: sessionID,
	}, http.StatusOK)
}

// Me resolves the current user from the Authorization header
// @Summary      Current user
// @Description  Resolve the bearer token to the authenticated user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} user.User
// @Failure      401 {object} httputil.ErrorResponse "Missing, invalid, or expired session"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
		h.respondAuthError(w, logger, "current user lookup failed", ErrMissingAuthHeader)
		return
	}

	// An empty token after the Bearer prefix is rejected by the service
	// with its own 401 code.
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))

	currentUser, err := h.service.CurrentUser(r.Context(), token)
	if err != nil {
		h.respondAuthError(w, logger, "current user lookup failed", err)
		return
	}

	httputil.RespondJSON(w, currentUser, http.StatusOK)
}

// respondAuthError maps the closed error set to HTTP responses. Anything
// outside the set is an internal fault and answers with a generic 500.
func (h *Handler) respondAuthError(w http.ResponseWriter, logger *logging.Logger, context string, err error) {
	var authErr *Error
	if errors.As(err, &authErr) {
		status := authErr.Kind.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Error(context, "code", authErr.Code, "error", authErr.Message)
		} else {
			logger.Warn(context, "code", authErr.Code)
		}
		httputil.RespondErrorWithCode(w, authErr.Message, authErr.Code, status)
		return
	}

	logger.Error(context, "error", err.Error())
	httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}
