package poll

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maybewheel/maybewheel/internal/auth"
	"github.com/maybewheel/maybewheel/internal/httputil"
	"github.com/maybewheel/maybewheel/internal/logging"
)

// Handler contains HTTP handlers for community poll endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CreateRequest is the body for creating a poll
type CreateRequest struct {
	Question string `json:"question"`
}

// VoteRequest is the body for casting a vote
type VoteRequest struct {
	Choice Choice `json:"choice"`
}

// Create opens a new community poll
// @Summary      Create a poll
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        request body CreateRequest true "Poll question"
// @Success      201 {object} Poll
// @Failure      400 {object} httputil.ErrorResponse "Missing question"
// @Router       /polls [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid poll create body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	var ownerID *int64
	if u, ok := auth.GetUserFromContext(r.Context()); ok {
		ownerID = &u.ID
	}

	created, err := h.service.Create(r.Context(), req.Question, ownerID)
	if err != nil {
		h.respondPollError(w, logger, "poll creation failed", err)
		return
	}

	logger.Info("poll created", "poll_id", created.ID)
	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Get returns a poll with its counts
// @Summary      Get a poll
// @Tags         polls
// @Produce      json
// @Param        id path string true "Poll id"
// @Success      200 {object} Poll
// @Failure      404 {object} httputil.ErrorResponse "Poll not found"
// @Router       /polls/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := pollID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondPollError(w, logger, "poll lookup failed", err)
		return
	}

	httputil.RespondJSON(w, found, http.StatusOK)
}

// Vote casts one anonymous vote
// @Summary      Vote on a poll
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        id path string true "Poll id"
// @Param        request body VoteRequest true "Choice: yes, no, or maybe"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid choice"
// @Failure      404 {object} httputil.ErrorResponse "Poll not found"
// @Failure      409 {object} httputil.ErrorResponse "Already voted or poll closed"
// @Router       /polls/{id}/vote [post]
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := pollID(w, r)
	if !ok {
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid vote body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.Vote(r.Context(), id, req.Choice, clientIP(r)); err != nil {
		h.respondPollError(w, logger, "vote failed", err)
		return
	}

	logger.Info("vote recorded", "poll_id", id, "choice", req.Choice)
	httputil.RespondJSON(w, map[string]string{"message": "vote recorded"}, http.StatusOK)
}

// Close closes a poll on behalf of its owner
// @Summary      Close a poll
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Poll id"
// @Success      200 {object} Poll
// @Failure      403 {object} httputil.ErrorResponse "Not the poll owner"
// @Failure      404 {object} httputil.ErrorResponse "Poll not found"
// @Router       /polls/{id}/close [post]
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := pollID(w, r)
	if !ok {
		return
	}

	u, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Missing or invalid authorization header", httputil.CodeMissingAuthHeader, http.StatusUnauthorized)
		return
	}

	closed, err := h.service.Close(r.Context(), id, u.ID)
	if err != nil {
		h.respondPollError(w, logger, "poll close failed", err)
		return
	}

	logger.Info("poll closed", "poll_id", id)
	httputil.RespondJSON(w, closed, http.StatusOK)
}

func (h *Handler) respondPollError(w http.ResponseWriter, logger *logging.Logger, context string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Warn(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePollNotFound, http.StatusNotFound)
	case errors.Is(err, ErrMissingQuestion):
		logger.Warn(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeMissingQuestion, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidChoice):
		logger.Warn(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidChoice, http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyVoted):
		logger.Warn(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAlreadyVoted, http.StatusConflict)
	case errors.Is(err, ErrClosed):
		logger.Warn(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePollClosed, http.StatusConflict)
	case errors.Is(err, ErrNotOwner):
		logger.Warn(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotPollOwner, http.StatusForbidden)
	default:
		logger.Error(context, "error", err.Error())
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func pollID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "poll not found", httputil.CodePollNotFound, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
