package decision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maybewheel/maybewheel/internal/auth"
	"github.com/maybewheel/maybewheel/internal/httputil"
	"github.com/maybewheel/maybewheel/internal/logging"
)

// Store is the persistence contract for decision history.
type Store interface {
	Create(ctx context.Context, userID int64, question string, result Result, weights Weights) (*Decision, error)
	ListByUser(ctx context.Context, userID int64) ([]*Decision, error)
}

// Handler contains HTTP handlers for decision history endpoints.
// Both routes sit behind the session middleware.
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// DrawRequest asks the server to draw and record a decision
type DrawRequest struct {
	Question string  `json:"question"`
	Weights  Weights `json:"weights"`
}

// Draw draws a weighted result and stores it in the caller's history
// @Summary      Draw a decision
// @Tags         decisions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DrawRequest true "Question and outcome weights"
// @Success      201 {object} Decision
// @Failure      400 {object} httputil.ErrorResponse "Invalid weights or missing question"
// @Router       /decisions [post]
func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Missing or invalid authorization header", httputil.CodeMissingAuthHeader, http.StatusUnauthorized)
		return
	}

	var req DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid decision body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		httputil.RespondErrorWithCode(w, "question is required", httputil.CodeMissingQuestion, http.StatusBadRequest)
		return
	}

	weights, err := req.Weights.Normalize()
	if err != nil {
		if errors.Is(err, ErrInvalidWeights) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidWeights, http.StatusBadRequest)
			return
		}
		logger.Error("weight normalization failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	result := Draw(weights, nil)

	recorded, err := h.store.Create(r.Context(), u.ID, question, result, weights)
	if err != nil {
		logger.Error("failed to record decision", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("decision recorded", "user_id", u.ID, "result", result)
	httputil.RespondJSON(w, recorded, http.StatusCreated)
}

// History lists the caller's decisions, newest first
// @Summary      Decision history
// @Tags         decisions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Decision
// @Router       /decisions [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "Missing or invalid authorization header", httputil.CodeMissingAuthHeader, http.StatusUnauthorized)
		return
	}

	decisions, err := h.store.ListByUser(r.Context(), u.ID)
	if err != nil {
		logger.Error("failed to list decisions", "error", err.Error())
		httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, decisions, http.StatusOK)
}
