package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/maybewheel/maybewheel/internal/database"
)

// Decision is one recorded draw in a user's history.
type Decision struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Question  string    `json:"question"`
	Result    Result    `json:"result"`
	Weights   Weights   `json:"weights"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository handles decision history persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create records a decision for the given user.
func (r *Repository) Create(ctx context.Context, userID int64, question string, result Result, weights Weights) (*Decision, error) {
	dbDecision := &database.Decision{
		UserID:      userID,
		Question:    question,
		Result:      string(result),
		YesWeight:   weights.Yes,
		NoWeight:    weights.No,
		MaybeWeight: weights.Maybe,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(dbDecision).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}

	return mapDBDecisionToModel(dbDecision), nil
}

// ListByUser returns a user's decision history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Decision, error) {
	var dbDecisions []*database.Decision
	err := r.db.NewSelect().
		Model(&dbDecisions).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}

	decisions := make([]*Decision, 0, len(dbDecisions))
	for _, d := range dbDecisions {
		decisions = append(decisions, mapDBDecisionToModel(d))
	}
	return decisions, nil
}

// mapDBDecisionToModel converts database model to domain model
func mapDBDecisionToModel(dbd *database.Decision) *Decision {
	return &Decision{
		ID:       dbd.ID,
		UserID:   dbd.UserID,
		Question: dbd.Question,
		Result:   Result(dbd.Result),
		Weights: Weights{
			Yes:   dbd.YesWeight,
			No:    dbd.NoWeight,
			Maybe: dbd.MaybeWeight,
		},
		CreatedAt: dbd.CreatedAt,
	}
}
