package poll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/maybewheel/maybewheel/internal/database"
)

// Repository handles poll persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new open poll.
func (r *Repository) Create(ctx context.Context, question string, ownerID *int64) (*Poll, error) {
	dbPoll := &database.Poll{
		ID:        uuid.New(),
		Question:  question,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(dbPoll).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	return mapDBPollToModel(dbPoll), nil
}

// GetByID retrieves a poll by its share id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Poll, error) {
	dbPoll := new(database.Poll)
	err := r.db.NewSelect().
		Model(dbPoll).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	return mapDBPollToModel(dbPoll), nil
}

// IncrementVote adds one to the given choice's counter on an open poll.
func (r *Repository) IncrementVote(ctx context.Context, id uuid.UUID, choice Choice) error {
	var column string
	switch choice {
	case ChoiceYes:
		column = "yes_count"
	case ChoiceNo:
		column = "no_count"
	case ChoiceMaybe:
		column = "maybe_count"
	default:
		return ErrInvalidChoice
	}

	result, err := r.db.NewUpdate().
		Model((*database.Poll)(nil)).
		Set(column+" = "+column+" + 1").
		Where("id = ?", id).
		Where("closed = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the poll does not exist or it is closed
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrClosed
	}

	return nil
}

// Close marks the poll closed when the caller owns it.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, ownerID int64) error {
	result, err := r.db.NewUpdate().
		Model((*database.Poll)(nil)).
		Set("closed = ?", true).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to close poll: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotOwner
	}

	return nil
}

// mapDBPollToModel converts database model to domain model
func mapDBPollToModel(dbp *database.Poll) *Poll {
	return &Poll{
		ID:         dbp.ID,
		Question:   dbp.Question,
		YesCount:   dbp.YesCount,
		NoCount:    dbp.NoCount,
		MaybeCount: dbp.MaybeCount,
		Closed:     dbp.Closed,
		OwnerID:    dbp.OwnerID,
		CreatedAt:  dbp.CreatedAt,
	}
}
