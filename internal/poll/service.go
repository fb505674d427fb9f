package poll

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/maybewheel/maybewheel/internal/logging"
)

// Store is the persistence contract for polls.
type Store interface {
	Create(ctx context.Context, question string, ownerID *int64) (*Poll, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Poll, error)
	IncrementVote(ctx context.Context, id uuid.UUID, choice Choice) error
	Close(ctx context.Context, id uuid.UUID, ownerID int64) error
}

// VoteGuard deduplicates anonymous votes per poll.
type VoteGuard interface {
	Claim(ctx context.Context, pollID uuid.UUID, voterIP string) (bool, error)
	Release(ctx context.Context, pollID uuid.UUID, voterIP string) error
}

// Service implements poll operations over a Store and a VoteGuard.
type Service struct {
	store  Store
	guard  VoteGuard
	logger *logging.Logger
}

func NewService(store Store, guard VoteGuard, logger *logging.Logger) *Service {
	return &Service{store: store, guard: guard, logger: logger}
}

// Create opens a new poll. The owner is recorded when the caller is
// authenticated; anonymous polls have no owner and can never be closed.
func (s *Service) Create(ctx context.Context, question string, ownerID *int64) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrMissingQuestion
	}
	return s.store.Create(ctx, question, ownerID)
}

// Get returns a poll with its current counts.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Poll, error) {
	return s.store.GetByID(ctx, id)
}

// Vote records one anonymous vote. The voter IP guard is claimed before
// the counter moves; if the counter update fails the claim is rolled
// back so the voter may retry.
func (s *Service) Vote(ctx context.Context, id uuid.UUID, choice Choice, voterIP string) error {
	if !choice.Valid() {
		return ErrInvalidChoice
	}

	claimed, err := s.guard.Claim(ctx, id, voterIP)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyVoted
	}

	if err := s.store.IncrementVote(ctx, id, choice); err != nil {
		if releaseErr := s.guard.Release(ctx, id, voterIP); releaseErr != nil {
			s.logger.Warn("failed to release vote marker", "poll_id", id, "error", releaseErr.Error())
		}
		return err
	}

	return nil
}

// Close marks the poll closed on behalf of its owner.
func (s *Service) Close(ctx context.Context, id uuid.UUID, ownerID int64) (*Poll, error) {
	if err := s.store.Close(ctx, id, ownerID); err != nil {
		return nil, err
	}

	closed, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Deleted between the update and the re-read; report it gone.
			return nil, ErrNotFound
		}
		return nil, err
	}
	return closed, nil
}
