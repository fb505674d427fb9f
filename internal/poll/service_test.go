package poll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maybewheel/maybewheel/internal/logging"
)

type fakeStore struct {
	polls        map[uuid.UUID]*Poll
	incrementErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{polls: make(map[uuid.UUID]*Poll)}
}

func (s *fakeStore) Create(_ context.Context, question string, ownerID *int64) (*Poll, error) {
	p := &Poll{
		ID:        uuid.New(),
		Question:  question,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}
	s.polls[p.ID] = p
	return p, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Poll, error) {
	p, ok := s.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) IncrementVote(_ context.Context, id uuid.UUID, choice Choice) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	p, ok := s.polls[id]
	if !ok {
		return ErrNotFound
	}
	if p.Closed {
		return ErrClosed
	}
	switch choice {
	case ChoiceYes:
		p.YesCount++
	case ChoiceNo:
		p.NoCount++
	case ChoiceMaybe:
		p.MaybeCount++
	}
	return nil
}

func (s *fakeStore) Close(_ context.Context, id uuid.UUID, ownerID int64) error {
	p, ok := s.polls[id]
	if !ok {
		return ErrNotFound
	}
	if p.OwnerID == nil || *p.OwnerID != ownerID {
		return ErrNotOwner
	}
	p.Closed = true
	return nil
}

type fakeGuard struct {
	claims   map[string]bool
	releases int
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{claims: make(map[string]bool)}
}

func (g *fakeGuard) key(pollID uuid.UUID, ip string) string {
	return fmt.Sprintf("%s:%s", pollID, ip)
}

func (g *fakeGuard) Claim(_ context.Context, pollID uuid.UUID, voterIP string) (bool, error) {
	key := g.key(pollID, voterIP)
	if g.claims[key] {
		return false, nil
	}
	g.claims[key] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, pollID uuid.UUID, voterIP string) error {
	delete(g.claims, g.key(pollID, voterIP))
	g.releases++
	return nil
}

func newTestPollService(t *testing.T) (*Service, *fakeStore, *fakeGuard) {
	t.Helper()
	store := newFakeStore()
	guard := newFakeGuard()
	return NewService(store, guard, logging.NewLogger(true)), store, guard
}

func TestCreateRequiresQuestion(t *testing.T) {
	svc, _, _ := newTestPollService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ", nil)
	assert.ErrorIs(t, err, ErrMissingQuestion)

	created, err := svc.Create(ctx, "  Should we ship on Friday?  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Should we ship on Friday?", created.Question)
	assert.Nil(t, created.OwnerID)
}

func TestVoteCountsEachChoice(t *testing.T) {
	svc, store, _ := newTestPollService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Pizza for lunch?", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Vote(ctx, created.ID, ChoiceYes, "10.0.0.1"))
	require.NoError(t, svc.Vote(ctx, created.ID, ChoiceYes, "10.0.0.2"))
	require.NoError(t, svc.Vote(ctx, created.ID, ChoiceNo, "10.0.0.3"))
	require.NoError(t, svc.Vote(ctx, created.ID, ChoiceMaybe, "10.0.0.4"))

	p := store.polls[created.ID]
	assert.Equal(t, int64(2), p.YesCount)
	assert.Equal(t, int64(1), p.NoCount)
	assert.Equal(t, int64(1), p.MaybeCount)
}

func TestVoteRejectsDuplicateVoter(t *testing.T) {
	svc, _, _ := newTestPollService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Pizza for lunch?", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Vote(ctx, created.ID, ChoiceYes, "10.0.0.1"))
	err = svc.Vote(ctx, created.ID, ChoiceNo, "10.0.0.1")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestVoteValidatesChoiceBeforeClaiming(t *testing.T) {
	svc, _, guard := newTestPollService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Pizza for lunch?", nil)
	require.NoError(t, err)

	err = svc.Vote(ctx, created.ID, Choice("definitely"), "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Empty(t, guard.claims)
}

func TestVoteReleasesClaimWhenCounterFails(t *testing.T) {
	svc, store, guard := newTestPollService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Pizza for lunch?", nil)
	require.NoError(t, err)

	store.incrementErr = errors.New("connection reset")
	err = svc.Vote(ctx, created.ID, ChoiceYes, "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, 1, guard.releases)

	// The voter may retry after the rollback.
	store.incrementErr = nil
	assert.NoError(t, svc.Vote(ctx, created.ID, ChoiceYes, "10.0.0.1"))
}

func TestVoteOnClosedPoll(t *testing.T) {
	svc, _, _ := newTestPollService(t)
	ctx := context.Background()

	owner := int64(1)
	created, err := svc.Create(ctx, "Pizza for lunch?", &owner)
	require.NoError(t, err)

	_, err = svc.Close(ctx, created.ID, owner)
	require.NoError(t, err)

	err = svc.Vote(ctx, created.ID, ChoiceYes, "10.0.0.1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseEnforcesOwnership(t *testing.T) {
	svc, _, _ := newTestPollService(t)
	ctx := context.Background()

	owner := int64(1)
	created, err := svc.Create(ctx, "Pizza for lunch?", &owner)
	require.NoError(t, err)

	_, err = svc.Close(ctx, created.ID, 2)
	assert.ErrorIs(t, err, ErrNotOwner)

	closed, err := svc.Close(ctx, created.ID, owner)
	require.NoError(t, err)
	assert.True(t, closed.Closed)
}

func TestCloseAnonymousPoll(t *testing.T) {
	svc, _, _ := newTestPollService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Pizza for lunch?", nil)
	require.NoError(t, err)

	// Anonymous polls have no owner and can never be closed.
	_, err = svc.Close(ctx, created.ID, 1)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestGetUnknownPoll(t *testing.T) {
	svc, _, _ := newTestPollService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
