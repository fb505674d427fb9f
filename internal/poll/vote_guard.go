package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// voteGuardTTL bounds how long a voter is remembered. Polls are
// short-lived community questions; thirty days outlasts any of them.
const voteGuardTTL = 30 * 24 * time.Hour

// RedisVoteGuard enforces one vote per client per poll using a SETNX
// marker keyed by poll id and voter IP.
type RedisVoteGuard struct {
	client *redis.Client
}

func NewRedisVoteGuard(client *redis.Client) *RedisVoteGuard {
	return &RedisVoteGuard{client: client}
}

func voteKey(pollID uuid.UUID, voterIP string) string {
	return fmt.Sprintf("poll_vote:%s:%s", pollID, voterIP)
}

// Claim records the voter's participation. Returns false when the voter
// already has a marker for this poll.
func (g *RedisVoteGuard) Claim(ctx context.Context, pollID uuid.UUID, voterIP string) (bool, error) {
	ok, err := g.client.SetNX(ctx, voteKey(pollID, voterIP), 1, voteGuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim vote marker: %w", err)
	}
	return ok, nil
}

// Release removes the voter's marker, used to roll back a claim when the
// counter update fails after the marker was set.
func (g *RedisVoteGuard) Release(ctx context.Context, pollID uuid.UUID, voterIP string) error {
	if err := g.client.Del(ctx, voteKey(pollID, voterIP)).Err(); err != nil {
		return fmt.Errorf("failed to release vote marker: %w", err)
	}
	return nil
}
