package session

import (
	"time"

	"github.com/maybewheel/maybewheel/internal/user"
)

// Session is an active bearer session. A session past its expiry is
// logically dead and must never authenticate a request, even while the
// row still exists.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionWithUser is a session joined with its owning user.
type SessionWithUser struct {
	Session
	User *user.User
}

// Expired reports whether the session is dead at the given instant.
// The single expiry predicate used everywhere: expiresAt <= now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
