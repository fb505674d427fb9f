package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/maybewheel/maybewheel/internal/logging"
	"github.com/maybewheel/maybewheel/internal/session"
	"github.com/maybewheel/maybewheel/internal/user"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// A conventional local@domain.tld pattern; stricter than net/mail because
// the domain must contain a dot.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserStore is the user side of the credential store.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// SessionStore is the session side of the credential store.
type SessionStore interface {
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*session.Session, error)
	GetByToken(ctx context.Context, token string) (*session.Session, error)
	GetByTokenWithUser(ctx context.Context, token string) (*session.SessionWithUser, error)
	Rotate(ctx context.Context, id int64, token string, expiresAt time.Time) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) error
}

// LoginResult is returned by Login: the authenticated user plus a fresh
// bearer token.
type LoginResult struct {
	User         *user.User `json:"user"`
	SessionToken string     `json:"sessionToken"`
}

// RefreshResult is returned by Refresh after the session was rotated in
// place.
type RefreshResult struct {
	SessionToken string     `json:"sessionToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	User         *user.User `json:"user"`
}

// Service handles authentication business logic
type Service struct {
	users      UserStore
	sessions   SessionStore
	hasher     *PasswordHasher
	logger     *logging.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(users UserStore, sessions SessionStore, hasher *PasswordHasher, logger *logging.Logger, sessionTTL time.Duration) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		logger:     logger,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Register creates a new user account. Validation order: presence, email
// format, password length, then the duplicate check on the normalized email.
func (s *Service) Register(ctx context.Context, email, password, name string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, ErrMissingEmail
	}
	if password == "" {
		return nil, ErrMissingPassword
	}
	if name == "" {
		return nil, ErrMissingName
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmailFormat
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, name, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates a user and issues a new session. An unknown email
// and a wrong password produce the identical error so callers cannot
// probe which addresses are registered.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrMissingEmail
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	existing, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, existing.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := session.NewToken()
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Create(ctx, existing.ID, token, s.now().Add(s.sessionTTL)); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResult{User: existing, SessionToken: token}, nil
}

// Refresh rotates a live session in place: same row, new token, new
// expiry counted from the refresh time. An expired session is rejected
// without being touched; refresh never resurrects it. Rotation rather
// than reissue caps the lifetime of a leaked token at one interval.
func (s *Service) Refresh(ctx context.Context, token string) (*RefreshResult, error) {
	if token == "" {
		return nil, ErrMissingSessionToken
	}

	current, err := s.sessions.GetByTokenWithUser(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	now := s.now()
	if current.Expired(now) {
		return nil, ErrSessionExpired
	}

	newToken, err := session.NewToken()
	if err != nil {
		return nil, err
	}
	newExpiry := now.Add(s.sessionTTL)

	if err := s.sessions.Rotate(ctx, current.ID, newToken, newExpiry); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionUpdateFailed
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return &RefreshResult{
		SessionToken: newToken,
		ExpiresAt:    newExpiry,
		User:         current.User,
	}, nil
}

// Logout sweeps expired sessions, then deletes the target session.
// A token whose session was just swept reports the same not-found as an
// unknown token; neither is a live session. Returns the deleted
// session's id.
func (s *Service) Logout(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrMissingSessionToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrMissingSessionToken
	}

	if err := s.sessions.DeleteExpired(ctx, s.now()); err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	current, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}

	return current.ID, nil
}

// CurrentUser resolves a bearer token to its user. The target session is
// examined before the housekeeping sweep runs so that an expired token is
// always reported as expired, never as unknown; the sweep then removes it
// together with every other dead row.
func (s *Service) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrEmptyHeaderToken
	}

	now := s.now()

	current, err := s.sessions.GetByTokenWithUser(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.sweep(ctx, now)
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if current.Expired(now) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", "error", err.Error())
		}
		s.sweep(ctx, now)
		return nil, ErrExpiredSession
	}

	s.sweep(ctx, now)
	return current.User, nil
}

// sweep is best-effort housekeeping; a failed sweep never fails the
// request it rides on.
func (s *Service) sweep(ctx context.Context, now time.Time) {
	if err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.logger.Warn("failed to sweep expired sessions", "error", err.Error())
	}
}
