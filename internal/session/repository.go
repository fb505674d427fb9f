package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/maybewheel/maybewheel/internal/database"
	"github.com/maybewheel/maybewheel/internal/user"
)

var ErrNotFound = errors.New("session not found")

// Repository handles session persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new session row for the given user.
func (r *Repository) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*Session, error) {
	dbSession := &database.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(dbSession).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return mapDBSessionToModel(dbSession), nil
}

// GetByToken retrieves a session by its token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*Session, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Where("session_token = ?", token).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	return mapDBSessionToModel(dbSession), nil
}

// GetByTokenWithUser retrieves a session by its token, joined with the
// owning user.
func (r *Repository) GetByTokenWithUser(ctx context.Context, token string) (*SessionWithUser, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Relation("User").
		Where("s.session_token = ?", token).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	if dbSession.User == nil {
		return nil, ErrNotFound
	}

	return &SessionWithUser{
		Session: *mapDBSessionToModel(dbSession),
		User: &user.User{
			ID:           dbSession.User.ID,
			Email:        dbSession.User.Email,
			Name:         dbSession.User.Name,
			PasswordHash: dbSession.User.PasswordHash,
			CreatedAt:    dbSession.User.CreatedAt,
			UpdatedAt:    dbSession.User.UpdatedAt,
		},
	}, nil
}

// Rotate replaces a session's token and expiry in place, preserving its
// identity. Returns ErrNotFound when the row no longer exists.
func (r *Repository) Rotate(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.Session)(nil)).
		Set("session_token = ?", token).
		Set("expires_at = ?", expiresAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByToken removes a session by its token. Returns ErrNotFound if
// no row matched.
func (r *Repository) DeleteByToken(ctx context.Context, token string) error {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("session_token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteExpired sweeps every session whose expiry has passed as of now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	return nil
}

// mapDBSessionToModel converts database model to domain model
func mapDBSessionToModel(dbs *database.Session) *Session {
	return &Session{
		ID:        dbs.ID,
		UserID:    dbs.UserID,
		Token:     dbs.Token,
		ExpiresAt: dbs.ExpiresAt,
		CreatedAt: dbs.CreatedAt,
	}
}
