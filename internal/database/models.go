package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the database model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	Name         string    `bun:"name,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Session is the database model for the sessions table.
// One user may own many sessions; tokens are unique.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	Token     string    `bun:"session_token,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

// Poll is the database model for shared community polls.
type Poll struct {
	bun.BaseModel `bun:"table:polls,alias:p"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Question   string    `bun:"question,notnull"`
	YesCount   int64     `bun:"yes_count,notnull,default:0"`
	NoCount    int64     `bun:"no_count,notnull,default:0"`
	MaybeCount int64     `bun:"maybe_count,notnull,default:0"`
	Closed     bool      `bun:"closed,notnull,default:false"`
	OwnerID    *int64    `bun:"owner_id"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

// Decision is the database model for per-user decision history.
type Decision struct {
	bun.BaseModel `bun:"table:decisions,alias:d"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	Question    string    `bun:"question,notnull"`
	Result      string    `bun:"result,notnull"`
	YesWeight   int       `bun:"yes_weight,notnull"`
	NoWeight    int       `bun:"no_weight,notnull"`
	MaybeWeight int       `bun:"maybe_weight,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}
