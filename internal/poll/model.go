package poll

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Choice is one of the three poll outcomes.
type Choice string

const (
	ChoiceYes   Choice = "yes"
	ChoiceNo    Choice = "no"
	ChoiceMaybe Choice = "maybe"
)

// Valid reports whether the choice is one of the three outcomes.
func (c Choice) Valid() bool {
	switch c {
	case ChoiceYes, ChoiceNo, ChoiceMaybe:
		return true
	}
	return false
}

var (
	ErrNotFound        = errors.New("poll not found")
	ErrClosed          = errors.New("poll is closed")
	ErrAlreadyVoted    = errors.New("already voted on this poll")
	ErrInvalidChoice   = errors.New("choice must be yes, no, or maybe")
	ErrMissingQuestion = errors.New("question is required")
	ErrNotOwner        = errors.New("only the poll owner may close it")
)

// Poll is a shared yes/no/maybe question with anonymous vote counters.
// The id doubles as the share link identifier.
type Poll struct {
	ID         uuid.UUID `json:"id"`
	Question   string    `json:"question"`
	YesCount   int64     `json:"yesCount"`
	NoCount    int64     `json:"noCount"`
	MaybeCount int64     `json:"maybeCount"`
	Closed     bool      `json:"closed"`
	OwnerID    *int64    `json:"ownerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
