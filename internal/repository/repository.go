package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
)

var ErrNotFound = errors.New("repository: not found")

type CreateSessionInput struct {
	InvestigatorLanguage string
	ParticipantLanguage  string
	ParticipantRole      string
	StartedAt            time.Time
}

type CompleteSessionInput struct {
	SessionID string
	EndedAt   time.Time
	TurnCount int
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	UpdateSessionCompleted(ctx context.Context, input CompleteSessionInput) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// Repository persists sessions and doubles as the durable conversation slot.
type Repository interface {
	SessionRepository
	conversation.Slot
}
