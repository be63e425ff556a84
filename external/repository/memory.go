package repository

import (
	"context"
	"sync"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/repository"
	"github.com/google/uuid"
)

// MemoryRepository keeps sessions and conversation slots in process memory.
// Nothing survives a restart.
type MemoryRepository struct {
	*conversation.MemorySlot

	mu       sync.Mutex
	sessions map[string]repository.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		MemorySlot: conversation.NewMemorySlot(),
		sessions:   make(map[string]repository.Session),
	}
}

func (r *MemoryRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	s := repository.Session{
		ID:                   uuid.NewString(),
		InvestigatorLanguage: input.InvestigatorLanguage,
		ParticipantLanguage:  input.ParticipantLanguage,
		ParticipantRole:      input.ParticipantRole,
		StartedAt:            input.StartedAt,
		Status:               repository.SessionStatusRunning,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return &s, nil
}

func (r *MemoryRepository) UpdateSessionCompleted(_ context.Context, input repository.CompleteSessionInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[input.SessionID]
	if !ok {
		return repository.ErrNotFound
	}
	endedAt := input.EndedAt
	s.EndedAt = &endedAt
	s.Status = repository.SessionStatusCompleted
	s.TurnCount = input.TurnCount
	r.sessions[s.ID] = s
	return nil
}

func (r *MemoryRepository) GetSession(_ context.Context, sessionID string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}
