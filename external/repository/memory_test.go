package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/repository"
)

var (
	_ repository.Repository = (*MemoryRepository)(nil)
	_ repository.Repository = (*PostgresRepository)(nil)
	_ conversation.Watcher  = (*MemoryRepository)(nil)
	_ conversation.Watcher  = (*PostgresRepository)(nil)
)

func TestMemoryRepository_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := repo.CreateSession(ctx, repository.CreateSessionInput{
		InvestigatorLanguage: "en-US",
		ParticipantLanguage:  "ar-SA",
		ParticipantRole:      "Witness",
		StartedAt:            startedAt,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.ID == "" || created.Status != repository.SessionStatusRunning {
		t.Fatalf("unexpected session: %+v", created)
	}

	endedAt := startedAt.Add(time.Hour)
	if err := repo.UpdateSessionCompleted(ctx, repository.CompleteSessionInput{SessionID: created.ID, EndedAt: endedAt, TurnCount: 4}); err != nil {
		t.Fatalf("UpdateSessionCompleted: %v", err)
	}
	got, err := repo.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != repository.SessionStatusCompleted || got.TurnCount != 4 || got.EndedAt == nil || !got.EndedAt.Equal(endedAt) {
		t.Fatalf("unexpected completed session: %+v", got)
	}
}

func TestMemoryRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	if _, err := repo.GetSession(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("GetSession: %v", err)
	}
	if err := repo.UpdateSessionCompleted(ctx, repository.CompleteSessionInput{SessionID: "missing"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("UpdateSessionCompleted: %v", err)
	}
}

func TestMemoryRepository_SlotBacksConversationStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := NewMemoryRepository()
	writer := conversation.NewStore(repo, "conversation:s1")
	reader := conversation.NewStore(repo, "conversation:s1")

	updates := reader.Subscribe(ctx, time.Hour)
	<-updates
	langs := conversation.Languages{Investigator: "en-US", Participant: "ar-SA"}
	if err := writer.Write(ctx, 1, []conversation.Turn{{ID: "t1", OriginalText: "hello"}}, langs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case rec := <-updates:
		if len(rec.Translations) != 1 {
			t.Fatalf("got %d turns", len(rec.Translations))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader was not notified through the slot watcher")
	}
}
