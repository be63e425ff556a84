package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/speaker"
)

var langs = Languages{Investigator: "en-US", Participant: "ar-SA"}

func turn(id string, role speaker.Role, inv, part string) Turn {
	return Turn{
		ID:                  id,
		Role:                role,
		OriginalText:        inv,
		InvestigatorDisplay: inv,
		ParticipantDisplay:  part,
		Timestamp:           time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// plainSlot hides MemorySlot's watcher so only in-process events and polling apply.
type plainSlot struct {
	inner *MemorySlot
}

func (p plainSlot) Load(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Load(ctx, key)
}

func (p plainSlot) Save(ctx context.Context, key string, value []byte) error {
	return p.inner.Save(ctx, key, value)
}

type failingSlot struct{}

func (failingSlot) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingSlot) Save(context.Context, string, []byte) error {
	return errors.New("connection refused")
}

func TestRead_MissingSlotIsEmpty(t *testing.T) {
	store := NewStore(NewMemorySlot(), "conversation:s1")
	rec := store.Read(context.Background())
	if rec.Translations == nil || len(rec.Translations) != 0 {
		t.Fatalf("expected empty non-nil translations, got %#v", rec.Translations)
	}
}

func TestRead_CorruptSlotIsEmpty(t *testing.T) {
	slot := NewMemorySlot()
	_ = slot.Save(context.Background(), "conversation:s1", []byte("{not json"))
	store := NewStore(slot, "conversation:s1")
	if rec := store.Read(context.Background()); len(rec.Translations) != 0 {
		t.Fatalf("expected empty record, got %d turns", len(rec.Translations))
	}
}

func TestRead_LoadErrorIsEmpty(t *testing.T) {
	store := NewStore(failingSlot{}, "conversation:s1")
	if rec := store.Read(context.Background()); len(rec.Translations) != 0 {
		t.Fatalf("expected empty record, got %d turns", len(rec.Translations))
	}
}

func TestWrite_ReplacesRecordWholesale(t *testing.T) {
	store := NewStore(NewMemorySlot(), "conversation:s1")
	ctx := context.Background()

	first := []Turn{turn("t1", speaker.Investigator, "Where were you?", "أين كنت؟")}
	if err := store.Write(ctx, 1, first, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	second := append(first, turn("t2", speaker.Witness, "At home", "في البيت"))
	if err := store.Write(ctx, 1, second, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rec := store.Read(ctx)
	if len(rec.Translations) != 2 || rec.Translations[0].ID != "t1" || rec.Translations[1].ID != "t2" {
		t.Fatalf("unexpected record: %+v", rec.Translations)
	}
	if rec.InvestigatorLanguage != "en-US" || rec.ParticipantLanguage != "ar-SA" {
		t.Fatalf("unexpected languages: %s %s", rec.InvestigatorLanguage, rec.ParticipantLanguage)
	}
	if _, err := time.Parse(time.RFC3339Nano, rec.LastUpdated); err != nil {
		t.Fatalf("lastUpdated is not ISO-8601: %q", rec.LastUpdated)
	}
}

func TestWrite_RejectsStaleGeneration(t *testing.T) {
	store := NewStore(NewMemorySlot(), "conversation:s1")
	ctx := context.Background()

	if err := store.Write(ctx, 1, []Turn{turn("t1", speaker.Witness, "a", "b")}, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Reset(ctx, 2, langs); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	err := store.Write(ctx, 1, []Turn{turn("t1", speaker.Witness, "a", "b"), turn("t2", speaker.Witness, "c", "d")}, langs)
	if !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("expected ErrStaleGeneration, got %v", err)
	}
	rec := store.Read(ctx)
	if len(rec.Translations) != 0 || rec.Generation != 2 {
		t.Fatalf("expected empty generation-2 record, got %d turns gen %d", len(rec.Translations), rec.Generation)
	}
}

func TestWrite_SaveErrorIsReturned(t *testing.T) {
	store := NewStore(failingSlot{}, "conversation:s1")
	if err := store.Write(context.Background(), 1, nil, langs); err == nil {
		t.Fatal("expected save error to be returned")
	}
}

func TestSubscribe_EmitsInitialAndInProcessWrites(t *testing.T) {
	store := NewStore(plainSlot{inner: NewMemorySlot()}, "conversation:s1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := store.Subscribe(ctx, time.Hour)
	initial := receive(t, updates)
	if len(initial.Translations) != 0 {
		t.Fatalf("expected empty initial record, got %d", len(initial.Translations))
	}

	if err := store.Write(ctx, 1, []Turn{turn("t1", speaker.Witness, "a", "b")}, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	rec := receive(t, updates)
	if len(rec.Translations) != 1 {
		t.Fatalf("expected one turn, got %d", len(rec.Translations))
	}
}

func TestSubscribe_PollingCatchesWritesFromAnotherStore(t *testing.T) {
	slot := plainSlot{inner: NewMemorySlot()}
	writer := NewStore(slot, "conversation:s1")
	reader := NewStore(slot, "conversation:s1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := reader.Subscribe(ctx, 10*time.Millisecond)
	receive(t, updates)

	if err := writer.Write(ctx, 1, []Turn{turn("t1", speaker.Witness, "a", "b")}, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if rec := receive(t, updates); len(rec.Translations) != 1 {
		t.Fatalf("expected polled record with one turn, got %d", len(rec.Translations))
	}
}

func TestSubscribe_SlotWatcherDeliversCrossStoreWrites(t *testing.T) {
	slot := NewMemorySlot()
	writer := NewStore(slot, "conversation:s1")
	reader := NewStore(slot, "conversation:s1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := reader.Subscribe(ctx, time.Hour)
	receive(t, updates)

	if err := writer.Write(ctx, 1, []Turn{turn("t1", speaker.Witness, "a", "b")}, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if rec := receive(t, updates); len(rec.Translations) != 1 {
		t.Fatalf("expected watched record with one turn, got %d", len(rec.Translations))
	}
}

func TestSubscribe_LateSubscriberSeesExistingRecord(t *testing.T) {
	store := NewStore(NewMemorySlot(), "conversation:s1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := store.Write(ctx, 1, []Turn{turn("t1", speaker.Witness, "a", "b"), turn("t2", speaker.Victim, "c", "d")}, langs); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rec := receive(t, store.Subscribe(ctx, time.Hour))
	if len(rec.Translations) != 2 {
		t.Fatalf("expected late subscriber to rebuild from record, got %d", len(rec.Translations))
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	store := NewStore(NewMemorySlot(), "conversation:s1")
	ctx, cancel := context.WithCancel(context.Background())
	updates := store.Subscribe(ctx, time.Hour)
	receive(t, updates)
	cancel()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close after cancel")
	}
}

func receive(t *testing.T, ch <-chan Record) Record {
	t.Helper()
	select {
	case rec, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
	}
	return Record{}
}
