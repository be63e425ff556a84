package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/foxseedlab/interviewfeed/internal/speaker"
	"github.com/foxseedlab/interviewfeed/internal/transcript"
	"github.com/foxseedlab/interviewfeed/internal/translator"
)

var enAr = conversation.Languages{Investigator: "en-US", Participant: "ar-SA"}

type translateFunc func(ctx context.Context, text, sourceLang, targetLang string) (translator.Result, error)

func (f translateFunc) Translate(ctx context.Context, text, sourceLang, targetLang string) (translator.Result, error) {
	return f(ctx, text, sourceLang, targetLang)
}

// dictionary translates known phrases and detects the language it maps from.
func dictionary(entries map[string]translator.Result) translateFunc {
	return func(_ context.Context, text, _, _ string) (translator.Result, error) {
		if res, ok := entries[text]; ok {
			return res, nil
		}
		return translator.Result{Text: text}, nil
	}
}

type recordingPublisher struct {
	// delay simulates an unreachable broker.
	delay time.Duration

	mu     sync.Mutex
	events []events.TurnEvent
}

func (p *recordingPublisher) PublishTurn(_ context.Context, event events.TurnEvent) error {
	time.Sleep(p.delay)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type testSession struct {
	*Session
	publisher *recordingPublisher
}

func startTestSession(t *testing.T, tr translator.Translator, timeout, errorDisplayFor time.Duration) testSession {
	t.Helper()
	return startTestSessionWithSlot(t, conversation.NewMemorySlot(), tr, timeout, errorDisplayFor)
}

func startTestSessionWithSlot(t *testing.T, slot conversation.Slot, tr translator.Translator, timeout, errorDisplayFor time.Duration) testSession {
	t.Helper()
	pub := &recordingPublisher{}
	s := newSession(sessionParams{
		id:              "s1",
		startedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		languages:       enAr,
		participantRole: speaker.Witness,
		store:           conversation.NewStore(slot, slotKey("s1")),
		router:          NewRouter(tr, timeout),
		publisher:       pub,
		errorDisplayFor: errorDisplayFor,
	})
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.SetRecording(transcript.StatusOn)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.stop(ctx)
	})
	return testSession{Session: s, publisher: pub}
}

var arrival = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func finalSegment(s *Session, offset time.Duration, speakerLabel, text string) transcript.Segment {
	return transcript.Segment{
		Speaker:    speakerLabel,
		Text:       text,
		IsFinal:    true,
		ArrivedAt:  arrival.Add(offset),
		Generation: s.Generation(),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func turnTexts(turns []conversation.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, turn := range turns {
		out = append(out, turn.OriginalText)
	}
	return out
}
