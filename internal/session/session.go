package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/foxseedlab/interviewfeed/internal/metrics"
	"github.com/foxseedlab/interviewfeed/internal/speaker"
	"github.com/foxseedlab/interviewfeed/internal/transcript"
	"github.com/google/uuid"
)

const (
	messagePublishFailed = "Conversation could not be saved; it will be retried with the next turn."

	defaultStoreWriteTimeout = 5 * time.Second
	turnEventQueueSize       = 256
)

// Session is one interview: a transcript buffer feeding a single router
// goroutine that appends turns to the conversation store.
//
// Every segment carries the generation it was recorded in. Reset bumps the
// generation under mu, and turns are appended under mu only when their
// generation is still current, so work started before a reset can never
// resurrect cleared turns.
type Session struct {
	ID              string
	StartedAt       time.Time
	Languages       conversation.Languages
	ParticipantRole speaker.Role

	buffer    *transcript.Buffer
	store     *conversation.Store
	router    *Router
	publisher events.Publisher
	errStatus *errorStatus
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	// writeTimeout bounds each store write, which runs with mu held.
	writeTimeout time.Duration

	mu            sync.Mutex
	generation    uint64
	resetAt       time.Time
	turns         []conversation.Turn
	lastTimestamp time.Time
	audio         map[*AudioStream]struct{}

	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	turnEvents  chan events.TurnEvent
	eventsDone  chan struct{}
	closeEvents sync.Once
}

type sessionParams struct {
	id              string
	startedAt       time.Time
	languages       conversation.Languages
	participantRole speaker.Role
	store           *conversation.Store
	router          *Router
	publisher       events.Publisher
	errorDisplayFor time.Duration
}

func newSession(p sessionParams) *Session {
	const firstGeneration = 1
	return &Session{
		ID:              p.id,
		StartedAt:       p.startedAt,
		Languages:       p.languages,
		ParticipantRole: p.participantRole,
		buffer:          transcript.NewBuffer(firstGeneration),
		store:           p.store,
		router:          p.router,
		publisher:       p.publisher,
		errStatus:       newErrorStatus(p.errorDisplayFor),
		metrics:         metrics.DefaultMetrics,
		now:             time.Now,
		newID:           uuid.NewString,
		writeTimeout:    defaultStoreWriteTimeout,
		generation:      firstGeneration,
		audio:           make(map[*AudioStream]struct{}),
		wake:            make(chan struct{}, 1),
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
		turnEvents:      make(chan events.TurnEvent, turnEventQueueSize),
		eventsDone:      make(chan struct{}),
	}
}

// start clears any record left in the slot and launches the router loop.
func (s *Session) start(ctx context.Context) error {
	if err := s.store.Reset(ctx, s.generation, s.Languages); err != nil {
		return err
	}
	go s.run()
	go s.runEvents()
	return nil
}

func (s *Session) run() {
	defer close(s.done)
	ctx := context.Background()
	for {
		select {
		case <-s.quit:
			s.processPending(ctx)
			return
		case <-s.wake:
			s.processPending(ctx)
		}
	}
}

// stop ends the router loop after the already finalized segments are
// processed, or when ctx expires.
func (s *Session) stop(ctx context.Context) error {
	s.SetRecording(transcript.StatusOff)
	s.closeAudioStreams()
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	// The router has exited, so nothing sends on turnEvents any more.
	s.closeEvents.Do(func() { close(s.turnEvents) })
	select {
	case <-s.eventsDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runEvents delivers turn events in publish order, off the router goroutine,
// so a slow or unavailable downstream never delays the feed.
func (s *Session) runEvents() {
	defer close(s.eventsDone)
	for event := range s.turnEvents {
		if s.publisher == nil {
			continue
		}
		err := s.publisher.PublishTurn(context.Background(), event)
		s.metrics.RecordEventPublish(err)
		if err != nil {
			slog.Warn("failed to publish turn event", "error", err, "session_id", s.ID, "turn_id", event.Turn.ID)
		}
	}
}

func (s *Session) processPending(ctx context.Context) {
	for seg := range s.buffer.Drain() {
		s.process(ctx, seg)
	}
}

func (s *Session) process(ctx context.Context, seg transcript.Segment) {
	role := speaker.Normalize(seg.Speaker, s.ParticipantRole)
	routed, err := s.router.Route(ctx, seg.Text, role, s.Languages)
	if err != nil {
		slog.Warn("translation failed; publishing original text", "error", err, "session_id", s.ID, "role", role)
		s.errStatus.Set(err.Error())
	}
	s.publish(ctx, seg.Generation, role, seg.Text, routed)
}

func (s *Session) publish(ctx context.Context, generation uint64, role speaker.Role, text string, routed routedText) {
	s.mu.Lock()
	if generation != s.generation {
		current := s.generation
		s.mu.Unlock()
		slog.Info("discarding turn from before reset", "session_id", s.ID, "generation", generation, "current_generation", current)
		s.metrics.StaleTurnsDiscarded.Inc()
		return
	}
	ts := s.now()
	if !ts.After(s.lastTimestamp) {
		ts = s.lastTimestamp.Add(time.Nanosecond)
	}
	turn := conversation.Turn{
		ID:                  s.newID(),
		Role:                role,
		OriginalText:        text,
		OriginalLanguage:    routed.OriginalLanguage,
		InvestigatorDisplay: routed.InvestigatorDisplay,
		ParticipantDisplay:  routed.ParticipantDisplay,
		Timestamp:           ts,
	}
	s.turns = append(s.turns, turn)
	s.lastTimestamp = ts
	index := len(s.turns) - 1
	err := s.writeStore(ctx, generation, s.turns)
	s.mu.Unlock()

	s.metrics.TurnsPublished.WithLabelValues(string(role)).Inc()
	if err != nil {
		slog.Error("failed to write conversation record", "error", err, "session_id", s.ID, "generation", generation)
		if !errors.Is(err, conversation.ErrStaleGeneration) {
			s.errStatus.Set(messagePublishFailed)
		}
	}

	if s.publisher == nil {
		return
	}
	select {
	case s.turnEvents <- events.TurnEvent{
		SessionID:            s.ID,
		Generation:           generation,
		Index:                index,
		InvestigatorLanguage: s.Languages.Investigator,
		ParticipantLanguage:  s.Languages.Participant,
		Turn:                 turn,
	}:
	default:
		slog.Warn("turn event queue full; dropping event", "session_id", s.ID, "turn_id", turn.ID)
		s.metrics.EventPublishTotal.WithLabelValues("dropped").Inc()
	}
}

// writeStore must be called with mu held.
func (s *Session) writeStore(ctx context.Context, generation uint64, turns []conversation.Turn) error {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return s.store.Write(ctx, generation, turns, s.Languages)
}

// Ingest hands a segment to the buffer and wakes the router when a
// finalized segment was accepted.
func (s *Session) Ingest(seg transcript.Segment) bool {
	accepted := s.buffer.Ingest(seg)
	if accepted && seg.IsFinal {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return accepted
}

// generationAt returns the generation an utterance that started at t
// belongs to. Anything that started before the last reset is stale.
func (s *Session) generationAt(t time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resetAt.IsZero() && t.Before(s.resetAt) {
		return s.generation - 1
	}
	return s.generation
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) SetRecording(status transcript.Status) {
	s.buffer.SetStatus(status)
}

func (s *Session) Recording() transcript.Status {
	return s.buffer.Status()
}

// Reset clears turns, buffered segments and dedup history, and writes an
// empty record under a new generation.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.resetAt = s.now()
	s.turns = nil
	s.buffer.Reset(s.generation)
	s.errStatus.Clear()
	slog.Info("session reset", "session_id", s.ID, "generation", s.generation)
	return s.writeStore(ctx, s.generation, nil)
}

// Turns returns a copy of the published turns.
func (s *Session) Turns() []conversation.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Turn(nil), s.turns...)
}

func (s *Session) Feed() conversation.Feed {
	return s.store
}

func (s *Session) Transcript() string {
	return s.buffer.Transcript()
}

type StatusSnapshot struct {
	SessionID            string            `json:"sessionId"`
	Recording            transcript.Status `json:"recording"`
	Generation           uint64            `json:"generation"`
	TurnCount            int               `json:"turnCount"`
	Error                string            `json:"error,omitempty"`
	InvestigatorLanguage string            `json:"investigatorLanguage"`
	ParticipantLanguage  string            `json:"participantLanguage"`
	ParticipantRole      speaker.Role      `json:"participantRole"`
	AudioStreams         int               `json:"audioStreams"`
}

func (s *Session) Status() StatusSnapshot {
	s.mu.Lock()
	generation, turnCount, audioStreams := s.generation, len(s.turns), len(s.audio)
	s.mu.Unlock()
	return StatusSnapshot{
		SessionID:            s.ID,
		Recording:            s.Recording(),
		Generation:           generation,
		TurnCount:            turnCount,
		Error:                s.errStatus.Get(),
		InvestigatorLanguage: s.Languages.Investigator,
		ParticipantLanguage:  s.Languages.Participant,
		ParticipantRole:      s.ParticipantRole,
		AudioStreams:         audioStreams,
	}
}
