package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/audio"
	"github.com/foxseedlab/interviewfeed/internal/config"
	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/foxseedlab/interviewfeed/internal/metrics"
	"github.com/foxseedlab/interviewfeed/internal/repository"
	"github.com/foxseedlab/interviewfeed/internal/speaker"
	"github.com/foxseedlab/interviewfeed/internal/transcriber"
	"github.com/foxseedlab/interviewfeed/internal/transcript"
	"github.com/foxseedlab/interviewfeed/internal/translator"
	"github.com/foxseedlab/interviewfeed/internal/webhook"
)

const (
	sessionStopTimeout = 30 * time.Second
	slotKeyPrefix      = "conversation:"
)

var ErrSessionNotFound = errors.New("session not found")

type Manager struct {
	cfg         *config.Config
	repo        repository.Repository
	transcriber transcriber.Transcriber
	router      *Router
	webhook     webhook.Sender
	publisher   events.Publisher
	newMixer    audio.MixerFactory
	metrics     *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg *config.Config, repo repository.Repository, stt transcriber.Transcriber, tr translator.Translator, wh webhook.Sender, pub events.Publisher, newMixer audio.MixerFactory) *Manager {
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		transcriber: stt,
		router:      NewRouter(tr, cfg.TranslationTimeout()),
		webhook:     wh,
		publisher:   pub,
		newMixer:    newMixer,
		metrics:     metrics.DefaultMetrics,
		sessions:    make(map[string]*Session),
	}
}

type CreateSessionInput struct {
	InvestigatorLanguage string
	ParticipantLanguage  string
	ParticipantRole      string
}

func slotKey(sessionID string) string {
	return slotKeyPrefix + sessionID
}

// CreateSession registers a new interview with recording off. Empty
// languages fall back to the configured defaults and an unusable role to
// the configured participant role.
func (m *Manager) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	langs := conversation.Languages{
		Investigator: firstNonEmpty(input.InvestigatorLanguage, m.cfg.DefaultInvestigatorLanguage),
		Participant:  firstNonEmpty(input.ParticipantLanguage, m.cfg.DefaultParticipantLanguage),
	}
	role := m.cfg.ParticipantRole()
	if r, ok := speaker.ParseRole(input.ParticipantRole); ok && r != speaker.Investigator {
		role = r
	}

	created, err := m.repo.CreateSession(ctx, repository.CreateSessionInput{
		InvestigatorLanguage: langs.Investigator,
		ParticipantLanguage:  langs.Participant,
		ParticipantRole:      string(role),
		StartedAt:            time.Now(),
	})
	if err != nil {
		slog.Error("failed to create session in repository", "error", err)
		return nil, err
	}

	s := newSession(sessionParams{
		id:              created.ID,
		startedAt:       created.StartedAt,
		languages:       langs,
		participantRole: role,
		store:           conversation.NewStore(m.repo, slotKey(created.ID)),
		router:          m.router,
		publisher:       m.publisher,
		errorDisplayFor: m.cfg.ErrorDisplayTimeout(),
	})
	if err := s.start(ctx); err != nil {
		slog.Error("failed to initialize conversation store", "error", err, "session_id", created.ID)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	active := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SessionsActive.Set(float64(active))
	slog.Info("session created", "session_id", s.ID, "investigator_language", langs.Investigator, "participant_language", langs.Participant, "participant_role", role)
	return s, nil
}

func (m *Manager) Session(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

func (m *Manager) StartRecording(sessionID string) error {
	s, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	s.SetRecording(transcript.StatusOn)
	slog.Info("recording started", "session_id", sessionID)
	return nil
}

// StopRecording stops accepting segments and closes audio streams.
// Segments already finalized are still translated and published.
func (m *Manager) StopRecording(sessionID string) error {
	s, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	s.SetRecording(transcript.StatusOff)
	s.closeAudioStreams()
	slog.Info("recording stopped", "session_id", sessionID)
	return nil
}

func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	s, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	return s.Reset(ctx)
}

type SegmentInput struct {
	Speaker string
	Text    string
	IsFinal bool
	// Timestamp is the client's utterance identity; zero means now. It is
	// never compared with server time.
	Timestamp time.Time
	// Generation is the generation the client last read from Status. Zero
	// means the current generation at arrival.
	Generation uint64
}

// IngestSegment accepts a recognition result pushed by an external speech
// client. It reports whether the buffer changed. A segment tagged with a
// generation that is no longer current is dropped.
func (m *Manager) IngestSegment(sessionID string, input SegmentInput) (bool, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return false, err
	}
	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	generation := input.Generation
	if generation == 0 {
		generation = s.Generation()
	}
	return s.Ingest(transcript.Segment{
		Speaker:    input.Speaker,
		Text:       input.Text,
		IsFinal:    input.IsFinal,
		ArrivedAt:  ts,
		Generation: generation,
	}), nil
}

// OpenAudioStream starts a transcriber stream for one capture channel. A
// non-empty speakerLabel pins all results to that speaker and selects the
// language of its role; an empty label enables diarization in the
// participant language.
func (m *Manager) OpenAudioStream(ctx context.Context, sessionID, speakerLabel string) (*AudioStream, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return nil, err
	}
	speakerLabel = strings.TrimSpace(speakerLabel)
	language := s.Languages.Participant
	if speakerLabel != "" && speaker.Normalize(speakerLabel, s.ParticipantRole) == speaker.Investigator {
		language = s.Languages.Investigator
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	receiver := &resultReceiver{session: s, label: speakerLabel}
	writer, err := m.transcriber.StartStreaming(streamCtx, transcriber.StreamConfig{
		SessionID:    s.ID,
		Language:     language,
		SpeakerLabel: speakerLabel,
	}, receiver)
	if err != nil {
		cancel()
		slog.Error("failed to start transcriber streaming", "error", err, "session_id", s.ID)
		return nil, err
	}

	a := &AudioStream{
		session:      s,
		speakerLabel: speakerLabel,
		mixer:        m.newMixer(),
		writer:       writer,
		cancel:       cancel,
	}
	s.addAudio(a)
	go a.pump(streamCtx)
	slog.Info("audio stream opened", "session_id", s.ID, "speaker", speakerLabel, "language", language)
	return a, nil
}

func (m *Manager) Status(sessionID string) (StatusSnapshot, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return s.Status(), nil
}

// Feed returns the read-only conversation feed. Sessions that are no
// longer held in memory are served straight from the durable slot.
func (m *Manager) Feed(ctx context.Context, sessionID string) (conversation.Feed, error) {
	if s, err := m.Session(sessionID); err == nil {
		return s.Feed(), nil
	}
	if _, err := m.repo.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return conversation.NewStore(m.repo, slotKey(sessionID)), nil
}

// Export renders the plain-text transcript of a session.
func (m *Manager) Export(ctx context.Context, sessionID string) ([]byte, error) {
	feed, err := m.Feed(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	startedAt := time.Time{}
	if s, err := m.Session(sessionID); err == nil {
		startedAt = s.StartedAt
	} else if stored, err := m.repo.GetSession(ctx, sessionID); err == nil {
		startedAt = stored.StartedAt
	}
	rec := feed.Read(ctx)
	loc := m.location()
	return buildTranscriptText(sessionID, rec, startedAt, m.cfg.TranscriptTimezone, loc), nil
}

// EndSession stops recording, lets the router finish, delivers the
// transcript webhook and forgets the session.
func (m *Manager) EndSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	active := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	m.metrics.SessionsActive.Set(float64(active))

	slog.Info("ending session", "session_id", sessionID)
	stopCtx, cancel := context.WithTimeout(ctx, sessionStopTimeout)
	defer cancel()
	if err := s.stop(stopCtx); err != nil {
		slog.Warn("router did not finish before timeout", "error", err, "session_id", sessionID)
	}
	m.finalizeSession(ctx, s)
	return nil
}

func (m *Manager) finalizeSession(ctx context.Context, s *Session) {
	endedAt := time.Now()
	turns := s.Turns()
	if err := m.repo.UpdateSessionCompleted(ctx, repository.CompleteSessionInput{
		SessionID: s.ID,
		EndedAt:   endedAt,
		TurnCount: len(turns),
	}); err != nil {
		slog.Error("failed to complete session", "error", err, "session_id", s.ID)
	}
	payload := buildTranscriptWebhookPayload(s, turns, endedAt, m.cfg.TranscriptTimezone, m.location())
	if err := m.webhook.SendTranscript(ctx, payload); err != nil {
		slog.Error("failed to send webhook transcript", "error", err, "session_id", s.ID)
	}
	slog.Info("session finalized", "session_id", s.ID, "turns", len(turns))
}

// Shutdown ends every session still held in memory.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.EndSession(ctx, id); err != nil {
			slog.Warn("failed to end session during shutdown", "error", err, "session_id", id)
		}
	}
}

func (m *Manager) location() *time.Location {
	loc, err := time.LoadLocation(m.cfg.TranscriptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
