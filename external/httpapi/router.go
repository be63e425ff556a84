// Package httpapi exposes interview sessions and their conversation feeds
// over HTTP and WebSocket.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the part of session.Manager the API drives.
type Sessions interface {
	CreateSession(ctx context.Context, input session.CreateSessionInput) (*session.Session, error)
	StartRecording(sessionID string) error
	StopRecording(sessionID string) error
	Reset(ctx context.Context, sessionID string) error
	EndSession(ctx context.Context, sessionID string) error
	IngestSegment(sessionID string, input session.SegmentInput) (bool, error)
	OpenAudioStream(ctx context.Context, sessionID, speakerLabel string) (*session.AudioStream, error)
	Status(sessionID string) (session.StatusSnapshot, error)
	Feed(ctx context.Context, sessionID string) (conversation.Feed, error)
	Export(ctx context.Context, sessionID string) ([]byte, error)
}

type Handler struct {
	sessions     Sessions
	pollInterval time.Duration
}

func NewHandler(sessions Sessions, pollInterval time.Duration) *Handler {
	return &Handler{sessions: sessions, pollInterval: pollInterval}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", h.endSession)
			r.Get("/status", h.status)
			r.Put("/recording", h.setRecording)
			r.Post("/reset", h.reset)
			r.Post("/segments", h.ingestSegment)
			r.Get("/feed", h.feed)
			r.Get("/feed/ws", h.feedWebSocket)
			r.Get("/audio/ws", h.audioWebSocket)
			r.Get("/export", h.export)
		})
	})

	return r
}
