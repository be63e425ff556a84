package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/session"
	"github.com/foxseedlab/interviewfeed/internal/transcript"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodyBytes = 1 << 20

type createSessionRequest struct {
	InvestigatorLanguage string `json:"investigatorLanguage"`
	ParticipantLanguage  string `json:"participantLanguage"`
	ParticipantRole      string `json:"participantRole"`
}

type recordingRequest struct {
	Status transcript.Status `json:"status"`
}

type segmentRequest struct {
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	IsFinal    bool      `json:"isFinal"`
	Timestamp  time.Time `json:"timestamp"`
	Generation uint64    `json:"generation"`
}

type segmentResponse struct {
	Accepted bool `json:"accepted"`
}

// FeedResponse is one viewer's projection of the conversation record.
type FeedResponse struct {
	Viewer      conversation.Viewer     `json:"viewer"`
	Generation  uint64                  `json:"generation"`
	LastUpdated string                  `json:"lastUpdated"`
	Turns       []conversation.ViewTurn `json:"turns"`
}

func newFeedResponse(rec conversation.Record, viewer conversation.Viewer) FeedResponse {
	return FeedResponse{
		Viewer:      viewer,
		Generation:  rec.Generation,
		LastUpdated: rec.LastUpdated,
		Turns:       conversation.Project(rec, viewer),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	s, err := h.sessions.CreateSession(r.Context(), session.CreateSessionInput{
		InvestigatorLanguage: req.InvestigatorLanguage,
		ParticipantLanguage:  req.ParticipantLanguage,
		ParticipantRole:      req.ParticipantRole,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Status())
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.sessions.Status(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) setRecording(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req recordingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var err error
	switch req.Status {
	case transcript.StatusOn:
		err = h.sessions.StartRecording(sessionID)
	case transcript.StatusOff:
		err = h.sessions.StopRecording(sessionID)
	default:
		writeError(w, http.StatusBadRequest, errors.New(`status must be "on" or "off"`))
		return
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	h.status(w, r)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeSessionError(w, err)
		return
	}
	h.status(w, r)
}

func (h *Handler) ingestSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accepted, err := h.sessions.IngestSegment(chi.URLParam(r, "sessionID"), session.SegmentInput{
		Speaker:    req.Speaker,
		Text:       req.Text,
		IsFinal:    req.IsFinal,
		Timestamp:  req.Timestamp,
		Generation: req.Generation,
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, segmentResponse{Accepted: accepted})
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	viewer, ok := conversation.ParseViewer(r.URL.Query().Get("viewer"))
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New(`viewer must be "investigator" or "participant"`))
		return
	}
	feed, err := h.sessions.Feed(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeedResponse(feed.Read(r.Context()), viewer))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	body, err := h.sessions.Export(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="interview-`+sessionID+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}
