package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	// Opus frames are small; anything larger is not audio.
	maxAudioMessageBytes = 64 << 10
	defaultAudioSourceID = "default"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewer windows are served from other origins (overlay, kiosk display).
	CheckOrigin: func(*http.Request) bool { return true },
}

// feedWebSocket pushes the viewer's projection on connect and after every
// change. Viewers never write; inbound messages other than control frames
// are discarded.
func (h *Handler) feedWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	viewer, ok := conversation.ParseViewer(r.URL.Query().Get("viewer"))
	if !ok {
		http.Error(w, `viewer must be "investigator" or "participant"`, http.StatusBadRequest)
		return
	}
	feed, err := h.sessions.Feed(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "session_id", sessionID)
		return
	}
	defer func() { _ = conn.Close() }()

	m := metrics.DefaultMetrics
	m.FeedSubscribers.Inc()
	defer m.FeedSubscribers.Dec()
	slog.Info("feed viewer connected", "session_id", sessionID, "viewer", viewer, "remote", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go discardInbound(conn, cancel)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	updates := feed.Subscribe(ctx, h.pollInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("feed viewer disconnected", "session_id", sessionID, "viewer", viewer)
			return
		case rec, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(newFeedResponse(rec, viewer)); err != nil {
				slog.Info("feed write failed", "error", err, "session_id", sessionID)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func discardInbound(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// audioWebSocket accepts binary Opus packets from one capture channel.
// The optional "speaker" query parameter pins every result to that
// speaker; "source" distinguishes microphones mixed into the same channel.
func (h *Handler) audioWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	speakerLabel := strings.TrimSpace(r.URL.Query().Get("speaker"))
	sourceID := r.URL.Query().Get("source")
	if sourceID == "" {
		sourceID = defaultAudioSourceID
	}
	if _, err := h.sessions.Status(sessionID); err != nil {
		writeSessionError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "session_id", sessionID)
		return
	}
	defer func() { _ = conn.Close() }()

	stream, err := h.sessions.OpenAudioStream(r.Context(), sessionID, speakerLabel)
	if err != nil {
		slog.Error("failed to open audio stream", "error", err, "session_id", sessionID)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "audio stream unavailable"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer stream.Close()

	conn.SetReadLimit(maxAudioMessageBytes)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("audio websocket read error", "error", err, "session_id", sessionID)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		stream.WritePacket(sourceID, data)
	}
}
