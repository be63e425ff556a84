package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/audio"
	"github.com/foxseedlab/interviewfeed/internal/transcriber"
	"github.com/foxseedlab/interviewfeed/internal/transcript"
)

const audioMixInterval = audio.FrameMillis * time.Millisecond

// AudioStream feeds Opus packets from one capture channel through a mixer
// into a transcriber stream whose results land in the session buffer.
type AudioStream struct {
	session      *Session
	speakerLabel string
	mixer        audio.Mixer
	writer       transcriber.StreamWriter
	cancel       context.CancelFunc
	packets      atomic.Int64
	closeOnce    sync.Once
}

func (a *AudioStream) SpeakerLabel() string {
	return a.speakerLabel
}

func (a *AudioStream) WritePacket(sourceID string, packet []byte) {
	n := a.packets.Add(1)
	if n == 1 || n%500 == 0 {
		slog.Info("received opus packet", "session_id", a.session.ID, "speaker", a.speakerLabel, "source_id", sourceID, "packet_bytes", len(packet), "total_packets", n)
	}
	a.mixer.WriteOpusPacket(sourceID, packet)
}

func (a *AudioStream) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		if err := a.writer.Close(); err != nil {
			slog.Warn("failed to close transcriber stream", "error", err, "session_id", a.session.ID)
		}
		a.mixer.Close()
		a.session.removeAudio(a)
		slog.Info("audio stream closed", "session_id", a.session.ID, "speaker", a.speakerLabel, "total_packets", a.packets.Load())
	})
}

func (a *AudioStream) pump(ctx context.Context) {
	ticker := time.NewTicker(audioMixInterval)
	defer ticker.Stop()
	buf := make([]byte, audio.FrameBytes)
	var written int64
	for {
		select {
		case <-ctx.Done():
			slog.Info("audio pump stopped", "session_id", a.session.ID, "speaker", a.speakerLabel, "written_frames", written)
			return
		case <-ticker.C:
			n, err := a.mixer.ReadMixedPCM(buf)
			if err != nil {
				slog.Warn("failed to read mixed pcm", "error", err, "session_id", a.session.ID)
				continue
			}
			if n == 0 {
				continue
			}
			if err := a.writer.Write(buf[:n]); err != nil {
				slog.Error("failed to write pcm to transcriber stream", "error", err, "session_id", a.session.ID, "pcm_bytes", n)
				return
			}
			written++
		}
	}
}

type resultReceiver struct {
	session *Session
	label   string
}

func (r *resultReceiver) OnResult(res transcriber.Result) {
	startedAt := res.StartedAt
	if startedAt.IsZero() {
		startedAt = r.session.now()
	}
	r.session.Ingest(transcript.Segment{
		Speaker:    res.Speaker,
		Text:       res.Text,
		IsFinal:    res.IsFinal,
		ArrivedAt:  startedAt,
		Generation: r.session.generationAt(startedAt),
	})
}

func (r *resultReceiver) OnError(err error) {
	if errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "operation was cancelled") {
		slog.Info("transcriber stream canceled", "error", err, "session_id", r.session.ID, "speaker", r.label)
		return
	}
	slog.Error("transcriber stream error", "error", err, "session_id", r.session.ID, "speaker", r.label)
	r.session.errStatus.Set("Speech recognition stream failed: " + err.Error())
}

func (s *Session) addAudio(a *AudioStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio[a] = struct{}{}
}

func (s *Session) removeAudio(a *AudioStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.audio, a)
}

func (s *Session) closeAudioStreams() {
	s.mu.Lock()
	streams := make([]*AudioStream, 0, len(s.audio))
	for a := range s.audio {
		streams = append(streams, a)
	}
	s.mu.Unlock()
	for _, a := range streams {
		a.Close()
	}
}
