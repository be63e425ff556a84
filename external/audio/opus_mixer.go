//go:build opus

package audio

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/foxseedlab/interviewfeed/internal/audio"
	"github.com/hraban/opus"
)

const (
	samplesPerFrame = audio.SampleRate * audio.FrameMillis * audio.Channels / 1000
	// maxQueuedFrames bounds how far a source may run ahead of the mixer (1s).
	maxQueuedFrames = 50
)

type OpusMixer struct {
	mu      sync.Mutex
	sources map[string]*source
	closed  bool
}

type source struct {
	decoder *opus.Decoder
	frames  [][]int16
}

func NewOpusMixer() audio.Mixer {
	return &OpusMixer{sources: make(map[string]*source)}
}

func (m *OpusMixer) WriteOpusPacket(sourceID string, packet []byte) {
	if len(packet) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	src, ok := m.sources[sourceID]
	if !ok {
		dec, err := opus.NewDecoder(audio.SampleRate, audio.Channels)
		if err != nil {
			slog.Error("failed to create opus decoder", "error", err, "source_id", sourceID)
			return
		}
		src = &source{decoder: dec}
		m.sources[sourceID] = src
	}
	pcm := make([]int16, samplesPerFrame)
	n, err := src.decoder.Decode(packet, pcm)
	if err != nil {
		slog.Debug("dropping undecodable opus packet", "error", err, "source_id", sourceID)
		return
	}
	if n == 0 {
		return
	}
	total := min(n*audio.Channels, samplesPerFrame)
	if len(src.frames) >= maxQueuedFrames {
		src.frames = src.frames[1:]
	}
	src.frames = append(src.frames, pcm[:total])
}

func (m *OpusMixer) ReadMixedPCM(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, nil
	}
	mixed := make([]int32, samplesPerFrame)
	hasAudio := false
	for _, src := range m.sources {
		if len(src.frames) == 0 {
			continue
		}
		frame := src.frames[0]
		src.frames = src.frames[1:]
		for i, v := range frame {
			mixed[i] += int32(v)
		}
		hasAudio = true
	}
	if !hasAudio {
		return 0, nil
	}
	samples := min(len(buf)/2, samplesPerFrame)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(clampPCM(mixed[i])))
	}
	return samples * 2, nil
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (m *OpusMixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sources = nil
}
