//go:build !opus

package audio

import (
	"log/slog"
	"sync"

	"github.com/foxseedlab/interviewfeed/internal/audio"
)

var warnStubOnce sync.Once

type noopMixer struct{}

// NewOpusMixer returns a mixer that discards audio. Build with -tags opus
// (requires libopus) to decode browser audio.
func NewOpusMixer() audio.Mixer {
	warnStubOnce.Do(func() {
		slog.Warn("opus support not compiled in; audio streams will produce no transcripts")
	})
	return &noopMixer{}
}

func (m *noopMixer) WriteOpusPacket(_ string, _ []byte) {}

func (m *noopMixer) ReadMixedPCM(_ []byte) (int, error) {
	return 0, nil
}

func (m *noopMixer) Close() {}
