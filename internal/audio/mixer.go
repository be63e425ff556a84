package audio

// Mixer combines Opus packets from one or more capture sources (for
// example two microphones in the same room) into a single 16-bit
// little-endian mono PCM stream.
type Mixer interface {
	WriteOpusPacket(sourceID string, packet []byte)
	ReadMixedPCM(buf []byte) (int, error)
	Close()
}

type MixerFactory func() Mixer

const (
	SampleRate  = 48000
	Channels    = 1
	FrameMillis = 20
	// FrameBytes is the size of one mixed 20ms PCM frame.
	FrameBytes = SampleRate * FrameMillis / 1000 * Channels * 2
)
