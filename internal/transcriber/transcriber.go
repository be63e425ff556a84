package transcriber

import (
	"context"
	"time"
)

type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

// Result is one recognition result. Speaker is the stream's fixed label, a
// diarization label such as "Speaker 2", or empty when neither is known.
// StartedAt is the utterance start and stays stable across revisions.
type Result struct {
	Speaker   string
	Text      string
	IsFinal   bool
	StartedAt time.Time
}

type ResultReceiver interface {
	OnResult(result Result)
	OnError(err error)
}

type StreamConfig struct {
	SessionID string
	Language  string
	// SpeakerLabel pins every result to one speaker. When empty the stream
	// runs speaker diarization instead.
	SpeakerLabel string
}

type Transcriber interface {
	StartStreaming(ctx context.Context, cfg StreamConfig, receiver ResultReceiver) (StreamWriter, error)
}
