// Package transcript buffers incremental speech recognition results for a
// recording session and hands finalized segments to the translation stage.
package transcript

import (
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/metrics"
)

type Status string

const (
	StatusOff Status = "off"
	StatusOn  Status = "on"
)

// keyPrefixRunes is how much of the text participates in a segment's identity.
const keyPrefixRunes = 24

// Segment is one incremental recognition result.
type Segment struct {
	Speaker    string
	Text       string
	IsFinal    bool
	ArrivedAt  time.Time
	Generation uint64
}

// SequenceKey identifies a logical utterance across re-deliveries.
type SequenceKey struct {
	ArrivedAt int64
	Speaker   string
	Prefix    string
}

func (s Segment) Key() SequenceKey {
	text := []rune(strings.TrimSpace(s.Text))
	if len(text) > keyPrefixRunes {
		text = text[:keyPrefixRunes]
	}
	return SequenceKey{
		ArrivedAt: s.ArrivedAt.UnixNano(),
		Speaker:   s.Speaker,
		Prefix:    string(text),
	}
}

type Buffer struct {
	mu         sync.Mutex
	status     Status
	generation uint64
	entries    map[SequenceKey]Segment
	order      []SequenceKey
	drained    map[SequenceKey]struct{}
	metrics    *metrics.Metrics
}

func NewBuffer(generation uint64) *Buffer {
	return &Buffer{
		status:     StatusOff,
		generation: generation,
		entries:    make(map[SequenceKey]Segment),
		drained:    make(map[SequenceKey]struct{}),
		metrics:    metrics.DefaultMetrics,
	}
}

func (b *Buffer) SetStatus(status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

func (b *Buffer) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Buffer) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Ingest buffers seg and reports whether the buffer changed. A segment with
// an already buffered key only replaces it when it finalizes the utterance.
func (b *Buffer) Ingest(seg Segment) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != StatusOn {
		return false
	}
	if seg.Generation != b.generation {
		slog.Debug("dropping segment from previous generation", "segment_generation", seg.Generation, "generation", b.generation)
		b.metrics.SegmentsDropped.WithLabelValues("stale_generation").Inc()
		return false
	}
	seg.Text = strings.TrimSpace(seg.Text)
	if seg.Text == "" {
		slog.Debug("dropping empty segment", "speaker", seg.Speaker)
		b.metrics.SegmentsDropped.WithLabelValues("empty").Inc()
		return false
	}

	key := seg.Key()
	if _, done := b.drained[key]; done {
		b.metrics.SegmentsDropped.WithLabelValues("duplicate").Inc()
		return false
	}
	existing, ok := b.entries[key]
	if !ok {
		b.entries[key] = seg
		b.order = append(b.order, key)
		b.metrics.SegmentsIngested.Inc()
		if seg.IsFinal {
			b.prunePartialsBefore(key)
		}
		return true
	}
	if existing.IsFinal || !seg.IsFinal {
		b.metrics.SegmentsDropped.WithLabelValues("duplicate").Inc()
		return false
	}
	b.entries[key] = seg
	b.metrics.SegmentsIngested.Inc()
	b.prunePartialsBefore(key)
	return true
}

// prunePartialsBefore forgets interim revisions buffered ahead of a newly
// finalized segment. Interim results carry no stable start time, so every
// revision has its own key; a final supersedes them all.
func (b *Buffer) prunePartialsBefore(final SequenceKey) {
	kept := b.order[:0]
	pruned := 0
	reached := false
	for _, key := range b.order {
		if key == final {
			reached = true
		}
		if !reached && !b.entries[key].IsFinal {
			delete(b.entries, key)
			pruned++
			continue
		}
		kept = append(kept, key)
	}
	clear(b.order[len(kept):])
	b.order = kept
	if pruned > 0 {
		b.metrics.SegmentsDropped.WithLabelValues("superseded").Add(float64(pruned))
	}
}

// Drain yields, in arrival order, the finalized segments not handed out by
// an earlier Drain. Segments are marked as drained only when yielded, so a
// consumer that stops early leaves the rest for the next call. Iteration
// stops if the buffer is reset underneath it.
func (b *Buffer) Drain() iter.Seq[Segment] {
	b.mu.Lock()
	generation := b.generation
	pending := make([]SequenceKey, 0)
	for _, key := range b.order {
		if _, done := b.drained[key]; done {
			continue
		}
		if b.entries[key].IsFinal {
			pending = append(pending, key)
		}
	}
	b.mu.Unlock()

	return func(yield func(Segment) bool) {
		for _, key := range pending {
			seg, ok := b.take(generation, key)
			if !ok {
				if b.Generation() != generation {
					return
				}
				continue
			}
			if !yield(seg) {
				return
			}
		}
	}
}

func (b *Buffer) take(generation uint64, key SequenceKey) (Segment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != generation {
		return Segment{}, false
	}
	if _, done := b.drained[key]; done {
		return Segment{}, false
	}
	seg, ok := b.entries[key]
	if !ok {
		return Segment{}, false
	}
	b.drained[key] = struct{}{}
	return seg, true
}

// Transcript returns the finalized segments joined as "speaker: text" lines.
func (b *Buffer) Transcript() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]string, 0, len(b.order))
	for _, key := range b.order {
		seg := b.entries[key]
		if !seg.IsFinal {
			continue
		}
		lines = append(lines, seg.Speaker+": "+seg.Text)
	}
	return strings.Join(lines, "\n")
}

// Reset discards every buffered segment and the drain history, and moves
// the buffer to generation. Recording status is left unchanged.
func (b *Buffer) Reset(generation uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation = generation
	b.entries = make(map[SequenceKey]Segment)
	b.order = nil
	b.drained = make(map[SequenceKey]struct{})
}
