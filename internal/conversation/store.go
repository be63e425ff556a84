package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/metrics"
)

const DefaultPollInterval = 1500 * time.Millisecond

var ErrStaleGeneration = errors.New("conversation: write from a stale generation")

// Feed is the read-only view of a Store handed to viewers.
type Feed interface {
	Read(ctx context.Context) Record
	Subscribe(ctx context.Context, pollInterval time.Duration) <-chan Record
}

// Store is the single-writer, many-reader conversation record for one
// interview session.
type Store struct {
	slot    Slot
	key     string
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	generation  uint64
	subscribers map[chan struct{}]struct{}
}

func NewStore(slot Slot, key string) *Store {
	return &Store{
		slot:        slot,
		key:         key,
		metrics:     metrics.DefaultMetrics,
		now:         time.Now,
		subscribers: make(map[chan struct{}]struct{}),
	}
}

func (s *Store) Key() string {
	return s.key
}

// Write replaces the record with turns and notifies subscribers. Writes
// tagged with a generation older than the latest accepted one are rejected.
func (s *Store) Write(ctx context.Context, generation uint64, turns []Turn, langs Languages) error {
	s.mu.Lock()
	if generation < s.generation {
		s.mu.Unlock()
		s.metrics.StoreStaleWrites.Inc()
		return fmt.Errorf("%w: got %d, current %d", ErrStaleGeneration, generation, s.generation)
	}
	rec := Record{
		Translations:         append(make([]Turn, 0, len(turns)), turns...),
		LastUpdated:          s.now().UTC().Format(time.RFC3339Nano),
		InvestigatorLanguage: langs.Investigator,
		ParticipantLanguage:  langs.Participant,
		Generation:           generation,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode conversation record: %w", err)
	}
	if err := s.slot.Save(ctx, s.key, payload); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save conversation record: %w", err)
	}
	s.generation = generation
	subs := make([]chan struct{}, 0, len(s.subscribers))
	for ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	s.metrics.StoreWrites.Inc()
	for _, ch := range subs {
		signal(ch)
	}
	return nil
}

// Reset clears the conversation and moves the store to generation.
func (s *Store) Reset(ctx context.Context, generation uint64, langs Languages) error {
	return s.Write(ctx, generation, nil, langs)
}

// Read never fails: a missing or undecodable slot reads as an empty record.
func (s *Store) Read(ctx context.Context) Record {
	payload, err := s.slot.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			slog.Warn("failed to load conversation record", "error", err, "key", s.key)
			s.metrics.StoreReadErrors.WithLabelValues("load").Inc()
		}
		return emptyRecord()
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		slog.Warn("conversation record is corrupt; treating as empty", "error", err, "key", s.key)
		s.metrics.StoreReadErrors.WithLabelValues("decode").Inc()
		return emptyRecord()
	}
	if rec.Translations == nil {
		rec.Translations = []Turn{}
	}
	return rec
}

// Subscribe emits the current record immediately and then every time it
// changes. Changes are detected from in-process writes, from the slot's
// watcher when it has one, and from a periodic poll that catches anything
// the notifications missed. The channel is closed when ctx ends.
func (s *Store) Subscribe(ctx context.Context, pollInterval time.Duration) <-chan Record {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	local := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[local] = struct{}{}
	s.mu.Unlock()

	var remote <-chan struct{}
	if w, ok := s.slot.(Watcher); ok {
		ch, err := w.Watch(ctx, s.key)
		if err != nil {
			slog.Warn("slot watch unavailable; relying on polling", "error", err, "key", s.key)
		} else {
			remote = ch
		}
	}

	out := make(chan Record)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.subscribers, local)
			s.mu.Unlock()
		}()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		last := s.Read(ctx)
		if !send(ctx, out, last) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-local:
			case _, ok := <-remote:
				if !ok {
					remote = nil
					continue
				}
			case <-ticker.C:
			}
			rec := s.Read(ctx)
			if rec.sameAs(last) {
				continue
			}
			last = rec
			if !send(ctx, out, rec) {
				return
			}
		}
	}()
	return out
}

func send(ctx context.Context, out chan<- Record, rec Record) bool {
	select {
	case out <- rec:
		return true
	case <-ctx.Done():
		return false
	}
}
