package conversation

import (
	"context"
	"errors"
	"sync"
)

var ErrSlotEmpty = errors.New("conversation: slot is empty")

// Slot is a durable key/value cell visible to every reader of a conversation.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Watcher is implemented by slots that can announce changes made by other
// writers. The returned channel is closed when ctx ends.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

type MemorySlot struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[string]map[chan struct{}]struct{}
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{
		values:   make(map[string][]byte),
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (m *MemorySlot) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrSlotEmpty
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemorySlot) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	for ch := range m.watchers[key] {
		signal(ch)
	}
	return nil
}

func (m *MemorySlot) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[chan struct{}]struct{})
	}
	m.watchers[key][ch] = struct{}{}
	m.mu.Unlock()

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers[key], ch)
			m.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				signal(out)
			}
		}
	}()
	return out, nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
