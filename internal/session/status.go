package session

import (
	"sync"
	"time"
)

// errorStatus holds the last human-readable error of a session. A message
// clears itself after displayFor unless a newer one replaced it.
type errorStatus struct {
	displayFor time.Duration

	mu      sync.Mutex
	message string
	seq     uint64
	timer   *time.Timer
}

func newErrorStatus(displayFor time.Duration) *errorStatus {
	return &errorStatus{displayFor: displayFor}
}

func (e *errorStatus) Set(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	seq := e.seq
	e.message = message
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.displayFor, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.seq == seq {
			e.message = ""
		}
	})
}

func (e *errorStatus) Get() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

func (e *errorStatus) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.message = ""
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
