package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// notificationHub fans slot change notifications out to per-key watchers.
type notificationHub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newNotificationHub() *notificationHub {
	return &notificationHub{subs: make(map[string]map[chan struct{}]struct{})}
}

func (h *notificationHub) subscribe(key string) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan struct{}]struct{})
	}
	h.subs[key][ch] = struct{}{}
	return ch
}

func (h *notificationHub) unsubscribe(key string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[key][ch]; !ok {
		return
	}
	delete(h.subs[key], ch)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
	close(ch)
}

func (h *notificationHub) dispatch(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[key] {
		notify(ch)
	}
}

// broadcast wakes every watcher, used after a reconnect may have missed
// notifications.
func (h *notificationHub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, chans := range h.subs {
		for ch := range chans {
			notify(ch)
		}
	}
}

func (h *notificationHub) watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, chans := range h.subs {
		n += len(chans)
	}
	return n
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// slotListener owns one connection outside the pool that LISTENs for slot
// changes for the life of the repository.
type slotListener struct {
	pool *pgxpool.Pool
	hub  *notificationHub

	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSlotListener(pool *pgxpool.Pool) *slotListener {
	ctx, cancel := context.WithCancel(context.Background())
	return &slotListener{
		pool:   pool,
		hub:    newNotificationHub(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (l *slotListener) start() {
	l.once.Do(func() {
		go l.run()
	})
}

func (l *slotListener) stop() {
	l.cancel()
	// Never started: nothing will close done.
	l.once.Do(func() { close(l.done) })
	<-l.done
}

func (l *slotListener) run() {
	defer close(l.done)
	backoff := listenRetryMin
	for {
		err := l.listen()
		if l.ctx.Err() != nil {
			return
		}
		slog.Warn("slot listener disconnected; retrying", "error", err, "retry_in", backoff)
		select {
		case <-l.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, listenRetryMax)
	}
}

func (l *slotListener) listen() error {
	conn, err := pgx.ConnectConfig(l.ctx, l.pool.Config().ConnConfig.Copy())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()
	if _, err := conn.Exec(l.ctx, "LISTEN "+slotChangedChannel); err != nil {
		return err
	}
	slog.Info("slot listener connected", "channel", slotChangedChannel)
	// Anything written while disconnected was not announced.
	l.hub.broadcast()
	for {
		n, err := conn.WaitForNotification(l.ctx)
		if err != nil {
			return err
		}
		l.hub.dispatch(n.Payload)
	}
}
