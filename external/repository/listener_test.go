package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func received(ch <-chan struct{}) bool {
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestNotificationHub_DispatchReachesOnlyMatchingKey(t *testing.T) {
	hub := newNotificationHub()
	a1 := hub.subscribe("conversation:a")
	a2 := hub.subscribe("conversation:a")
	b := hub.subscribe("conversation:b")

	hub.dispatch("conversation:a")

	if !received(a1) || !received(a2) {
		t.Fatal("both watchers of the saved key should be notified")
	}
	if received(b) {
		t.Fatal("watcher of another key should not be notified")
	}
}

func TestNotificationHub_RepeatedDispatchDoesNotBlock(t *testing.T) {
	hub := newNotificationHub()
	ch := hub.subscribe("conversation:a")

	done := make(chan struct{})
	go func() {
		for range 100 {
			hub.dispatch("conversation:a")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on an unread watcher")
	}
	if !received(ch) {
		t.Fatal("coalesced notification missing")
	}
}

func TestNotificationHub_UnsubscribeClosesAndForgets(t *testing.T) {
	hub := newNotificationHub()
	ch := hub.subscribe("conversation:a")
	hub.unsubscribe("conversation:a", ch)
	hub.unsubscribe("conversation:a", ch)

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if got := hub.watchers(); got != 0 {
		t.Fatalf("watchers = %d, want 0", got)
	}
	hub.dispatch("conversation:a")
}

func TestNotificationHub_BroadcastWakesEveryKey(t *testing.T) {
	hub := newNotificationHub()
	a := hub.subscribe("conversation:a")
	b := hub.subscribe("conversation:b")

	hub.broadcast()

	if !received(a) || !received(b) {
		t.Fatal("broadcast should reach every watcher")
	}
}

func TestNotificationHub_ManyWatchersShareOneHub(t *testing.T) {
	hub := newNotificationHub()
	ctx, cancel := context.WithCancel(context.Background())
	const n = 500
	chans := make([]chan struct{}, n)
	for i := range n {
		key := fmt.Sprintf("conversation:%d", i%10)
		chans[i] = hub.subscribe(key)
		go func(key string, ch chan struct{}) {
			<-ctx.Done()
			hub.unsubscribe(key, ch)
		}(key, chans[i])
	}
	if got := hub.watchers(); got != n {
		t.Fatalf("watchers = %d, want %d", got, n)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for hub.watchers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watchers = %d after cancel, want 0", hub.watchers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSlotListener_StopWithoutStart(t *testing.T) {
	l := newSlotListener(nil)
	done := make(chan struct{})
	go func() {
		l.stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop blocked on a listener that never started")
	}
}

func TestNotFoundOr(t *testing.T) {
	other := errors.New("boom")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"malformed uuid", &pgconn.PgError{Code: "22P02"}, repository.ErrNotFound},
		{"wrapped malformed uuid", fmt.Errorf("get: %w", &pgconn.PgError{Code: "22P02"}), repository.ErrNotFound},
		{"other pg error", &pgconn.PgError{Code: "23505"}, nil},
		{"other error", other, other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := notFoundOr(tc.err)
			if tc.want == nil {
				if errors.Is(got, repository.ErrNotFound) {
					t.Fatalf("got ErrNotFound for %v", tc.err)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
