package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsamiro-welfare-service/onsae-console/internal/upstream"
)

type notifierCreds struct{}

func (notifierCreds) AccessToken(context.Context) (string, error)  { return "AT1", nil }
func (notifierCreds) ForceRefresh(context.Context) (string, error) { return "AT1", nil }

func TestNotifierFetchesUnreadCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 5})
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier(upstream.New(srv.URL, time.Second), notifierCreds{}, 5*time.Millisecond)
	n.Start(context.Background())
	defer n.Stop()

	require.Eventually(t, func() bool {
		return n.Unread() == 5
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierSuppressesOverlappingTicks(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(80 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 1})
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier(upstream.New(srv.URL, time.Second), notifierCreds{}, 5*time.Millisecond)
	n.Start(context.Background())

	time.Sleep(100 * time.Millisecond)
	n.Stop()

	// Roughly twenty ticks fired; the in-flight guard let at most a
	// couple of fetches through.
	assert.LessOrEqual(t, requests.Load(), int64(3))
}

func TestNotifierStopReleasesGoroutine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 0})
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier(upstream.New(srv.URL, time.Second), notifierCreds{}, time.Millisecond)
	n.Start(context.Background())

	done := make(chan struct{})
	go func() {
		n.Stop()
		n.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestNotifierContextCancelStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 0})
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	n := NewNotifier(upstream.New(srv.URL, time.Second), notifierCreds{}, time.Millisecond)
	n.Start(ctx)

	cancel()

	// Stop must still return promptly after the context already ended.
	done := make(chan struct{})
	go func() {
		n.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
