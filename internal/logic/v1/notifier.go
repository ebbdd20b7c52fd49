package v1

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onsamiro-welfare-service/onsae-console/internal/logger"
	"github.com/onsamiro-welfare-service/onsae-console/internal/upstream"
)

var (
	notifyPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onsae_notify_polls_total",
		Help: "Completed unread-notification poll ticks.",
	})
	notifyPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onsae_notify_poll_errors_total",
		Help: "Unread-notification poll ticks that failed.",
	})
	notifyPollSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onsae_notify_poll_skips_total",
		Help: "Poll ticks skipped because the previous fetch was still in flight.",
	})
)

// Notifier polls the upstream unread upload-notification count at a fixed
// interval. It owns its goroutine: Start binds it to a context, Stop (or the
// context ending) is guaranteed to release it — no bare timer handles.
// Overlapping ticks are suppressed with an in-flight guard.
type Notifier struct {
	api      *upstream.Client
	creds    upstream.Credentials
	interval time.Duration

	unread   atomic.Int64
	inFlight atomic.Bool

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNotifier creates a Notifier polling with the given credentials.
func NewNotifier(api *upstream.Client, creds upstream.Credentials, interval time.Duration) *Notifier {
	return &Notifier{
		api:      api,
		creds:    creds,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Unread returns the most recently fetched unread count.
func (n *Notifier) Unread() int64 {
	return n.unread.Load()
}

// Start launches the poll loop. The loop ends when ctx is cancelled or Stop
// is called, whichever comes first.
func (n *Notifier) Start(ctx context.Context) {
	ctx, n.cancel = context.WithCancel(ctx)

	go func() {
		defer close(n.done)

		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Ticks run off the loop so a slow fetch cannot stall
				// shutdown; the in-flight guard keeps them from piling up.
				go n.tick(ctx)
			}
		}
	}()
}

// Stop cancels the poll loop and waits for it to exit. Idempotent.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
			<-n.done
		}
	})
}

// tick fetches the unread count once, unless the previous fetch has not
// resolved yet.
func (n *Notifier) tick(ctx context.Context) {
	if !n.inFlight.CompareAndSwap(false, true) {
		notifyPollSkips.Inc()
		return
	}
	defer n.inFlight.Store(false)

	count, err := n.api.GetUnreadNotificationCount(ctx, n.creds)
	if err != nil {
		notifyPollErrors.Inc()
		logger.FromContext(ctx).Warn().Err(err).Msg("Notification poll failed")
		return
	}

	n.unread.Store(count)
	notifyPolls.Inc()
}
