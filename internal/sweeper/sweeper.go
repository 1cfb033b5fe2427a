// Package sweeper deactivates persisted links whose expiry has passed.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/pkg/logger"
)

// DefaultInterval is how often the sweep runs.
const DefaultInterval = 5 * time.Minute

// runTimeout bounds a single sweep pass against the store.
const runTimeout = time.Minute

// ExpiryStore is the slice of the repository the sweeper needs.
type ExpiryStore interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs a periodic expiry sweep, concurrent with request handling.
// It only touches the store: cache entries carry their own TTL, set at write
// time, and evict independently.
type Sweeper struct {
	store    ExpiryStore
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// New creates a Sweeper. A non-positive interval falls back to the default.
func New(store ExpiryStore, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Sweeper{
		store:    store,
		log:      log,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// WithClock replaces the sweep clock, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start launches the background sweep loop. Safe to call once.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop terminates the loop, waiting for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.doneChan
	})
}

// RunOnce performs a single sweep pass and returns how many links it
// deactivated. Zero is a normal result.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	count, err := s.store.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	metrics.RecordSweep(count)
	if count > 0 {
		s.log.Info("deactivated expired links", "count", count)
	}
	return count, nil
}

func (s *Sweeper) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("expiry sweep failed", "error", err.Error())
			}
			cancel()
		}
	}
}
