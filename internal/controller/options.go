package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/beatlink/internal/clock"
	"github.com/roach88/beatlink/internal/metrics"
	"github.com/roach88/beatlink/internal/peer"
	"github.com/roach88/beatlink/internal/store"
)

// DefaultPollInterval is how often the dispatcher looks for audio commits.
const DefaultPollInterval = 5 * time.Millisecond

// Journal persists canonical session changes. Implemented by *store.Store.
type Journal interface {
	RecordCommit(ctx context.Context, c store.Commit) (string, error)
	LatestCommit(ctx context.Context) (store.Commit, bool, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to interpret session times.
//
// Default: clock.NewHost().
func WithClock(c *clock.Clock) Option {
	return func(ctl *Controller) {
		ctl.clock = c
	}
}

// WithEngine sets the peer synchronization engine.
//
// Default: peer.NewSolo(), which never sees other peers.
func WithEngine(e peer.Engine) Option {
	return func(ctl *Controller) {
		ctl.engine = e
	}
}

// WithJournal records every canonical change to j from the dispatcher.
func WithJournal(j Journal) Option {
	return func(ctl *Controller) {
		ctl.journal = j
	}
}

// WithRestore starts the controller from the latest journaled state instead
// of a fresh timeline. It has no effect without WithJournal or when the
// journal is empty.
func WithRestore() Option {
	return func(ctl *Controller) {
		ctl.restore = true
	}
}

// WithMetrics records controller activity to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ctl *Controller) {
		ctl.metrics = m
	}
}

// WithLogger sets the logger used by the dispatcher and lifecycle methods.
// The audio path never logs.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) {
		ctl.logger = l
	}
}

// WithPollInterval sets how often audio commits are picked up for
// forwarding, journaling and callbacks.
//
// Default: DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.pollInterval = d
		}
	}
}

// WithStartStopSync sets the initial start/stop sync flag.
func WithStartStopSync(enabled bool) Option {
	return func(ctl *Controller) {
		ctl.startStopSync.Store(enabled)
	}
}
