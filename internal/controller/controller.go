// Package controller owns the canonical session state of one participant and
// mediates all access to it.
//
// Two access paths exist:
//
//   - The app path (CaptureAppSessionState, CommitAppSessionState,
//     WithAppSessionState) may be used from any goroutine. Commits are
//     serialized by a mutex and publish an immutable snapshot through an
//     atomic pointer.
//   - The audio path (CaptureAudioSessionState, CommitAudioSessionState)
//     must only be used from one goroutine, the audio callback. It never
//     blocks, allocates or takes a lock: commits go to a seqlock cell of
//     atomic words that only the audio goroutine writes.
//
// Every commit takes a number from one monotonic sequence. The canonical state
// is whichever of the pointer snapshot and the audio cell carries the higher
// number, so a commit that has returned is visible to any later capture on
// any goroutine.
//
// A dispatcher goroutine runs from New until Close. It picks up changes
// (polling the audio cell every poll interval), forwards local changes to
// the peer engine while enabled, writes the journal, and fires the peer
// count, tempo and transport callbacks. Every local commit reaches the
// engine and the journal, even one that a peer update replaced before the
// dispatcher got to it; the engine's answer then settles the session. Callbacks therefore run on the
// dispatcher goroutine, never on the caller's or the audio goroutine.
// Callbacks must not call Enable or Close.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/beatlink/internal/clock"
	"github.com/roach88/beatlink/internal/metrics"
	"github.com/roach88/beatlink/internal/peer"
	"github.com/roach88/beatlink/internal/queue"
	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/store"
)

// snapshot is an immutable canonical state published by the app path or by
// the peer engine.
type snapshot struct {
	seq    uint64
	state  session.State
	source store.Source
}

// Controller is the session controller of one participant.
//
// Thread-safety model:
//   - App path, Enable, callbacks setters, queries: safe from any goroutine
//   - Audio path: exactly one goroutine
type Controller struct {
	clock        *clock.Clock
	engine       peer.Engine
	journal      Journal
	restore      bool
	metrics      *metrics.Metrics
	logger       *slog.Logger
	pollInterval time.Duration

	seqs  *clock.Sequence
	mu    sync.Mutex // serializes snapshot writers
	state atomic.Pointer[snapshot]
	cell  audioCell

	lifeMu        sync.Mutex // Enable and Close
	closed        bool       // guarded by lifeMu
	closing       atomic.Bool
	enabled       atomic.Bool
	startStopSync atomic.Bool
	numPeers      atomic.Int64
	sessionSeen   atomic.Bool

	cbMu        sync.Mutex
	peersCB     func(int)
	tempoCB     func(float64)
	transportCB func(bool)

	events *queue.Queue[event]
	cancel context.CancelFunc
	done   chan struct{}

	// Owned by the dispatcher goroutine.
	lastSeq       uint64 // newest canonical snapshot seen
	lastAudioSeq  uint64 // newest audio cell commit handled
	lastPublished uint64 // newest local commit proposed
	notified      notified
}

// New creates a controller at tempo bpm, beat 0 at time 0, transport
// stopped, peer sync disabled. It starts the dispatcher goroutine; call
// Close to stop it.
func New(bpm float64, opts ...Option) (*Controller, error) {
	st, err := session.New(bpm)
	if err != nil {
		return nil, fmt.Errorf("new controller: %w", err)
	}

	c := &Controller{
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		events:       queue.New[event](),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clock.NewHost()
	}
	if c.engine == nil {
		c.engine = peer.NewSolo()
	}

	var start uint64
	if c.restore && c.journal != nil {
		latest, ok, err := c.journal.LatestCommit(context.Background())
		if err != nil {
			return nil, &Error{Code: CodeJournal, Op: "restore", Err: err}
		}
		if ok && latest.State().Valid() {
			st = latest.State()
			st.ClearRealignment()
			start = latest.Seq
			c.logger.Info("controller restored from journal", "seq", latest.Seq, "tempo", st.Tempo())
		}
	}

	c.seqs = clock.NewSequenceAt(start)
	initial := &snapshot{seq: c.seqs.Next(), state: st, source: store.SourceInit}
	c.state.Store(initial)
	c.lastSeq = initial.seq
	c.lastPublished = initial.seq
	c.record(context.Background(), *initial)
	c.notified = notified{tempo: st.Tempo(), playing: st.IsPlaying()}
	c.metrics.SetTempo(st.Tempo())

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)

	return c, nil
}

// Close disables peer sync and stops the dispatcher. No callback starts
// once Close has begun, and none is running when it returns. Close is
// idempotent.
func (c *Controller) Close() error {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closing.Store(true)
	err := c.disableLocked()
	c.lifeMu.Unlock()

	c.events.Close()
	<-c.done
	c.cancel()
	return err
}

// Enable starts or stops participation in the peer session.
//
// Disabling stops the engine and drains pending work, so no peer-driven
// callback fires after Enable(false) returns.
func (c *Controller) Enable(enabled bool) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.closed {
		return closedError("enable")
	}
	if enabled {
		return c.enableLocked()
	}
	return c.disableLocked()
}

func (c *Controller) enableLocked() error {
	if c.enabled.Load() {
		return nil
	}

	c.sessionSeen.Store(false)
	c.enabled.Store(true)
	if err := c.engine.Start(listener{c}); err != nil {
		c.enabled.Store(false)
		return &Error{Code: CodeEngine, Op: "enable", Err: err}
	}

	// Nobody has told us about an existing session: offer ours.
	if !c.sessionSeen.Load() {
		st := c.current().state
		st.ClearRealignment()
		c.engine.Publish(c.proposal(st))
	}

	c.logger.Info("peer sync enabled")
	c.events.Enqueue(event{kind: eventChanged})
	return nil
}

func (c *Controller) disableLocked() error {
	if !c.enabled.Load() {
		return nil
	}

	c.enabled.Store(false)
	err := c.engine.Stop()
	c.numPeers.Store(0)
	c.flush()

	c.logger.Info("peer sync disabled")
	if err != nil {
		return &Error{Code: CodeEngine, Op: "disable", Err: err}
	}
	return nil
}

// IsEnabled reports whether peer sync is enabled.
func (c *Controller) IsEnabled() bool {
	return c.enabled.Load()
}

// EnableStartStopSync sets whether transport state is shared with peers.
func (c *Controller) EnableStartStopSync(enabled bool) {
	c.startStopSync.Store(enabled)
}

// IsStartStopSyncEnabled reports whether transport state is shared.
func (c *Controller) IsStartStopSyncEnabled() bool {
	return c.startStopSync.Load()
}

// NumPeers returns the number of other participants in the session.
func (c *Controller) NumPeers() int {
	return int(c.numPeers.Load())
}

// SetPeerCountCallback registers fn to be called when the peer count
// changes. A nil fn removes the callback.
func (c *Controller) SetPeerCountCallback(fn func(int)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.peersCB = fn
}

// SetTempoCallback registers fn to be called when the session tempo
// changes, from a peer or a local commit.
func (c *Controller) SetTempoCallback(fn func(float64)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.tempoCB = fn
}

// SetTransportCallback registers fn to be called when transport starts or
// stops.
func (c *Controller) SetTransportCallback(fn func(bool)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.transportCB = fn
}

// Clock returns the clock session times are expressed in.
func (c *Controller) Clock() *clock.Clock {
	return c.clock
}

// CaptureAppSessionState returns a copy of the canonical state.
// Safe from any goroutine. Must not be used on the audio goroutine.
func (c *Controller) CaptureAppSessionState() session.State {
	st := c.current().state
	st.ClearRealignment()
	c.metrics.Capture(metrics.ModeApp)
	return st
}

// CommitAppSessionState makes st the canonical state. States with an
// invalid tempo and commits after Close are ignored.
func (c *Controller) CommitAppSessionState(st session.State) {
	if c.closing.Load() || !st.Valid() {
		return
	}

	c.mu.Lock()
	snap := c.storeLocked(st, store.SourceApp)
	c.mu.Unlock()

	c.metrics.Commit(metrics.ModeApp)
	c.events.Enqueue(event{kind: eventChanged, local: snap})
}

// WithAppSessionState captures the canonical state, passes it to fn, and
// commits the result. No other app-path commit or peer update lands in
// between. fn must not call the controller's app path.
func (c *Controller) WithAppSessionState(fn func(st *session.State)) {
	if c.closing.Load() {
		return
	}

	c.mu.Lock()
	st := c.current().state
	st.ClearRealignment()
	fn(&st)
	var snap *snapshot
	if st.Valid() {
		snap = c.storeLocked(st, store.SourceApp)
	}
	c.mu.Unlock()

	c.metrics.Capture(metrics.ModeApp)
	if snap != nil {
		c.metrics.Commit(metrics.ModeApp)
		c.events.Enqueue(event{kind: eventChanged, local: snap})
	}
}

// CaptureAudioSessionState returns a copy of the canonical state.
// Audio goroutine only. Never blocks or allocates.
func (c *Controller) CaptureAudioSessionState() session.State {
	snap := c.state.Load()
	seq, st := c.cell.readOwned()
	if seq <= snap.seq {
		st = snap.state
	}
	st.ClearRealignment()
	c.metrics.Capture(metrics.ModeAudio)
	return st
}

// CommitAudioSessionState makes st the canonical state.
// Audio goroutine only. Never blocks or allocates. The change reaches peers,
// the journal and callbacks on the dispatcher's next poll.
func (c *Controller) CommitAudioSessionState(st session.State) {
	if c.closing.Load() || !st.Valid() {
		return
	}
	c.cell.write(c.seqs.Next(), st)
	c.metrics.Commit(metrics.ModeAudio)
}

// current returns the canonical snapshot. Safe from any goroutine but the
// audio one, which uses readOwned instead.
func (c *Controller) current() snapshot {
	snap := c.state.Load()
	seq, st := c.cell.read()
	if seq > snap.seq {
		return snapshot{seq: seq, state: st, source: store.SourceAudio}
	}
	return *snap
}

// storeLocked publishes st as a new snapshot and returns it. Caller holds mu.
func (c *Controller) storeLocked(st session.State, source store.Source) *snapshot {
	snap := &snapshot{seq: c.seqs.Next(), state: st, source: source}
	c.state.Store(snap)
	return snap
}

func (c *Controller) proposal(st session.State) peer.Proposal {
	return peer.Proposal{State: st, ShareTransport: c.startStopSync.Load()}
}
