package controller

import (
	"context"
	"time"

	"github.com/roach88/beatlink/internal/metrics"
	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/store"
)

type eventKind int

const (
	eventChanged eventKind = iota + 1
	eventFlush
)

type event struct {
	kind  eventKind
	local *snapshot // app-path commit carried to the dispatcher
	ack   chan struct{}
}

// notified is the last state reported to callbacks.
type notified struct {
	peers   int
	tempo   float64
	playing bool
}

// run is the dispatcher's single-writer loop.
//
// ERROR HANDLING: journal failures are logged and counted, and processing
// continues.
func (c *Controller) run(ctx context.Context) {
	defer close(c.done)
	c.logger.Debug("controller dispatcher starting", "poll_interval", c.pollInterval)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		ev, ok := c.events.TryDequeue()
		if ok {
			c.sync(ctx, ev.local)
			if ev.ack != nil {
				close(ev.ack)
			}
			continue
		}

		select {
		case <-ticker.C:
			c.sync(ctx, nil)

		case <-c.events.Wait():
			if c.events.Closed() && c.events.Len() == 0 {
				c.sync(ctx, nil)
				c.logger.Debug("controller dispatcher stopping")
				return
			}
		}
	}
}

// flush returns once every event queued before the call has been processed
// and the dispatcher has looked at the canonical state.
func (c *Controller) flush() {
	ack := make(chan struct{})
	if !c.events.Enqueue(event{kind: eventFlush, ack: ack}) {
		<-c.done
		return
	}
	select {
	case <-ack:
	case <-c.done:
	}
}

// sync hands local commits to the engine and the journal, records a new
// peer-driven canonical state, and fires callbacks.
//
// Local commits are handled even when a peer update has since replaced
// them as canonical: the engine still has to merge them, and its reply
// supersedes them locally.
func (c *Controller) sync(ctx context.Context, app *snapshot) {
	var pending [2]snapshot
	n := 0
	if app != nil {
		pending[n] = *app
		n++
	}
	if seq, st := c.cell.read(); seq > c.lastAudioSeq {
		c.lastAudioSeq = seq
		pending[n] = snapshot{seq: seq, state: st, source: store.SourceAudio}
		n++
	}
	if n == 2 && pending[1].seq < pending[0].seq {
		pending[0], pending[1] = pending[1], pending[0]
	}
	for _, local := range pending[:n] {
		c.commitLocal(ctx, local)
	}

	snap := c.current()
	if snap.seq > c.lastSeq {
		c.lastSeq = snap.seq
		if snap.source == store.SourcePeer {
			c.record(ctx, snap)
		}
	}
	c.notify(snap.state)
}

// commitLocal journals a local commit and proposes it while enabled. A
// commit older than one already proposed is only journaled.
func (c *Controller) commitLocal(ctx context.Context, snap snapshot) {
	if snap.seq > c.lastPublished {
		c.lastPublished = snap.seq
		if c.enabled.Load() {
			c.engine.Publish(c.proposal(snap.state))
		}
	}
	c.record(ctx, snap)
}

func (c *Controller) record(ctx context.Context, snap snapshot) {
	if c.journal == nil {
		return
	}
	if _, err := c.journal.RecordCommit(ctx, store.NewCommit(snap.seq, snap.source, snap.state)); err != nil {
		c.metrics.JournalError()
		c.logger.Error("journal write failed", "seq", snap.seq, "source", snap.source, "error", err)
	}
}

// notify fires the callbacks whose value differs from what was last
// reported.
func (c *Controller) notify(st session.State) {
	if peers := c.NumPeers(); peers != c.notified.peers {
		c.notified.peers = peers
		c.metrics.SetPeers(peers)
		c.cbMu.Lock()
		fn := c.peersCB
		c.cbMu.Unlock()
		if fn != nil && !c.closing.Load() {
			fn(peers)
			c.metrics.Callback(metrics.CallbackPeers)
		}
	}

	if tempo := st.Tempo(); tempo != c.notified.tempo {
		c.notified.tempo = tempo
		c.metrics.SetTempo(tempo)
		c.cbMu.Lock()
		fn := c.tempoCB
		c.cbMu.Unlock()
		if fn != nil && !c.closing.Load() {
			fn(tempo)
			c.metrics.Callback(metrics.CallbackTempo)
		}
	}

	if playing := st.IsPlaying(); playing != c.notified.playing {
		c.notified.playing = playing
		c.cbMu.Lock()
		fn := c.transportCB
		c.cbMu.Unlock()
		if fn != nil && !c.closing.Load() {
			fn(playing)
			c.metrics.Callback(metrics.CallbackTransport)
		}
	}
}
