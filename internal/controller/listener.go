package controller

import (
	"github.com/roach88/beatlink/internal/peer"
	"github.com/roach88/beatlink/internal/store"
)

// listener receives engine notifications on the engine's goroutine.
type listener struct {
	c *Controller
}

func (l listener) PeersChanged(n int) {
	l.c.numPeers.Store(int64(n))
	l.c.events.Enqueue(event{kind: eventChanged})
}

// SessionChanged adopts the negotiated timeline. Transport is adopted only
// when the sender shared it and start/stop sync is enabled here; otherwise
// the local transport is kept.
func (l listener) SessionChanged(u peer.Update) {
	c := l.c
	if !u.State.Valid() {
		return
	}
	c.sessionSeen.Store(true)

	c.mu.Lock()
	next := u.State
	next.ClearRealignment()
	if !u.TransportShared || !c.startStopSync.Load() {
		next.Transport = c.current().state.Transport
	}
	c.storeLocked(next, store.SourcePeer)
	c.mu.Unlock()

	c.metrics.PeerUpdate()
	c.events.Enqueue(event{kind: eventChanged})
}
