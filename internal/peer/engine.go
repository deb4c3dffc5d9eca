// Package peer defines the contract between a controller and the peer
// synchronization engine that shares a session with other participants.
//
// The engine discovers peers, converges tempo and phase across them, and
// reports the converged state back through a Listener. How it does that
// (transport, clock negotiation, merge policy) is the engine's business.
//
// Two engines ship with this package:
//
//   - Solo never sees other peers. It is the default engine of a controller
//     and makes Enable a no-op from the session's point of view.
//   - Bus connects any number of controllers in the same process. It is the
//     reference engine used by tests and by `linkhut run --peers`.
package peer

import (
	"errors"

	"github.com/roach88/beatlink/internal/session"
)

// ErrStarted is returned by Start when the engine is already running.
var ErrStarted = errors.New("peer engine already started")

// ErrBusClosed is returned when joining a bus that has stopped.
var ErrBusClosed = errors.New("peer bus closed")

// Proposal is a locally committed state offered to the session.
type Proposal struct {
	State session.State

	// ShareTransport is false when start/stop sync is disabled: the engine
	// must not propagate State.Transport to other peers.
	ShareTransport bool
}

// Update is the session state as negotiated by the engine.
type Update struct {
	State session.State

	// TransportShared is true when State.Transport came from a peer that
	// shares start/stop state. Otherwise the receiver keeps its own
	// transport.
	TransportShared bool
}

// Listener receives session changes from an engine.
//
// Methods are invoked on an engine-owned goroutine. They must not block and
// must not call back into the engine.
type Listener interface {
	PeersChanged(n int)
	SessionChanged(u Update)
}

// Engine is the peer synchronization engine consumed by a controller.
type Engine interface {
	// Start begins participation. Listener calls may begin before Start
	// returns.
	Start(l Listener) error

	// Publish offers a locally committed state. It never blocks. Calls
	// while the engine is stopped are ignored.
	Publish(p Proposal)

	// Stop ends participation. After Stop returns no Listener method is
	// invoked. Stop on a stopped engine is a no-op.
	Stop() error
}
