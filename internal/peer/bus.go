package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/beatlink/internal/queue"
	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/timeline"
)

type busEventType int

const (
	busJoin busEventType = iota + 1
	busLeave
	busPublish
)

type busEvent struct {
	Type     busEventType
	Node     *Node
	Listener Listener
	Proposal Proposal
	Ack      chan struct{}
}

// Bus is an in-process session shared by any number of nodes.
//
// All membership changes, merges and listener notifications happen in the
// single-writer Run loop, so listeners of one bus are never invoked
// concurrently.
//
// Merge policy (last writer wins):
//   - A proposal with a hard realignment, or one arriving while its sender
//     is alone, replaces the session timeline.
//   - A soft realignment while other peers are present keeps the session's
//     beat grid and adopts only the tempo, changed at the request time. If
//     the proposal also starts transport at the request time, the start is
//     moved to the next time whose session phase matches the requested beat.
//   - Any other proposal replaces the session timeline.
//   - Transport is merged only from proposals that share it.
//
// Thread-safety model:
//   - Join, Node.Start, Node.Publish, Node.Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Bus struct {
	queue  *queue.Queue[busEvent]
	logger *slog.Logger
	done   chan struct{}
	nextID atomic.Int64

	// Owned by the Run goroutine.
	members         map[*Node]Listener
	order           []*Node
	session         *session.State
	transportShared bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets the logger used by the bus loop.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = l
	}
}

// NewBus creates a bus. Call Run to start it.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		queue:   queue.New[busEvent](),
		logger:  slog.Default(),
		done:    make(chan struct{}),
		members: make(map[*Node]Listener),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Join returns a new node attached to the bus. The node takes part in the
// session once its Start is called.
func (b *Bus) Join(name string) *Node {
	id := b.nextID.Add(1)
	if name == "" {
		name = fmt.Sprintf("peer-%d", id)
	}
	return &Node{bus: b, name: name}
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called.
func (b *Bus) Run(ctx context.Context) error {
	defer close(b.done)
	b.logger.Debug("peer bus starting")

	for {
		ev, ok := b.queue.TryDequeue()
		if ok {
			b.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			b.logger.Debug("peer bus stopping: context cancelled")
			b.queue.Close()
			b.drain()
			return ctx.Err()

		case <-b.queue.Wait():
			if b.queue.Closed() && b.queue.Len() == 0 {
				b.logger.Debug("peer bus stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop shuts down the bus. Run returns once queued events are processed.
func (b *Bus) Stop() {
	b.queue.Close()
}

// Done is closed when Run has returned.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// drain releases waiters of events that will never be processed.
func (b *Bus) drain() {
	for {
		ev, ok := b.queue.TryDequeue()
		if !ok {
			return
		}
		if ev.Type == busLeave {
			b.leave(ev.Node)
		}
		if ev.Ack != nil {
			close(ev.Ack)
		}
	}
}

// process handles one event. Called only from Run.
func (b *Bus) process(ev busEvent) {
	switch ev.Type {
	case busJoin:
		b.join(ev.Node, ev.Listener)
	case busLeave:
		b.leave(ev.Node)
	case busPublish:
		b.publish(ev.Node, ev.Proposal)
	default:
		b.logger.Error("peer bus: unknown event", "type", ev.Type)
	}
	if ev.Ack != nil {
		close(ev.Ack)
	}
}

func (b *Bus) join(n *Node, l Listener) {
	if _, ok := b.members[n]; ok {
		return
	}
	b.members[n] = l
	b.order = append(b.order, n)
	b.logger.Debug("peer joined", "peer", n.name, "members", len(b.order))

	if b.session != nil {
		l.SessionChanged(Update{State: *b.session, TransportShared: b.transportShared})
	}
	b.broadcastPeers()
}

func (b *Bus) leave(n *Node) {
	if _, ok := b.members[n]; !ok {
		return
	}
	delete(b.members, n)
	for i, m := range b.order {
		if m == n {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.logger.Debug("peer left", "peer", n.name, "members", len(b.order))

	if len(b.order) == 0 {
		b.session = nil
		b.transportShared = false
		return
	}
	b.broadcastPeers()
}

func (b *Bus) publish(n *Node, p Proposal) {
	if _, ok := b.members[n]; !ok {
		return
	}
	if !p.State.Valid() {
		b.logger.Warn("peer bus: dropping proposal with invalid tempo", "peer", n.name, "tempo", p.State.Tempo())
		return
	}

	merged, shared := merge(b.session, b.transportShared, p, len(b.order)-1)
	b.session = &merged
	b.transportShared = shared

	proposed := p.State
	proposed.ClearRealignment()
	u := Update{State: merged, TransportShared: shared}
	for _, m := range b.order {
		if m == n && merged == proposed {
			continue
		}
		b.members[m].SessionChanged(u)
	}
}

func (b *Bus) broadcastPeers() {
	peers := len(b.order) - 1
	for _, m := range b.order {
		b.members[m].PeersChanged(peers)
	}
}

// merge folds a proposal into the current session. others is the number of
// members besides the proposer.
func merge(cur *session.State, curShared bool, p Proposal, others int) (session.State, bool) {
	next := p.State
	next.ClearRealignment()
	r := p.State.Realignment

	if cur != nil && others > 0 && r.Kind == session.RealignSoft {
		tl := cur.Timeline
		// Proposal tempo was validated by the caller.
		_ = tl.SetTempo(p.State.Tempo(), r.Time)
		next.Timeline = tl

		if p.ShareTransport && p.State.IsPlaying() && p.State.TimeForIsPlaying() == r.Time {
			beat := tl.BeatAtTime(r.Time, r.Quantum)
			launch := timeline.NextPhaseMatch(beat, r.Beat, r.Quantum)
			next.Transport.Time = tl.TimeAtBeat(launch, r.Quantum)
		}
	}

	if !p.ShareTransport {
		if cur != nil {
			next.Transport = cur.Transport
		}
		return next, curShared
	}
	return next, true
}

// Node is one participant of a Bus. It implements Engine.
type Node struct {
	bus     *Bus
	name    string
	started atomic.Bool
}

// Name returns the node's display name.
func (n *Node) Name() string {
	return n.name
}

// Start joins the session. It returns once the bus has registered the node.
func (n *Node) Start(l Listener) error {
	if !n.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	ack := make(chan struct{})
	if !n.bus.queue.Enqueue(busEvent{Type: busJoin, Node: n, Listener: l, Ack: ack}) {
		n.started.Store(false)
		return ErrBusClosed
	}
	select {
	case <-ack:
	case <-n.bus.done:
	}
	return nil
}

// Publish offers a proposal to the session. Ignored while stopped.
func (n *Node) Publish(p Proposal) {
	if !n.started.Load() {
		return
	}
	n.bus.queue.Enqueue(busEvent{Type: busPublish, Node: n, Proposal: p})
}

// Stop leaves the session. Once it returns the bus never calls this node's
// listener again.
func (n *Node) Stop() error {
	if !n.started.CompareAndSwap(true, false) {
		return nil
	}
	ack := make(chan struct{})
	if !n.bus.queue.Enqueue(busEvent{Type: busLeave, Node: n, Ack: ack}) {
		// Bus is shutting down; wait for the loop to exit so no listener
		// call is in flight.
		<-n.bus.done
		return nil
	}
	select {
	case <-ack:
	case <-n.bus.done:
	}
	return nil
}
