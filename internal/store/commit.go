package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/timeline"
	"github.com/roach88/beatlink/internal/transport"
)

// Source names the path that produced a commit.
type Source string

const (
	SourceInit  Source = "init"
	SourceApp   Source = "app"
	SourceAudio Source = "audio"
	SourcePeer  Source = "peer"
)

// Commit is one journaled session state.
type Commit struct {
	ID     string
	Seq    uint64
	Source Source

	Tempo         float64
	BeatOrigin    float64
	TimeOrigin    int64
	IsPlaying     bool
	TransportTime int64

	RealignKind    string
	RealignBeat    float64
	RealignTime    int64
	RealignQuantum float64
}

// NewCommit flattens a session state into a journal row. The ID is left
// empty; RecordCommit fills it in.
func NewCommit(seq uint64, source Source, st session.State) Commit {
	return Commit{
		Seq:            seq,
		Source:         source,
		Tempo:          st.Timeline.Tempo,
		BeatOrigin:     st.Timeline.BeatOrigin,
		TimeOrigin:     st.Timeline.TimeOrigin,
		IsPlaying:      st.Transport.IsPlaying,
		TransportTime:  st.Transport.Time,
		RealignKind:    st.Realignment.Kind.String(),
		RealignBeat:    st.Realignment.Beat,
		RealignTime:    st.Realignment.Time,
		RealignQuantum: st.Realignment.Quantum,
	}
}

// State rebuilds the session state the commit was made from.
func (c Commit) State() session.State {
	return session.State{
		Timeline: timeline.Timeline{
			Tempo:      c.Tempo,
			BeatOrigin: c.BeatOrigin,
			TimeOrigin: c.TimeOrigin,
		},
		Transport: transport.Transport{
			IsPlaying: c.IsPlaying,
			Time:      c.TransportTime,
		},
		Realignment: session.Realignment{
			Kind:    parseRealignKind(c.RealignKind),
			Beat:    c.RealignBeat,
			Time:    c.RealignTime,
			Quantum: c.RealignQuantum,
		},
	}
}

func parseRealignKind(s string) session.RealignKind {
	switch s {
	case session.RealignSoft.String():
		return session.RealignSoft
	case session.RealignHard.String():
		return session.RealignHard
	default:
		return session.RealignNone
	}
}

// IDGenerator generates commit IDs.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 commit IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs in order.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
// Panics if all IDs have been consumed.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
