package session

import (
	"github.com/roach88/beatlink/internal/timeline"
	"github.com/roach88/beatlink/internal/transport"
)

// RealignKind tags how a beat/time mapping request should be merged.
type RealignKind uint8

const (
	// RealignNone means the state carries no pending request.
	RealignNone RealignKind = iota
	// RealignSoft is a negotiated request (RequestBeatAtTime).
	RealignSoft
	// RealignHard is an imposed mapping (ForceBeatAtTime).
	RealignHard
)

func (k RealignKind) String() string {
	switch k {
	case RealignNone:
		return "none"
	case RealignSoft:
		return "soft"
	case RealignHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Realignment is the last beat/time request applied to a State.
type Realignment struct {
	Kind    RealignKind
	Beat    float64
	Time    int64
	Quantum float64
}

// Pending reports whether a request is attached.
func (r Realignment) Pending() bool {
	return r.Kind != RealignNone
}

// State is a timeline plus transport snapshot.
//
// State contains no pointers: assigning it copies everything.
type State struct {
	Timeline    timeline.Timeline
	Transport   transport.Transport
	Realignment Realignment
}

// New returns a stopped state at tempo bpm with beat 0 at time 0.
func New(bpm float64) (State, error) {
	tl, err := timeline.New(bpm, 0, 0)
	if err != nil {
		return State{}, err
	}
	return State{Timeline: tl}, nil
}

// Valid reports whether the state's timeline has a usable tempo.
func (s State) Valid() bool {
	return s.Timeline.Valid()
}

// Tempo returns the tempo in beats per minute.
func (s State) Tempo() float64 {
	return s.Timeline.Tempo
}

// SetTempo sets the tempo to bpm, taking effect at atTime.
func (s *State) SetTempo(bpm float64, atTime int64) error {
	return s.Timeline.SetTempo(bpm, atTime)
}

// BeatAtTime returns the beat value at time for the given quantum.
//
// The magnitude of the beat is local to this participant, but its phase
// with respect to quantum is shared among peers.
func (s State) BeatAtTime(time int64, quantum float64) float64 {
	return s.Timeline.BeatAtTime(time, quantum)
}

// PhaseAtTime returns the session phase at time, in [0, quantum).
func (s State) PhaseAtTime(time int64, quantum float64) float64 {
	return s.Timeline.PhaseAtTime(time, quantum)
}

// TimeAtBeat returns the time at which beat occurs, assuming constant tempo.
func (s State) TimeAtBeat(beat, quantum float64) int64 {
	return s.Timeline.TimeAtBeat(beat, quantum)
}

// RequestBeatAtTime maps beat to time locally and tags the state with a soft
// realignment.
//
// In a session with other peers the engine may instead map beat to the next
// time after time with the same phase ("quantized launch").
func (s *State) RequestBeatAtTime(beat float64, time int64, quantum float64) {
	s.Timeline.RequestBeatAtTime(beat, time, quantum)
	s.Realignment = Realignment{Kind: RealignSoft, Beat: beat, Time: time, Quantum: timeline.NormalizeQuantum(quantum)}
}

// ForceBeatAtTime maps beat to time and tags the state with a hard
// realignment that is imposed on every peer. It is meant for bridging an
// external clock into a session, not for ordinary use.
func (s *State) ForceBeatAtTime(beat float64, time int64, quantum float64) {
	s.Timeline.ForceBeatAtTime(beat, time, quantum)
	s.Realignment = Realignment{Kind: RealignHard, Beat: beat, Time: time, Quantum: timeline.NormalizeQuantum(quantum)}
}

// SetIsPlaying starts or stops transport at time.
func (s *State) SetIsPlaying(isPlaying bool, time int64) {
	s.Transport.SetIsPlaying(isPlaying, time)
}

// IsPlaying reports whether transport is playing.
func (s State) IsPlaying() bool {
	return s.Transport.Playing()
}

// TimeForIsPlaying returns the time at which the last start/stop occurs.
func (s State) TimeForIsPlaying() int64 {
	return s.Transport.TimeForIsPlaying()
}

// RequestBeatAtStartPlayingTime requests that beat lands on the time
// transport starts playing. It is a no-op when transport is stopped.
func (s *State) RequestBeatAtStartPlayingTime(beat, quantum float64) {
	if !s.IsPlaying() {
		return
	}
	s.RequestBeatAtTime(beat, s.TimeForIsPlaying(), quantum)
}

// SetIsPlayingAndRequestBeatAtTime starts or stops transport at time and
// requests beat at the same time. Both changes land on this value together,
// so a commit of it never carries one without the other.
func (s *State) SetIsPlayingAndRequestBeatAtTime(isPlaying bool, time int64, beat, quantum float64) {
	s.SetIsPlaying(isPlaying, time)
	s.RequestBeatAtTime(beat, time, quantum)
}

// ClearRealignment drops any pending request tag.
func (s *State) ClearRealignment() {
	s.Realignment = Realignment{}
}
