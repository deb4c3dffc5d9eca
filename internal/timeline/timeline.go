// Package timeline implements the tempo-driven mapping between session time
// and beats.
//
// A Timeline is a plain value: copying it yields an independent timeline,
// and none of its methods block or allocate, so it is safe to use on the
// audio path. It is not safe for concurrent mutation.
//
// # Quantum policy
//
// Every operation taking a quantum treats a quantum <= 0, NaN or infinite
// as 1. Tempo is never clamped: a non-positive or non-finite tempo is
// rejected with ErrInvalidTempo.
//
// Times outside the int64 range saturate: TimeAtBeat returns math.MaxInt64
// or math.MinInt64 for beats too far from the origin to be represented.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTempo is returned for tempos that are not strictly positive
// and finite.
var ErrInvalidTempo = errors.New("tempo must be positive and finite")

const microsPerMinute = 60_000_000

// Timeline maps time to beats:
//
//	beat(t) = BeatOrigin + (t - TimeOrigin) * Tempo / 60e6
//
// The zero value is not a valid timeline; use New.
type Timeline struct {
	Tempo      float64 // beats per minute
	BeatOrigin float64 // beat at TimeOrigin
	TimeOrigin int64   // microseconds
}

// New returns a timeline at tempo bpm where beatOrigin falls on timeOrigin.
func New(bpm, beatOrigin float64, timeOrigin int64) (Timeline, error) {
	if err := ValidateTempo(bpm); err != nil {
		return Timeline{}, err
	}
	return Timeline{Tempo: bpm, BeatOrigin: beatOrigin, TimeOrigin: timeOrigin}, nil
}

// ValidateTempo reports whether bpm is usable as a tempo.
func ValidateTempo(bpm float64) error {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	return nil
}

// Valid reports whether the timeline has a usable tempo.
func (tl Timeline) Valid() bool {
	return ValidateTempo(tl.Tempo) == nil
}

// SetTempo changes the tempo from atTime onward. The beat at atTime is the
// same before and after the call.
func (tl *Timeline) SetTempo(bpm float64, atTime int64) error {
	if err := ValidateTempo(bpm); err != nil {
		return err
	}
	beat := tl.beatAt(atTime)
	tl.Tempo = bpm
	tl.BeatOrigin = beat
	tl.TimeOrigin = atTime
	return nil
}

// BeatAtTime returns the beat at time. The quantum does not change the
// beat value; it is accepted for symmetry with PhaseAtTime.
func (tl Timeline) BeatAtTime(time int64, quantum float64) float64 {
	return tl.beatAt(time)
}

// PhaseAtTime returns BeatAtTime modulo quantum, in [0, quantum).
// Unlike math.Mod it is correct for negative beats.
func (tl Timeline) PhaseAtTime(time int64, quantum float64) float64 {
	return Phase(tl.beatAt(time), quantum)
}

// TimeAtBeat returns the time at which beat occurs, rounded to the nearest
// microsecond and saturated to the int64 range. It inverts BeatAtTime for
// the current tempo segment.
func (tl Timeline) TimeAtBeat(beat float64, quantum float64) int64 {
	offset := math.Round((beat - tl.BeatOrigin) * microsPerMinute / tl.Tempo)
	switch {
	case offset >= math.MaxInt64:
		return math.MaxInt64
	case offset <= math.MinInt64:
		return math.MinInt64
	}
	return addSaturated(tl.TimeOrigin, int64(offset))
}

func addSaturated(a, b int64) int64 {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt64
	case b < 0 && sum > a:
		return math.MinInt64
	}
	return sum
}

// RequestBeatAtTime re-maps the timeline so that BeatAtTime(time) == beat,
// which puts PhaseAtTime(time, quantum) at beat mod quantum. Tempo is not
// changed.
//
// The local effect is immediate. When the state is committed to a session
// with other peers, the peer engine may instead defer the alignment to the
// next matching phase; that policy belongs to the engine.
func (tl *Timeline) RequestBeatAtTime(beat float64, time int64, quantum float64) {
	tl.rebase(beat, time)
}

// ForceBeatAtTime has the same local effect as RequestBeatAtTime. It differs
// only in how a peer engine treats the commit: a forced mapping is imposed
// on the session rather than negotiated.
func (tl *Timeline) ForceBeatAtTime(beat float64, time int64, quantum float64) {
	tl.rebase(beat, time)
}

func (tl *Timeline) rebase(beat float64, time int64) {
	tl.BeatOrigin = beat
	tl.TimeOrigin = time
}

func (tl Timeline) beatAt(time int64) float64 {
	return tl.BeatOrigin + float64(time-tl.TimeOrigin)*tl.Tempo/microsPerMinute
}
