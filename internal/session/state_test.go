package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beatlink/internal/timeline"
)

const tol = 1e-9

func TestNew(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)

	assert.True(t, s.Valid())
	assert.Equal(t, 120.0, s.Tempo())
	assert.False(t, s.IsPlaying())
	assert.False(t, s.Realignment.Pending())
	assert.Equal(t, 0.0, s.BeatAtTime(0, 4))
}

func TestNew_InvalidTempo(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, timeline.ErrInvalidTempo)
}

func TestSetTempo_DelegatesToTimeline(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)

	require.NoError(t, s.SetTempo(60, 500_000))
	assert.InDelta(t, 1.0, s.BeatAtTime(500_000, 4), tol)
	assert.InDelta(t, 2.0, s.BeatAtTime(1_500_000, 4), tol)

	assert.ErrorIs(t, s.SetTempo(-1, 0), timeline.ErrInvalidTempo)
	assert.Equal(t, 60.0, s.Tempo())
}

func TestRequestBeatAtTime_TagsSoft(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)

	s.RequestBeatAtTime(2, 1_000_000, 4)

	assert.InDelta(t, 2.0, s.PhaseAtTime(1_000_000, 4), tol)
	assert.Equal(t, Realignment{Kind: RealignSoft, Beat: 2, Time: 1_000_000, Quantum: 4}, s.Realignment)
	assert.Equal(t, 120.0, s.Tempo())
}

func TestForceBeatAtTime_TagsHard(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)

	s.ForceBeatAtTime(0, 3_000_000, 0)

	assert.InDelta(t, 0.0, s.BeatAtTime(3_000_000, 4), tol)
	assert.Equal(t, RealignHard, s.Realignment.Kind)
	assert.Equal(t, 1.0, s.Realignment.Quantum, "quantum normalized")
}

func TestTransportAccessors(t *testing.T) {
	s, err := New(100)
	require.NoError(t, err)

	s.SetIsPlaying(true, 42)
	assert.True(t, s.IsPlaying())
	assert.Equal(t, int64(42), s.TimeForIsPlaying())
}

func TestRequestBeatAtStartPlayingTime(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)

	s.SetIsPlaying(true, 2_250_000)
	s.RequestBeatAtStartPlayingTime(0, 4)

	assert.InDelta(t, 0.0, s.PhaseAtTime(2_250_000, 4), tol)
	assert.Equal(t, RealignSoft, s.Realignment.Kind)
	assert.Equal(t, int64(2_250_000), s.Realignment.Time)
}

func TestRequestBeatAtStartPlayingTime_NoopWhenStopped(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)
	before := s

	s.RequestBeatAtStartPlayingTime(3, 4)

	assert.Equal(t, before, s)
}

func TestSetIsPlayingAndRequestBeatAtTime(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)

	s.SetIsPlayingAndRequestBeatAtTime(true, 4_000_000, 1, 4)

	assert.True(t, s.IsPlaying())
	assert.Equal(t, int64(4_000_000), s.TimeForIsPlaying())
	assert.InDelta(t, 1.0, s.PhaseAtTime(4_000_000, 4), tol)
	assert.Equal(t, RealignSoft, s.Realignment.Kind)
}

func TestStateIsValueType(t *testing.T) {
	a, err := New(120)
	require.NoError(t, err)

	b := a
	require.NoError(t, b.SetTempo(80, 0))
	b.SetIsPlayingAndRequestBeatAtTime(true, 10, 1, 4)

	assert.Equal(t, 120.0, a.Tempo())
	assert.False(t, a.IsPlaying())
	assert.False(t, a.Realignment.Pending())
}

func TestClearRealignment(t *testing.T) {
	s, err := New(120)
	require.NoError(t, err)
	s.ForceBeatAtTime(1, 1, 4)

	s.ClearRealignment()
	assert.False(t, s.Realignment.Pending())
}

func TestRealignKindString(t *testing.T) {
	assert.Equal(t, "none", RealignNone.String())
	assert.Equal(t, "soft", RealignSoft.String())
	assert.Equal(t, "hard", RealignHard.String())
	assert.Equal(t, "unknown", RealignKind(9).String())
}
