package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const beatTolerance = 1e-9

func mustNew(t *testing.T, bpm float64) Timeline {
	t.Helper()
	tl, err := New(bpm, 0, 0)
	require.NoError(t, err)
	return tl
}

func TestNew_RejectsInvalidTempo(t *testing.T) {
	for _, bpm := range []float64{0, -1, -120, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := New(bpm, 0, 0)
		require.Error(t, err, "bpm %v", bpm)
		assert.ErrorIs(t, err, ErrInvalidTempo)
	}
}

func TestZeroValueIsInvalid(t *testing.T) {
	assert.False(t, Timeline{}.Valid())
	assert.True(t, mustNew(t, 120).Valid())
}

func TestBeatAtTime_120BPM(t *testing.T) {
	tl := mustNew(t, 120)

	assert.Equal(t, 0.0, tl.BeatAtTime(0, 4))
	assert.InDelta(t, 1.0, tl.BeatAtTime(500_000, 4), beatTolerance)
	assert.InDelta(t, -1.0, tl.BeatAtTime(-500_000, 4), beatTolerance)
}

func TestBeatAtTime_QuantumDoesNotChangeBeat(t *testing.T) {
	tl := mustNew(t, 133)
	want := tl.BeatAtTime(7_777_777, 1)
	for _, q := range []float64{1, 3, 4, 7.5, 0, -2} {
		assert.Equal(t, want, tl.BeatAtTime(7_777_777, q))
	}
}

func TestSetTempo_Scenario(t *testing.T) {
	tl := mustNew(t, 120)
	require.InDelta(t, 1.0, tl.BeatAtTime(500_000, 4), beatTolerance)

	require.NoError(t, tl.SetTempo(60, 500_000))

	assert.InDelta(t, 1.0, tl.BeatAtTime(500_000, 4), beatTolerance)
	assert.InDelta(t, 2.0, tl.BeatAtTime(1_500_000, 4), beatTolerance)
	assert.Equal(t, 60.0, tl.Tempo)
}

func TestSetTempo_Continuity(t *testing.T) {
	tempos := []float64{20, 60, 90.5, 120, 174, 999}
	times := []int64{-3_000_000, 0, 1, 499_999, 123_456_789, 9_876_543_210}

	for _, from := range tempos {
		for _, to := range tempos {
			for _, at := range times {
				tl, err := New(from, 3.25, 1_000)
				require.NoError(t, err)

				before := tl.BeatAtTime(at, 4)
				require.NoError(t, tl.SetTempo(to, at))
				after := tl.BeatAtTime(at, 4)

				assert.InDelta(t, before, after, beatTolerance, "from=%v to=%v at=%d", from, to, at)
			}
		}
	}
}

func TestSetTempo_RejectsInvalidAndLeavesTimeline(t *testing.T) {
	tl := mustNew(t, 120)
	orig := tl

	for _, bpm := range []float64{0, -60, math.NaN()} {
		err := tl.SetTempo(bpm, 1_000_000)
		assert.ErrorIs(t, err, ErrInvalidTempo)
		assert.Equal(t, orig, tl)
	}
}

func TestPhaseAtTime_Range(t *testing.T) {
	tl := mustNew(t, 127.3)
	quanta := []float64{0.5, 1, 3, 4, 7, 16}

	for _, q := range quanta {
		for ts := int64(-10_000_000); ts <= 10_000_000; ts += 333_331 {
			p := tl.PhaseAtTime(ts, q)
			assert.GreaterOrEqual(t, p, 0.0, "t=%d q=%v", ts, q)
			assert.Less(t, p, q, "t=%d q=%v", ts, q)
		}
	}
}

func TestPhaseAtTime_BeatFiveQuantumFour(t *testing.T) {
	tl, err := New(60, 5, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tl.PhaseAtTime(0, 4), beatTolerance)
}

func TestPhaseAtTime_NegativeBeat(t *testing.T) {
	tl, err := New(60, -1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, tl.PhaseAtTime(0, 4), beatTolerance)
}

func TestPhaseAtTime_NonPositiveQuantumTreatedAsOne(t *testing.T) {
	tl, err := New(60, 5.25, 0)
	require.NoError(t, err)

	assert.InDelta(t, 0.25, tl.PhaseAtTime(0, 0), beatTolerance)
	assert.InDelta(t, 0.25, tl.PhaseAtTime(0, -4), beatTolerance)
	assert.InDelta(t, 0.25, tl.PhaseAtTime(0, math.NaN()), beatTolerance)
}

func TestTimeAtBeat_InverseLaw(t *testing.T) {
	for _, bpm := range []float64{33.3, 60, 120, 171.9} {
		tl, err := New(bpm, 2.5, 42_000)
		require.NoError(t, err)

		for _, b := range []float64{-100, -1.5, 0, 0.25, 1, 7.75, 1000, 123456.789} {
			ts := tl.TimeAtBeat(b, 4)
			// rounding to whole microseconds bounds the error by half a
			// microsecond worth of beats
			tol := 0.5 * bpm / microsPerMinute
			assert.InDelta(t, b, tl.BeatAtTime(ts, 4), tol+beatTolerance, "bpm=%v b=%v", bpm, b)
		}
	}
}

func TestTimeAtBeat_Saturates(t *testing.T) {
	tl := mustNew(t, 120)
	assert.Equal(t, int64(math.MaxInt64), tl.TimeAtBeat(1e300, 4))
	assert.Equal(t, int64(math.MinInt64), tl.TimeAtBeat(-1e300, 4))
	assert.Equal(t, int64(math.MaxInt64), tl.TimeAtBeat(math.MaxFloat64, 4))

	// In range for the offset, out of range once the origin is added.
	near, err := New(120, 0, math.MaxInt64-10)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), near.TimeAtBeat(1, 4))
	assert.Equal(t, int64(math.MaxInt64-10), near.TimeAtBeat(0, 4))

	low, err := New(120, 0, math.MinInt64+10)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), low.TimeAtBeat(-1, 4))
}

func TestTimeAtBeat_120BPM(t *testing.T) {
	tl := mustNew(t, 120)
	assert.Equal(t, int64(500_000), tl.TimeAtBeat(1, 4))
	assert.Equal(t, int64(2_000_000), tl.TimeAtBeat(4, 4))
}

func TestRequestBeatAtTime_Scenario(t *testing.T) {
	tl := mustNew(t, 120)

	tl.RequestBeatAtTime(2.0, 1_000_000, 4)

	assert.InDelta(t, 2.0, tl.PhaseAtTime(1_000_000, 4), beatTolerance)
	assert.Equal(t, 120.0, tl.Tempo)
}

func TestRequestBeatAtTime_Alignment(t *testing.T) {
	cases := []struct {
		beat    float64
		time    int64
		quantum float64
	}{
		{0, 0, 4},
		{2, 1_000_000, 4},
		{5.5, 3_333_333, 4},
		{-3, 77, 3},
		{17.25, -2_000_000, 8},
		{1, 500, 0}, // quantum treated as 1
	}

	for _, tc := range cases {
		tl := mustNew(t, 97)
		tl.RequestBeatAtTime(tc.beat, tc.time, tc.quantum)

		q := NormalizeQuantum(tc.quantum)
		assert.InDelta(t, Phase(tc.beat, q), tl.PhaseAtTime(tc.time, tc.quantum), beatTolerance, "%+v", tc)
		assert.Equal(t, 97.0, tl.Tempo)
	}
}

func TestForceBeatAtTime_SameLocalEffect(t *testing.T) {
	a := mustNew(t, 140)
	b := a

	a.RequestBeatAtTime(6.5, 2_500_000, 4)
	b.ForceBeatAtTime(6.5, 2_500_000, 4)

	assert.Equal(t, a, b)
	assert.InDelta(t, 6.5, b.BeatAtTime(2_500_000, 4), beatTolerance)
}

func TestTimelineIsValueType(t *testing.T) {
	a := mustNew(t, 120)
	b := a
	require.NoError(t, b.SetTempo(90, 1_000_000))
	b.RequestBeatAtTime(3, 2_000_000, 4)

	assert.Equal(t, 120.0, a.Tempo)
	assert.Equal(t, 0.0, a.BeatOrigin)
}
