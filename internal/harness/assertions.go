package harness

import (
	"fmt"
	"math"
)

// FloatTolerance is the allowed difference for float expectations.
const FloatTolerance = 1e-9

// checkExpect records a result error for every expectation ev misses.
func checkExpect(r *Result, ev TraceEvent, exp *Expect) {
	if exp == nil {
		return
	}

	fail := func(field string, want, got any) {
		r.AddError(fmt.Sprintf("step %d (%s): %s = %v, expected %v", ev.Step, ev.Op, field, got, want))
	}

	if exp.Tempo != nil && !floatEqual(*exp.Tempo, ev.Tempo) {
		fail("tempo", *exp.Tempo, ev.Tempo)
	}
	if exp.Beat != nil && !floatEqual(*exp.Beat, ev.Beat) {
		fail("beat", *exp.Beat, ev.Beat)
	}
	if exp.Phase != nil && !floatEqual(*exp.Phase, ev.Phase) {
		fail("phase", *exp.Phase, ev.Phase)
	}
	if exp.Playing != nil && *exp.Playing != ev.Playing {
		fail("playing", *exp.Playing, ev.Playing)
	}
	if exp.TransportTime != nil && *exp.TransportTime != ev.TransportTime {
		fail("transport_time", *exp.TransportTime, ev.TransportTime)
	}
	if exp.Time != nil && *exp.Time != ev.Time {
		fail("time", *exp.Time, ev.Time)
	}
	if exp.Ticks != nil && *exp.Ticks != ev.Ticks {
		fail("ticks", *exp.Ticks, ev.Ticks)
	}
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
