package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/roach88/beatlink/internal/clock"
	"github.com/roach88/beatlink/internal/controller"
	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/store"
	"github.com/roach88/beatlink/internal/testutil"
)

// Harness runs one scenario against a controller with a manual clock and an
// in-memory journal.
type Harness struct {
	scenario *Scenario
	ticks    *testutil.ManualTicks
	clock    *clock.Clock
	journal  *store.Store
	ctl      *controller.Controller
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create the clock, journal and controller
//  2. Execute each step through the scenario's capture/commit path
//  3. Check each step's expectations
//  4. Close the controller and check the journal caught the final state
//
// Expectation failures are reported in the result; the returned error is
// for setup and journal failures only.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with controller logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	h, err := newHarness(scenario, logger)
	if err != nil {
		return nil, err
	}
	defer h.journal.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		ev := h.execute(i, step)
		result.Trace = append(result.Trace, ev)
		checkExpect(result, ev, step.Expect)
	}

	final := h.ctl.CaptureAppSessionState()
	if err := h.ctl.Close(); err != nil {
		return nil, fmt.Errorf("close controller: %w", err)
	}

	ctx := context.Background()
	latest, ok, err := h.journal.LatestCommit(ctx)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if !ok {
		result.AddError("journal is empty")
	} else if latest.Tempo != final.Tempo() || latest.IsPlaying != final.IsPlaying() {
		result.AddError(fmt.Sprintf("journal latest commit (tempo %v, playing %v) does not match final state (tempo %v, playing %v)",
			latest.Tempo, latest.IsPlaying, final.Tempo(), final.IsPlaying()))
	}

	result.Commits, err = h.journal.CountCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("count commits: %w", err)
	}
	return result, nil
}

func newHarness(scenario *Scenario, logger *slog.Logger) (*Harness, error) {
	tps, epoch := float64(clock.HostTicksPerSecond), int64(0)
	if scenario.Clock != nil {
		tps, epoch = scenario.Clock.TicksPerSecond, scenario.Clock.Epoch
	}

	ticks := testutil.NewManualTicks(0)
	clk, err := clock.New(tps, epoch, ticks)
	if err != nil {
		return nil, fmt.Errorf("create clock: %w", err)
	}

	journal, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDGenerator("commit")))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	ctl, err := controller.New(scenario.Tempo,
		controller.WithClock(clk),
		controller.WithJournal(journal),
		controller.WithLogger(logger),
	)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("create controller: %w", err)
	}

	return &Harness{
		scenario: scenario,
		ticks:    ticks,
		clock:    clk,
		journal:  journal,
		ctl:      ctl,
		logger:   logger,
	}, nil
}

// execute applies one step and returns the session as seen afterwards.
func (h *Harness) execute(i int, step Step) TraceEvent {
	quantum := step.Quantum
	if quantum == 0 {
		quantum = h.scenario.Quantum
	}

	at := step.Time
	var ticks uint64

	switch step.Op {
	case OpSetTempo:
		h.mutate(func(st *session.State) {
			// Validated at load time.
			_ = st.SetTempo(step.BPM, step.Time)
		})
	case OpRequestBeat:
		h.mutate(func(st *session.State) { st.RequestBeatAtTime(step.Beat, step.Time, quantum) })
	case OpForceBeat:
		h.mutate(func(st *session.State) { st.ForceBeatAtTime(step.Beat, step.Time, quantum) })
	case OpSetPlaying:
		h.mutate(func(st *session.State) { st.SetIsPlaying(step.Playing, step.Time) })
	case OpStartAndRequest:
		h.mutate(func(st *session.State) {
			st.SetIsPlayingAndRequestBeatAtTime(step.Playing, step.Time, step.Beat, quantum)
		})
	case OpRequestAtStart:
		h.mutate(func(st *session.State) { st.RequestBeatAtStartPlayingTime(step.Beat, quantum) })
		at = h.capture().TimeForIsPlaying()
	case OpTimeAtBeat:
		at = h.capture().TimeAtBeat(step.Beat, quantum)
	case OpClock:
		if step.Ticks != 0 {
			h.ticks.Set(step.Ticks)
			ticks = step.Ticks
			at = h.clock.Micros()
		} else {
			at = step.Micros
			ticks = h.clock.MicrosToTicks(step.Micros)
		}
	}

	st := h.capture()
	return TraceEvent{
		Step:          i,
		Op:            step.Op,
		Time:          at,
		Tempo:         round6(st.Tempo()),
		Beat:          round6(st.BeatAtTime(at, quantum)),
		Phase:         round6(st.PhaseAtTime(at, quantum)),
		Playing:       st.IsPlaying(),
		TransportTime: st.TimeForIsPlaying(),
		Ticks:         ticks,
	}
}

// mutate captures, changes and commits the session through the scenario's
// path.
func (h *Harness) mutate(fn func(st *session.State)) {
	if h.scenario.Path == PathAudio {
		st := h.ctl.CaptureAudioSessionState()
		fn(&st)
		h.ctl.CommitAudioSessionState(st)
		return
	}
	st := h.ctl.CaptureAppSessionState()
	fn(&st)
	h.ctl.CommitAppSessionState(st)
}

func (h *Harness) capture() session.State {
	if h.scenario.Path == PathAudio {
		return h.ctl.CaptureAudioSessionState()
	}
	return h.ctl.CaptureAppSessionState()
}

// round6 keeps golden files stable across platforms.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
