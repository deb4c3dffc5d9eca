// Package clock maps a monotonic hardware tick counter onto the shared
// microsecond timeline that session states are expressed in.
//
// A Clock is an affine mapping:
//
//	micros = epoch + ticks / ticksPerMicro
//
// Ticks are hardware-domain counters (host monotonic time, sample counts);
// micros are int64 microseconds in the session epoch. All methods are pure
// reads and safe to call from any goroutine, including the audio callback.
package clock

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidRate is returned when a clock is built with a non-positive
// or non-finite tick rate.
var ErrInvalidRate = errors.New("tick rate must be positive and finite")

// HostTicksPerSecond is the tick rate of the host clock returned by NewHost.
// One tick per microsecond keeps the tick/micro round trip exact.
const HostTicksPerSecond = 1_000_000

// TickSource reads a monotonic tick counter.
//
// Implementations must be safe for concurrent use and must not block or
// allocate: Ticks is called from the audio path.
type TickSource interface {
	Ticks() uint64
}

// Clock converts between ticks and session microseconds.
type Clock struct {
	ticksPerMicro float64
	epoch         int64
	source        TickSource
}

// New creates a clock ticking at ticksPerSecond whose tick 0 corresponds to
// epoch microseconds.
func New(ticksPerSecond float64, epoch int64, source TickSource) (*Clock, error) {
	if !(ticksPerSecond > 0) || math.IsInf(ticksPerSecond, 0) {
		return nil, fmt.Errorf("clock: %w: %v", ErrInvalidRate, ticksPerSecond)
	}
	if source == nil {
		return nil, errors.New("clock: tick source is required")
	}
	return &Clock{
		ticksPerMicro: ticksPerSecond / 1e6,
		epoch:         epoch,
		source:        source,
	}, nil
}

// NewHost returns a clock driven by the process monotonic clock.
// Tick 0 is the moment NewHost was called, and the epoch is 0.
func NewHost() *Clock {
	return &Clock{
		ticksPerMicro: HostTicksPerSecond / 1e6,
		source:        hostSource{base: time.Now()},
	}
}

// TicksToMicros maps a tick count to session microseconds.
func (c *Clock) TicksToMicros(ticks uint64) int64 {
	return c.epoch + int64(math.Round(float64(ticks)/c.ticksPerMicro))
}

// MicrosToTicks maps session microseconds to a tick count. Times before the
// epoch map to tick 0, since ticks are never negative.
func (c *Clock) MicrosToTicks(micros int64) uint64 {
	d := micros - c.epoch
	if d <= 0 {
		return 0
	}
	return uint64(math.Round(float64(d) * c.ticksPerMicro))
}

// Ticks reads the current tick count.
func (c *Clock) Ticks() uint64 {
	return c.source.Ticks()
}

// Micros reads the current session time.
func (c *Clock) Micros() int64 {
	return c.TicksToMicros(c.source.Ticks())
}

// TicksPerSecond reports the configured tick rate.
func (c *Clock) TicksPerSecond() float64 {
	return c.ticksPerMicro * 1e6
}

// Epoch reports the session time of tick 0.
func (c *Clock) Epoch() int64 {
	return c.epoch
}

// hostSource counts microseconds elapsed since base on the monotonic clock.
type hostSource struct {
	base time.Time
}

func (h hostSource) Ticks() uint64 {
	d := time.Since(h.base)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Microsecond)
}
