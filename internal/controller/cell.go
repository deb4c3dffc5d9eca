package controller

import (
	"math"
	"runtime"
	"sync/atomic"

	"github.com/roach88/beatlink/internal/session"
)

const (
	wordSeq = iota
	wordTempo
	wordBeatOrigin
	wordTimeOrigin
	wordPlaying
	wordTransportTime
	wordRealignKind
	wordRealignBeat
	wordRealignTime
	wordRealignQuantum
	cellWords
)

// audioCell is the audio goroutine's slot of canonical state.
//
// It is a seqlock over atomic words: version is odd while a write is in
// progress. There is exactly one writer (the audio goroutine), which never
// waits. Readers on other goroutines retry until they see the same even
// version before and after loading the words.
type audioCell struct {
	version atomic.Uint64
	words   [cellWords]atomic.Uint64
}

// write stores st under seq. Single writer only.
func (c *audioCell) write(seq uint64, st session.State) {
	v := c.version.Load()
	c.version.Store(v + 1)

	c.words[wordSeq].Store(seq)
	c.words[wordTempo].Store(math.Float64bits(st.Timeline.Tempo))
	c.words[wordBeatOrigin].Store(math.Float64bits(st.Timeline.BeatOrigin))
	c.words[wordTimeOrigin].Store(uint64(st.Timeline.TimeOrigin))
	c.words[wordPlaying].Store(boolWord(st.Transport.IsPlaying))
	c.words[wordTransportTime].Store(uint64(st.Transport.Time))
	c.words[wordRealignKind].Store(uint64(st.Realignment.Kind))
	c.words[wordRealignBeat].Store(math.Float64bits(st.Realignment.Beat))
	c.words[wordRealignTime].Store(uint64(st.Realignment.Time))
	c.words[wordRealignQuantum].Store(math.Float64bits(st.Realignment.Quantum))

	c.version.Store(v + 2)
}

// readOwned loads the cell without the version check. Only the writer
// goroutine may call it: nobody else can be mid-write.
func (c *audioCell) readOwned() (uint64, session.State) {
	return c.load()
}

// read returns a consistent copy of the cell from any goroutine.
func (c *audioCell) read() (uint64, session.State) {
	for {
		v1 := c.version.Load()
		if v1&1 == 1 {
			runtime.Gosched()
			continue
		}
		seq, st := c.load()
		if c.version.Load() == v1 {
			return seq, st
		}
	}
}

func (c *audioCell) load() (uint64, session.State) {
	var st session.State
	seq := c.words[wordSeq].Load()
	st.Timeline.Tempo = math.Float64frombits(c.words[wordTempo].Load())
	st.Timeline.BeatOrigin = math.Float64frombits(c.words[wordBeatOrigin].Load())
	st.Timeline.TimeOrigin = int64(c.words[wordTimeOrigin].Load())
	st.Transport.IsPlaying = c.words[wordPlaying].Load() != 0
	st.Transport.Time = int64(c.words[wordTransportTime].Load())
	st.Realignment.Kind = session.RealignKind(c.words[wordRealignKind].Load())
	st.Realignment.Beat = math.Float64frombits(c.words[wordRealignBeat].Load())
	st.Realignment.Time = int64(c.words[wordRealignTime].Load())
	st.Realignment.Quantum = math.Float64frombits(c.words[wordRealignQuantum].Load())
	return seq, st
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
