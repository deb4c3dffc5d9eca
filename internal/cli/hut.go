package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/timeline"
)

// HutLine is one status line of `linkhut run`.
type HutLine struct {
	Now           int64   `json:"now"`
	Enabled       bool    `json:"enabled"`
	Peers         int     `json:"peers"`
	Quantum       float64 `json:"quantum"`
	StartStopSync bool    `json:"start_stop_sync"`
	Tempo         float64 `json:"tempo"`
	Playing       bool    `json:"playing"`
	Beat          float64 `json:"beat"`
	Phase         float64 `json:"phase"`
}

// hutSession is what the status loop reads from a controller.
type hutSession interface {
	CaptureAppSessionState() session.State
	NumPeers() int
	IsEnabled() bool
	IsStartStopSyncEnabled() bool
}

func readHutLine(s hutSession, now int64, quantum float64) HutLine {
	st := s.CaptureAppSessionState()
	return HutLine{
		Now:           now,
		Enabled:       s.IsEnabled(),
		Peers:         s.NumPeers(),
		Quantum:       timeline.NormalizeQuantum(quantum),
		StartStopSync: s.IsStartStopSyncEnabled(),
		Tempo:         st.Tempo(),
		Playing:       st.IsPlaying(),
		Beat:          st.BeatAtTime(now, quantum),
		Phase:         st.PhaseAtTime(now, quantum),
	}
}

// writeHutLine prints l as text or as one JSON object per line.
func writeHutLine(w io.Writer, format string, l HutLine) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(l)
	}
	_, err := fmt.Fprintf(w, "enabled: %-5t | peers: %d | quantum: %g | start/stop sync: %-5t | tempo: %6.2f | %-7s | beat: %8.2f | %s\n",
		l.Enabled, l.Peers, l.Quantum, l.StartStopSync, l.Tempo, playingLabel(l.Playing), l.Beat, phaseBar(l.Phase, l.Quantum))
	return err
}

func playingLabel(playing bool) string {
	if playing {
		return "playing"
	}
	return "stopped"
}

// phaseBar draws one cell per beat of the quantum, filled up to the
// current beat: phase 1.5 of 4 gives "XXOO".
func phaseBar(phase, quantum float64) string {
	cells := int(math.Ceil(quantum))
	var b strings.Builder
	for i := 0; i < cells; i++ {
		if float64(i) <= phase {
			b.WriteByte('X')
		} else {
			b.WriteByte('O')
		}
	}
	return b.String()
}
