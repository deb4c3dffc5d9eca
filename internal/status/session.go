package status

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/timeline"
)

// SessionView is the JSON body of GET /session.
type SessionView struct {
	Time          int64   `json:"time_us"`
	Tempo         float64 `json:"tempo"`
	Beat          float64 `json:"beat"`
	Phase         float64 `json:"phase"`
	Quantum       float64 `json:"quantum"`
	Playing       bool    `json:"playing"`
	Peers         int     `json:"peers"`
	Enabled       bool    `json:"enabled"`
	StartStopSync bool    `json:"start_stop_sync"`
}

type sessionHandler struct {
	session Session
	quantum float64
}

// Get returns the session at the current clock time. An optional
// ?quantum= overrides the configured quantum.
func (h *sessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := h.quantum
	if raw := r.URL.Query().Get("quantum"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "quantum must be a number")
			return
		}
		q = v
	}
	q = timeline.NormalizeQuantum(q)

	now := h.session.Clock().Micros()
	st := h.session.CaptureAppSessionState()
	writeJSON(w, http.StatusOK, SessionView{
		Time:          now,
		Tempo:         st.Tempo(),
		Beat:          st.BeatAtTime(now, q),
		Phase:         st.PhaseAtTime(now, q),
		Quantum:       q,
		Playing:       st.IsPlaying(),
		Peers:         h.session.NumPeers(),
		Enabled:       h.session.IsEnabled(),
		StartStopSync: h.session.IsStartStopSyncEnabled(),
	})
}

type tempoRequest struct {
	BPM float64 `json:"bpm"`
}

// SetTempo changes the tempo at the current clock time.
func (h *sessionHandler) SetTempo(w http.ResponseWriter, r *http.Request) {
	var req tempoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := timeline.ValidateTempo(req.BPM); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	now := h.session.Clock().Micros()
	h.session.WithAppSessionState(func(st *session.State) {
		// Tempo was validated above.
		_ = st.SetTempo(req.BPM, now)
	})
	h.Get(w, r)
}

type playingRequest struct {
	Playing bool `json:"playing"`
}

// SetPlaying starts or stops transport now, keeping beat 0 on the start
// when starting.
func (h *sessionHandler) SetPlaying(w http.ResponseWriter, r *http.Request) {
	var req playingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	now := h.session.Clock().Micros()
	h.session.WithAppSessionState(func(st *session.State) {
		if req.Playing {
			st.SetIsPlayingAndRequestBeatAtTime(true, now, 0, h.quantum)
			return
		}
		st.SetIsPlaying(false, now)
	})
	h.Get(w, r)
}
