// Package metrics exposes Prometheus collectors for controller activity.
//
// All label combinations are resolved when Metrics is built, so recording a
// capture or commit is a single atomic add. That keeps the recorders usable
// from the audio path. Every method is safe on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mode labels the access path of a capture or commit.
type Mode string

const (
	ModeApp   Mode = "app"
	ModeAudio Mode = "audio"
)

// Callback labels an observer kind.
type Callback string

const (
	CallbackPeers     Callback = "peers"
	CallbackTempo     Callback = "tempo"
	CallbackTransport Callback = "transport"
)

// Metrics holds the collectors of one controller.
type Metrics struct {
	registry *prometheus.Registry

	captures  *prometheus.CounterVec
	commits   *prometheus.CounterVec
	callbacks *prometheus.CounterVec

	appCaptures   prometheus.Counter
	audioCaptures prometheus.Counter
	appCommits    prometheus.Counter
	audioCommits  prometheus.Counter

	peersCallbacks     prometheus.Counter
	tempoCallbacks     prometheus.Counter
	transportCallbacks prometheus.Counter

	peers         prometheus.Gauge
	tempo         prometheus.Gauge
	peerUpdates   prometheus.Counter
	journalErrors prometheus.Counter
}

// New builds collectors under namespace and registers them on a private
// registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "beatlink"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		captures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "captures_total",
				Help:      "Session state captures by access mode.",
			},
			[]string{"mode"},
		),
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "commits_total",
				Help:      "Session state commits by access mode.",
			},
			[]string{"mode"},
		),
		callbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "observer",
				Name:      "callbacks_total",
				Help:      "Observer callbacks fired by kind.",
			},
			[]string{"kind"},
		),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "count",
			Help:      "Peers currently in the session.",
		}),
		tempo: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "tempo_bpm",
			Help:      "Last tempo reported to observers.",
		}),
		peerUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "peer",
			Name:      "updates_total",
			Help:      "Session updates received from the peer engine.",
		}),
		journalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "Failed journal writes.",
		}),
	}

	m.appCaptures = m.captures.WithLabelValues(string(ModeApp))
	m.audioCaptures = m.captures.WithLabelValues(string(ModeAudio))
	m.appCommits = m.commits.WithLabelValues(string(ModeApp))
	m.audioCommits = m.commits.WithLabelValues(string(ModeAudio))
	m.peersCallbacks = m.callbacks.WithLabelValues(string(CallbackPeers))
	m.tempoCallbacks = m.callbacks.WithLabelValues(string(CallbackTempo))
	m.transportCallbacks = m.callbacks.WithLabelValues(string(CallbackTransport))

	m.registry.MustRegister(m.captures, m.commits, m.callbacks, m.peers, m.tempo, m.peerUpdates, m.journalErrors)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Capture records a capture on the given path.
func (m *Metrics) Capture(mode Mode) {
	if m == nil {
		return
	}
	if mode == ModeAudio {
		m.audioCaptures.Inc()
		return
	}
	m.appCaptures.Inc()
}

// Commit records a commit on the given path.
func (m *Metrics) Commit(mode Mode) {
	if m == nil {
		return
	}
	if mode == ModeAudio {
		m.audioCommits.Inc()
		return
	}
	m.appCommits.Inc()
}

// Callback records a fired observer.
func (m *Metrics) Callback(kind Callback) {
	if m == nil {
		return
	}
	switch kind {
	case CallbackPeers:
		m.peersCallbacks.Inc()
	case CallbackTempo:
		m.tempoCallbacks.Inc()
	case CallbackTransport:
		m.transportCallbacks.Inc()
	}
}

// SetPeers records the current peer count.
func (m *Metrics) SetPeers(n int) {
	if m == nil {
		return
	}
	m.peers.Set(float64(n))
}

// SetTempo records the current tempo.
func (m *Metrics) SetTempo(bpm float64) {
	if m == nil {
		return
	}
	m.tempo.Set(bpm)
}

// PeerUpdate records a session update from the peer engine.
func (m *Metrics) PeerUpdate() {
	if m == nil {
		return
	}
	m.peerUpdates.Inc()
}

// JournalError records a failed journal write.
func (m *Metrics) JournalError() {
	if m == nil {
		return
	}
	m.journalErrors.Inc()
}
