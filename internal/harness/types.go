package harness

// TraceEvent is the session as seen after one step.
type TraceEvent struct {
	Step          int     `json:"step"`
	Op            string  `json:"op"`
	Time          int64   `json:"time"`
	Tempo         float64 `json:"tempo"`
	Beat          float64 `json:"beat"`
	Phase         float64 `json:"phase"`
	Playing       bool    `json:"playing"`
	TransportTime int64   `json:"transport_time"`
	Ticks         uint64  `json:"ticks,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Trace has one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Commits is the number of journaled session commits.
	Commits int `json:"commits"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
