package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a timing scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tempo is the controller's starting tempo.
	Tempo float64 `yaml:"tempo"`

	// Quantum is used by steps that don't set their own. Default 4.
	Quantum float64 `yaml:"quantum,omitempty"`

	// Path selects the capture/commit path: "app" (default) or "audio".
	Path string `yaml:"path,omitempty"`

	// Clock configures the tick source. Default: 1 tick per microsecond.
	Clock *ClockSpec `yaml:"clock,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// ClockSpec describes the scenario clock.
type ClockSpec struct {
	TicksPerSecond float64 `yaml:"ticks_per_second"`
	Epoch          int64   `yaml:"epoch,omitempty"`
}

// Step is one operation on the session.
type Step struct {
	Op      string  `yaml:"op"`
	BPM     float64 `yaml:"bpm,omitempty"`
	Beat    float64 `yaml:"beat,omitempty"`
	Time    int64   `yaml:"time,omitempty"`
	Quantum float64 `yaml:"quantum,omitempty"`
	Playing bool    `yaml:"playing,omitempty"`

	// Ticks or Micros feed the clock op. Exactly one is used: Ticks when
	// non-zero, otherwise Micros.
	Ticks  uint64 `yaml:"ticks,omitempty"`
	Micros int64  `yaml:"micros,omitempty"`

	// Expect checks the session after the step. Only set fields are checked.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists the values a step must produce. Floats compare within
// FloatTolerance.
type Expect struct {
	Tempo         *float64 `yaml:"tempo,omitempty"`
	Beat          *float64 `yaml:"beat,omitempty"`
	Phase         *float64 `yaml:"phase,omitempty"`
	Playing       *bool    `yaml:"playing,omitempty"`
	TransportTime *int64   `yaml:"transport_time,omitempty"`
	Time          *int64   `yaml:"time,omitempty"`
	Ticks         *uint64  `yaml:"ticks,omitempty"`
}

// Step operation names.
const (
	OpObserve         = "observe"
	OpSetTempo        = "set_tempo"
	OpRequestBeat     = "request_beat"
	OpForceBeat       = "force_beat"
	OpSetPlaying      = "set_playing"
	OpStartAndRequest = "start_and_request"
	OpRequestAtStart  = "request_at_start"
	OpTimeAtBeat      = "time_at_beat"
	OpClock           = "clock"
)

// Capture/commit paths.
const (
	PathApp   = "app"
	PathAudio = "audio"
)

var knownOps = map[string]bool{
	OpObserve:         true,
	OpSetTempo:        true,
	OpRequestBeat:     true,
	OpForceBeat:       true,
	OpSetPlaying:      true,
	OpStartAndRequest: true,
	OpRequestAtStart:  true,
	OpTimeAtBeat:      true,
	OpClock:           true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and fills defaults.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !(s.Tempo > 0) {
		return fmt.Errorf("tempo must be positive")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Quantum == 0 {
		s.Quantum = 4
	}
	switch s.Path {
	case "":
		s.Path = PathApp
	case PathApp, PathAudio:
	default:
		return fmt.Errorf("path must be %q or %q, got %q", PathApp, PathAudio, s.Path)
	}
	if s.Clock != nil && !(s.Clock.TicksPerSecond > 0) {
		return fmt.Errorf("clock.ticks_per_second must be positive")
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if step.Op == OpSetTempo && !(step.BPM > 0) {
			return fmt.Errorf("step %d: set_tempo needs a positive bpm", i)
		}
	}

	return nil
}
