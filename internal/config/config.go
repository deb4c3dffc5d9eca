// Package config loads linkhut settings from TOML and validates them against
// an embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.cue
var schemaCUE string

// Config holds the settings of one participant.
type Config struct {
	Tempo         float64 `toml:"tempo" json:"tempo"`
	Quantum       float64 `toml:"quantum" json:"quantum"`
	StartStopSync bool    `toml:"start_stop_sync" json:"start_stop_sync"`
	Enabled       bool    `toml:"enabled" json:"enabled"`
	PeerName      string  `toml:"peer_name" json:"peer_name"`
	PollInterval  string  `toml:"poll_interval" json:"poll_interval"`
	Journal       string  `toml:"journal" json:"journal"`
	MetricsAddr   string  `toml:"metrics_addr" json:"metrics_addr"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Tempo:        120,
		Quantum:      4,
		Enabled:      true,
		PeerName:     "linkhut",
		PollInterval: "5ms",
	}
}

// Load reads path over the defaults, normalizes it and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults, normalizes it and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	cfg.Normalize()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize trims string fields and puts PeerName in Unicode NFC form, so
// the same name typed on different systems compares equal.
func (c *Config) Normalize() {
	c.PeerName = norm.NFC.String(strings.TrimSpace(c.PeerName))
	c.PollInterval = strings.TrimSpace(c.PollInterval)
	c.Journal = strings.TrimSpace(c.Journal)
	c.MetricsAddr = strings.TrimSpace(c.MetricsAddr)
}

// Poll returns the parsed poll interval.
func (c Config) Poll() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// ValidationError lists every schema violation of a config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(cfg)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Problems: problems(err)}
	}
	if cfg.Poll() <= 0 {
		return &ValidationError{Problems: []string{"poll_interval: must be positive"}}
	}
	return nil
}

// problems flattens a CUE error into one line per violation.
func problems(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = []string{err.Error()}
	}
	return out
}

// Marshal encodes cfg as TOML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config encode failed: %w", err)
	}
	return data, nil
}
