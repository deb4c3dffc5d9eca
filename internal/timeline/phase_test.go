package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhase(t *testing.T) {
	tests := []struct {
		name string
		x, q float64
		want float64
	}{
		{"zero", 0, 4, 0},
		{"inside", 2.5, 4, 2.5},
		{"wraps", 5, 4, 1},
		{"negative", -1, 4, 3},
		{"negative multiple", -8, 4, 0},
		{"tiny negative", -1e-17, 4, 0},
		{"quantum zero", 2.75, 0, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Phase(tt.x, tt.q), 1e-12)
		})
	}
}

func TestNextPhaseMatch(t *testing.T) {
	tests := []struct {
		name              string
		x, target, q, want float64
	}{
		{"already in phase", 4, 0, 4, 4},
		{"forward within bar", 4.5, 2, 4, 6},
		{"wraps to next bar", 7, 1, 4, 9},
		{"target beyond quantum", 1, 9, 4, 1},
		{"negative x", -0.5, 0, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextPhaseMatch(tt.x, tt.target, tt.q)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, tt.x)
		})
	}
}

func TestClosestPhaseMatch(t *testing.T) {
	assert.InDelta(t, 4.0, ClosestPhaseMatch(4.4, 0, 4), 1e-12)
	assert.InDelta(t, 8.0, ClosestPhaseMatch(7.1, 0, 4), 1e-12)
	assert.InDelta(t, 5.0, ClosestPhaseMatch(4.2, 1, 4), 1e-12)
	assert.InDelta(t, 1.0, ClosestPhaseMatch(-0.9, 1, 4), 1e-12)
}

func TestNormalizeQuantum(t *testing.T) {
	assert.Equal(t, 4.0, NormalizeQuantum(4))
	assert.Equal(t, 1.0, NormalizeQuantum(0))
	assert.Equal(t, 1.0, NormalizeQuantum(-3))
}
