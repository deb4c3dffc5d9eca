package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsStoppedAtZero(t *testing.T) {
	var tr Transport
	assert.False(t, tr.Playing())
	assert.Equal(t, int64(0), tr.TimeForIsPlaying())
}

func TestSetIsPlaying(t *testing.T) {
	var tr Transport

	tr.SetIsPlaying(true, 1_000_000)
	assert.True(t, tr.Playing())
	assert.Equal(t, int64(1_000_000), tr.TimeForIsPlaying())

	tr.SetIsPlaying(false, 2_500_000)
	assert.False(t, tr.Playing())
	assert.Equal(t, int64(2_500_000), tr.TimeForIsPlaying())
}

func TestCopiesAreIndependent(t *testing.T) {
	a := Transport{IsPlaying: true, Time: 10}
	b := a
	b.SetIsPlaying(false, 20)

	assert.True(t, a.Playing())
	assert.Equal(t, int64(10), a.TimeForIsPlaying())
}
