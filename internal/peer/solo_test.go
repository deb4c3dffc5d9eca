package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolo_ReportsZeroPeers(t *testing.T) {
	s := NewSolo()
	r := &recorder{}

	require.NoError(t, s.Start(r))
	assert.Equal(t, 0, r.lastPeers())
	assert.ErrorIs(t, s.Start(r), ErrStarted)

	s.Publish(Proposal{})
	assert.Equal(t, 0, r.updateCount())

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Start(r), "restartable after stop")
}
