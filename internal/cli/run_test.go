package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beatlink/internal/store"
)

func executeRun(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunPrintsStatus(t *testing.T) {
	out, err := executeRun(t, "text", "--tempo", "98", "--quantum", "3", "--duration", "50ms", "--interval", "10ms")
	require.NoError(t, err)

	assert.Contains(t, out, "enabled: true")
	assert.Contains(t, out, "peers: 0")
	assert.Contains(t, out, "quantum: 3")
	assert.Contains(t, out, "tempo:  98.00")
	assert.Contains(t, out, "stopped")
}

func TestRunPlay(t *testing.T) {
	out, err := executeRun(t, "text", "--play", "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "playing")
}

func TestRunJSONLines(t *testing.T) {
	out, err := executeRun(t, "json", "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)

	scanner := bufio.NewScanner(strings.NewReader(out))
	lines := 0
	for scanner.Scan() {
		var line HutLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		assert.Equal(t, 120.0, line.Tempo)
		assert.Equal(t, 4.0, line.Quantum)
		assert.True(t, line.Enabled)
		assert.GreaterOrEqual(t, line.Phase, 0.0)
		assert.Less(t, line.Phase, 4.0)
		lines++
	}
	assert.Positive(t, lines)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--interval", "10ms"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after context cancellation")
	}
	assert.Contains(t, buf.String(), "tempo: 120.00")
}

func TestRunWithSimulatedPeers(t *testing.T) {
	out, err := executeRun(t, "text", "--peers", "2", "--duration", "40ms", "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "peers: 2")
}

func TestRunWithStatusServer(t *testing.T) {
	_, err := executeRun(t, "text", "--metrics-addr", "127.0.0.1:0", "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)
}

func TestRunJournalAndRestore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "linkhut.db")

	_, err := executeRun(t, "text", "--journal", dbPath, "--tempo", "97", "--play", "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	latest, ok, err := st.LatestCommit(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 97.0, latest.Tempo)
	assert.True(t, latest.IsPlaying)
	require.NoError(t, st.Close())

	out, err := executeRun(t, "text", "--journal", dbPath, "--restore", "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "tempo:  97.00")
	assert.Contains(t, out, "playing")
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkhut.toml")
	require.NoError(t, os.WriteFile(path, []byte("tempo = 133\nquantum = 2\nenabled = false\n"), 0644))

	out, err := executeRun(t, "text", "--config", path, "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "tempo: 133.00")
	assert.Contains(t, out, "quantum: 2")
	assert.Contains(t, out, "enabled: false")

	// Flags win over the file.
	out, err = executeRun(t, "text", "--config", path, "--tempo", "90", "--duration", "30ms", "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "tempo:  90.00")
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := executeRun(t, "text", "--tempo=-5", "--duration", "10ms")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid config")

	_, err = executeRun(t, "text", "--config", "/nonexistent/linkhut.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config load failed")
}

func TestRunInvalidFlags(t *testing.T) {
	_, err := executeRun(t, "text", "--interval", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = executeRun(t, "text", "--peers", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = executeRun(t, "text", "extra-arg")
	require.Error(t, err)
}

func TestPhaseBar(t *testing.T) {
	assert.Equal(t, "XOOO", phaseBar(0, 4))
	assert.Equal(t, "XXOO", phaseBar(1.5, 4))
	assert.Equal(t, "XXXX", phaseBar(3.99, 4))
	assert.Equal(t, "XOO", phaseBar(0.5, 2.5))
}
