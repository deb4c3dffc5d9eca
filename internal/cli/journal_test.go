package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/store"
	"github.com/roach88/beatlink/internal/testutil"
)

// seedJournal writes one commit per source and returns the database path.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(path, store.WithIDGenerator(testutil.NewSequentialIDGenerator("commit")))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	base, err := session.New(120)
	require.NoError(t, err)

	_, err = st.RecordCommit(ctx, store.NewCommit(1, store.SourceInit, base))
	require.NoError(t, err)

	app := base
	require.NoError(t, app.SetTempo(128, 0))
	_, err = st.RecordCommit(ctx, store.NewCommit(2, store.SourceApp, app))
	require.NoError(t, err)

	audio := app
	audio.SetIsPlayingAndRequestBeatAtTime(true, 1_000_000, 0, 4)
	_, err = st.RecordCommit(ctx, store.NewCommit(3, store.SourceAudio, audio))
	require.NoError(t, err)

	peer := audio
	peer.ClearRealignment()
	require.NoError(t, peer.SetTempo(131, 2_000_000))
	_, err = st.RecordCommit(ctx, store.NewCommit(4, store.SourcePeer, peer))
	require.NoError(t, err)

	return path
}

func executeJournal(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewJournalCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestJournalMissingDatabaseFlag(t *testing.T) {
	_, err := executeJournal(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestJournalNonExistentDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	_, err := executeJournal(t, "text", "--db", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, path)
}

func TestJournalText(t *testing.T) {
	out, err := executeJournal(t, "text", "--db", seedJournal(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Commits:")
	assert.Contains(t, out, "init")
	assert.Contains(t, out, "128.00")
	assert.Contains(t, out, "playing@1000000")
	assert.Contains(t, out, "soft beat 0 at 1000000 (q 4)")
	assert.Contains(t, out, "4 of 4 commit(s)")
}

func TestJournalJSONWithFilters(t *testing.T) {
	out, err := executeJournal(t, "json", "--db", seedJournal(t), "--source", "peer")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   JournalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Commits, 1)
	assert.Equal(t, "peer", resp.Data.Commits[0].Source)
	assert.Equal(t, 131.0, resp.Data.Commits[0].Tempo)
	assert.Empty(t, resp.Data.Commits[0].Realignment)
	assert.Equal(t, 4, resp.Data.Total)
}

func TestJournalLimit(t *testing.T) {
	out, err := executeJournal(t, "json", "--db", seedJournal(t), "--limit", "2")
	require.NoError(t, err)

	var resp struct {
		Data JournalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Commits, 2)
	assert.Equal(t, uint64(3), resp.Data.Commits[0].Seq)
	assert.Equal(t, uint64(4), resp.Data.Commits[1].Seq)
}

func TestJournalPrune(t *testing.T) {
	path := seedJournal(t)

	out, err := executeJournal(t, "text", "--db", path, "--prune", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 3 commit(s)")
	assert.Contains(t, out, "1 of 1 commit(s)")
}

func TestJournalInvalidFlags(t *testing.T) {
	path := seedJournal(t)

	_, err := executeJournal(t, "text", "--db", path, "--source", "midi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid source "midi"`)

	_, err = executeJournal(t, "text", "--db", path, "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJournalEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeJournal(t, "text", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No commits found.")
}
