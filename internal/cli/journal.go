package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/beatlink/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Source   string
	Limit    int
	Prune    int
}

// JournalEntry is one commit as printed by the journal command.
type JournalEntry struct {
	ID            string  `json:"id"`
	Seq           uint64  `json:"seq"`
	Source        string  `json:"source"`
	Tempo         float64 `json:"tempo"`
	BeatOrigin    float64 `json:"beat_origin"`
	TimeOrigin    int64   `json:"time_origin"`
	Playing       bool    `json:"playing"`
	TransportTime int64   `json:"transport_time"`
	Realignment   string  `json:"realignment,omitempty"`
}

// JournalResult holds the journal command output.
type JournalResult struct {
	Commits []JournalEntry `json:"commits"`
	Total   int            `json:"total"`
	Pruned  int64          `json:"pruned,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled session commits",
		Long: `List the session commits recorded by 'linkhut run --journal'.

Commits are printed oldest first. --limit keeps the newest N, --source keeps
commits of one origin (init, app, audio or peer). --prune deletes all but
the newest N commits before listing.

Examples:
  linkhut journal --db ./linkhut.db
  linkhut journal --db ./linkhut.db --source peer --limit 20
  linkhut journal --db ./linkhut.db --prune 1000 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only commits from this source (init|app|audio|peer)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the newest N commits (0 = all)")
	cmd.Flags().IntVar(&opts.Prune, "prune", 0, "keep only the newest N commits (0 = no pruning)")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Source != "" && !validSource(opts.Source) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid source %q: must be one of init, app, audio, peer", opts.Source))
	}
	if opts.Limit < 0 || opts.Prune < 0 {
		return NewExitError(ExitCommandError, "--limit and --prune must not be negative")
	}

	// store.Open creates missing files; a typo should not leave an empty
	// journal behind.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	var result JournalResult
	if opts.Prune > 0 {
		result.Pruned, err = st.Prune(ctx, opts.Prune)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to prune journal", err)
		}
	}

	commits, err := st.ListCommits(ctx, store.ListFilter{Source: store.Source(opts.Source), Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list commits", err)
	}
	result.Total, err = st.CountCommits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count commits", err)
	}

	result.Commits = make([]JournalEntry, 0, len(commits))
	for _, c := range commits {
		result.Commits = append(result.Commits, journalEntry(c))
	}

	return newFormatter(cmd, opts.RootOptions).Render(result, nil, func(w io.Writer) error {
		return outputJournalText(w, result)
	})
}

func validSource(s string) bool {
	switch store.Source(s) {
	case store.SourceInit, store.SourceApp, store.SourceAudio, store.SourcePeer:
		return true
	}
	return false
}

func journalEntry(c store.Commit) JournalEntry {
	e := JournalEntry{
		ID:            c.ID,
		Seq:           c.Seq,
		Source:        string(c.Source),
		Tempo:         c.Tempo,
		BeatOrigin:    c.BeatOrigin,
		TimeOrigin:    c.TimeOrigin,
		Playing:       c.IsPlaying,
		TransportTime: c.TransportTime,
	}
	if r := c.State().Realignment; r.Pending() {
		e.Realignment = fmt.Sprintf("%s beat %g at %d (q %g)", r.Kind, r.Beat, r.Time, r.Quantum)
	}
	return e
}

func outputJournalText(w io.Writer, result JournalResult) error {
	if result.Pruned > 0 {
		fmt.Fprintf(w, "Pruned %d commit(s)\n", result.Pruned)
	}
	if len(result.Commits) == 0 {
		fmt.Fprintln(w, "No commits found.")
		return nil
	}

	fmt.Fprintln(w, "Commits:")
	for _, e := range result.Commits {
		transport := fmt.Sprintf("stopped@%d", e.TransportTime)
		if e.Playing {
			transport = fmt.Sprintf("playing@%d", e.TransportTime)
		}
		fmt.Fprintf(w, "  [%d] %-5s tempo %.2f  beat %g@%d  %s\n",
			e.Seq, e.Source, e.Tempo, e.BeatOrigin, e.TimeOrigin, transport)
		if e.Realignment != "" {
			fmt.Fprintf(w, "       Realign: %s\n", e.Realignment)
		}
	}
	fmt.Fprintf(w, "\n%d of %d commit(s)\n", len(result.Commits), result.Total)
	return nil
}
