package store

import (
	"context"
	"fmt"
)

// RecordCommit appends a commit to the journal and returns its ID.
//
// A commit without an ID gets one from the store's generator. Uses
// ON CONFLICT(id) DO NOTHING for idempotency - recording the same ID twice
// is silently ignored.
func (s *Store) RecordCommit(ctx context.Context, c Commit) (string, error) {
	if c.ID == "" {
		c.ID = s.idGen.Generate()
	}
	if c.RealignKind == "" {
		c.RealignKind = "none"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_commits
		(id, seq, source, tempo, beat_origin, time_origin, is_playing, transport_time,
		 realign_kind, realign_beat, realign_time, realign_quantum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		int64(c.Seq),
		string(c.Source),
		c.Tempo,
		c.BeatOrigin,
		c.TimeOrigin,
		c.IsPlaying,
		c.TransportTime,
		c.RealignKind,
		c.RealignBeat,
		c.RealignTime,
		c.RealignQuantum,
	)
	if err != nil {
		return "", fmt.Errorf("record commit: %w", err)
	}

	return c.ID, nil
}

// Prune keeps the newest keep commits and deletes the rest.
// Returns the number of deleted rows.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_commits
		WHERE pos NOT IN (
			SELECT pos FROM session_commits ORDER BY pos DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune commits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune commits: %w", err)
	}
	return n, nil
}
