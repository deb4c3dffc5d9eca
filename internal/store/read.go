package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const commitColumns = `id, seq, source, tempo, beat_origin, time_origin, is_playing, transport_time,
	realign_kind, realign_beat, realign_time, realign_quantum`

// ListFilter narrows ListCommits.
type ListFilter struct {
	// Source limits results to one commit path. Empty means all.
	Source Source

	// Limit keeps only the newest Limit commits. Zero or negative means all.
	Limit int
}

// ListCommits returns journaled commits oldest first.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListCommits(ctx context.Context, f ListFilter) ([]Commit, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	// Select newest first to apply the limit, then flip.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+` FROM (
			SELECT pos, `+commitColumns+`
			FROM session_commits
			WHERE (? = '' OR source = ?)
			ORDER BY pos DESC
			LIMIT ?
		)
		ORDER BY pos ASC
	`, string(f.Source), string(f.Source), limit)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	return commits, nil
}

// LatestCommit returns the most recently recorded commit.
// The boolean is false when the journal is empty.
func (s *Store) LatestCommit(ctx context.Context) (Commit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+commitColumns+`
		FROM session_commits
		ORDER BY pos DESC
		LIMIT 1
	`)
	c, err := scanCommit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Commit{}, false, nil
	}
	if err != nil {
		return Commit{}, false, err
	}
	return c, true, nil
}

// CountCommits returns the number of journaled commits.
func (s *Store) CountCommits(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_commits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count commits: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommit(row scanner) (Commit, error) {
	var (
		c      Commit
		seq    int64
		source string
	)
	err := row.Scan(
		&c.ID,
		&seq,
		&source,
		&c.Tempo,
		&c.BeatOrigin,
		&c.TimeOrigin,
		&c.IsPlaying,
		&c.TransportTime,
		&c.RealignKind,
		&c.RealignBeat,
		&c.RealignTime,
		&c.RealignQuantum,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Commit{}, err
	}
	if err != nil {
		return Commit{}, fmt.Errorf("scan commit: %w", err)
	}
	c.Seq = uint64(seq)
	c.Source = Source(source)
	return c, nil
}
