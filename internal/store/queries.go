package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/snaprotate/internal/rotator"
)

// Run operations

// RecordRun stores a pass report and its actions in one transaction and
// returns the generated run ID.
func (s *Store) RecordRun(report *rotator.Report) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, dry_run, subvolume_count, failed_count)
		VALUES (?, ?, ?, ?, ?)
	`,
		id,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.DryRun,
		report.Processed(),
		report.Failed(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", wrapNotInitialized(err))
	}

	stmt, err := tx.Prepare(`
		INSERT INTO actions (run_id, subvolume, class, action, snapshot, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare action insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range actionsFromReport(id, report) {
		if _, err := stmt.Exec(a.RunID, a.Subvolume, a.Class, a.Action, a.Snapshot, a.Error); err != nil {
			return "", fmt.Errorf("failed to insert action for %s: %w", a.Subvolume, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run %s: %w", id, err)
	}

	return id, nil
}

func actionsFromReport(runID string, report *rotator.Report) []Action {
	var actions []Action
	for _, sv := range report.Subvolumes {
		if sv.Err != nil {
			actions = append(actions, Action{RunID: runID, Subvolume: sv.Path, Action: ActionError, Error: sv.Err.Error()})
		}
		for _, c := range sv.Classes {
			class := c.Class.Tag()
			if c.Created != "" {
				actions = append(actions, Action{RunID: runID, Subvolume: sv.Path, Class: class, Action: ActionCreate, Snapshot: c.Created})
			}
			for _, name := range c.Deleted {
				actions = append(actions, Action{RunID: runID, Subvolume: sv.Path, Class: class, Action: ActionDelete, Snapshot: name})
			}
			if c.Err != nil {
				actions = append(actions, Action{RunID: runID, Subvolume: sv.Path, Class: class, Action: ActionError, Error: c.Err.Error()})
			}
		}
	}
	return actions
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT r.id, r.started_at, r.dry_run, r.subvolume_count, r.failed_count,
		       COALESCE(SUM(a.action = 'create'), 0),
		       COALESCE(SUM(a.action = 'delete'), 0),
		       COALESCE(SUM(a.action = 'error'), 0)
		FROM runs r
		LEFT JOIN actions a ON a.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", wrapNotInitialized(err))
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string

		err := rows.Scan(
			&run.ID,
			&startedAt,
			&run.DryRun,
			&run.SubvolumeCount,
			&run.FailedCount,
			&run.Created,
			&run.Deleted,
			&run.Errors,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRunActions returns the actions of a run in the order they happened.
func (s *Store) GetRunActions(runID string) ([]*Action, error) {
	query := `
		SELECT run_id, subvolume, COALESCE(class, ''), action, COALESCE(snapshot, ''), COALESCE(error, '')
		FROM actions
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actions for run %s: %w", runID, wrapNotInitialized(err))
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.RunID, &a.Subvolume, &a.Class, &a.Action, &a.Snapshot, &a.Error); err != nil {
			return nil, fmt.Errorf("failed to scan action row: %w", err)
		}
		actions = append(actions, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}

	return actions, nil
}

// FindRun resolves a full run ID or a unique prefix of one.
func (s *Store) FindRun(prefix string) (string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up run %s: %w", prefix, wrapNotInitialized(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("run %s not found", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run prefix %s is ambiguous", prefix)
	}
}

// DeleteRunsBefore removes runs (and their actions) started before cutoff.
func (s *Store) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", wrapNotInitialized(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return n, nil
}
