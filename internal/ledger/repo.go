package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/models"
)

// RunRow describes one batch run.
type RunRow struct {
	ID        string
	Input     string
	DryRun    bool
	StartedAt time.Time
}

// ItemRow is the ledger view of a finished QueueItem.
type ItemRow struct {
	RunID     string
	Index     int
	Path      string
	Status    string
	Stage     string
	Skipped   bool
	ErrorKind string
	Error     string
	NotePath  string
	Checksum  string
	Duration  time.Duration
	Summary   time.Duration
	Tokens    int
}

// RowFromItem converts a queue item. checksum is the digest of the written
// note, if any.
func RowFromItem(runID string, item *models.QueueItem, checksum string) ItemRow {
	row := ItemRow{
		RunID:    runID,
		Index:    item.Index,
		Path:     item.Path,
		Status:   item.Status.String(),
		Stage:    item.Stage.String(),
		Skipped:  item.Skipped,
		NotePath: item.NotePath,
		Checksum: checksum,
		Duration: item.Duration(),
		Summary:  item.SummaryDuration,
		Tokens:   item.Tokens,
	}
	if item.Err != nil {
		row.ErrorKind = apperr.KindOf(item.Err)
		row.Error = item.Err.Error()
	}
	return row
}

// StartRun inserts a run.
func (db *DB) StartRun(ctx context.Context, run RunRow) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs (id, input, dry_run, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Input, run.DryRun, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("ledger: start run: %w", err)
	}
	return nil
}

// Record inserts or replaces the row for (run, path).
func (db *DB) Record(ctx context.Context, r ItemRow) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO items (run_id, idx, path, status, stage, skipped, error_kind, error,
			note_path, checksum, duration_ms, summary_ms, tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET
			idx         = excluded.idx,
			status      = excluded.status,
			stage       = excluded.stage,
			skipped     = excluded.skipped,
			error_kind  = excluded.error_kind,
			error       = excluded.error,
			note_path   = excluded.note_path,
			checksum    = excluded.checksum,
			duration_ms = excluded.duration_ms,
			summary_ms  = excluded.summary_ms,
			tokens      = excluded.tokens
	`, r.RunID, r.Index, r.Path, r.Status, r.Stage, r.Skipped, r.ErrorKind, r.Error,
		r.NotePath, r.Checksum, r.Duration.Milliseconds(), r.Summary.Milliseconds(), r.Tokens)
	if err != nil {
		return fmt.Errorf("ledger: record %s: %w", r.Path, err)
	}
	return nil
}

// FailuresByStage counts failed items of a run per failing stage.
func (db *DB) FailuresByStage(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT stage, COUNT(*) FROM items WHERE run_id = ? AND status = ? GROUP BY stage`,
		runID, models.StatusFailed.String())
	if err != nil {
		return nil, fmt.Errorf("ledger: failures by stage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			stage string
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		out[stage] = n
	}
	return out, rows.Err()
}

// Items returns every row of a run ordered by index.
func (db *DB) Items(ctx context.Context, runID string) ([]ItemRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT idx, path, status, stage, skipped, error_kind, error, note_path, checksum,
			duration_ms, summary_ms, tokens
		FROM items WHERE run_id = ? ORDER BY idx, path`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: items: %w", err)
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		r := ItemRow{RunID: runID}
		var durMS, sumMS int64
		if err := rows.Scan(&r.Index, &r.Path, &r.Status, &r.Stage, &r.Skipped, &r.ErrorKind,
			&r.Error, &r.NotePath, &r.Checksum, &durMS, &sumMS, &r.Tokens); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.Summary = time.Duration(sumMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
