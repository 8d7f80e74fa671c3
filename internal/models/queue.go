package models

import (
	"fmt"
	"time"
)

// Status is the coarse processing state of a QueueItem.
type Status int

const (
	StatusWaiting Status = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage is the pipeline step a QueueItem has reached.
type Stage int

const (
	StageNotStarted Stage = iota
	StageContentExtraction
	StageSummaryGeneration
	StageNoteAssembly
	StageShareLinkGeneration
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not_started"
	case StageContentExtraction:
		return "content_extraction"
	case StageSummaryGeneration:
		return "summary_generation"
	case StageNoteAssembly:
		return "note_assembly"
	case StageShareLinkGeneration:
		return "share_link_generation"
	case StageCompleted:
		return "completed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// QueueItem is one file's processing record. It is created at enumeration
// and mutated only by the worker that handles it.
type QueueItem struct {
	Index int
	Path  string

	Status Status
	Stage  Stage
	Err    error

	// Skipped is set when an existing note was left untouched.
	Skipped bool
	// NotePath is the vault-relative path of the produced note.
	NotePath string

	StartedAt  time.Time
	FinishedAt time.Time
	// Summarized is set once the summarizer returned a summary.
	Summarized      bool
	SummaryDuration time.Duration
	Tokens          int
}

// NewQueueItem returns a waiting item for path.
func NewQueueItem(index int, path string) *QueueItem {
	return &QueueItem{Index: index, Path: path}
}

// Start moves a waiting item into processing.
func (q *QueueItem) Start(now time.Time) error {
	if q.Status != StatusWaiting {
		return fmt.Errorf("queue item %s: cannot start from %s", q.Path, q.Status)
	}
	q.Status = StatusProcessing
	q.StartedAt = now
	return nil
}

// Advance moves the item to a later stage. Stages never move backwards and
// terminal items cannot advance.
func (q *QueueItem) Advance(stage Stage) error {
	if q.Status.Terminal() {
		return fmt.Errorf("queue item %s: already %s", q.Path, q.Status)
	}
	if stage <= q.Stage {
		return fmt.Errorf("queue item %s: cannot move from %s to %s", q.Path, q.Stage, stage)
	}
	q.Stage = stage
	return nil
}

// Complete advances to StageCompleted and marks the item completed.
func (q *QueueItem) Complete(now time.Time) error {
	if err := q.Advance(StageCompleted); err != nil {
		return err
	}
	q.Status = StatusCompleted
	q.FinishedAt = now
	return nil
}

// Fail marks a non-terminal item failed. Stage stays at the step that failed.
func (q *QueueItem) Fail(err error, now time.Time) {
	if q.Status.Terminal() {
		return
	}
	q.Status = StatusFailed
	q.Err = err
	q.FinishedAt = now
}

// Duration returns the wall-clock time the item spent processing.
func (q *QueueItem) Duration() time.Duration {
	if q.StartedAt.IsZero() || q.FinishedAt.IsZero() {
		return 0
	}
	return q.FinishedAt.Sub(q.StartedAt)
}
