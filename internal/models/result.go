package models

import "time"

// BatchProcessResult is the aggregate outcome of one batch run. It is built
// once when the run finishes and not modified afterwards.
type BatchProcessResult struct {
	RunID     string
	Processed int
	Failed    int
	Skipped   int
	// FailedPaths is sorted for stable reporting.
	FailedPaths []string
	Cancelled   bool

	TotalBatchDuration   time.Duration
	TotalSummaryDuration time.Duration
	SummaryCount         int
	TotalTokens          int

	AverageFileDuration    time.Duration
	AverageSummaryDuration time.Duration
}

// Total returns the number of files that reached a terminal outcome.
func (r *BatchProcessResult) Total() int {
	return r.Processed + r.Failed + r.Skipped
}

// ComputeAverages fills the derived per-file and per-summary averages.
func (r *BatchProcessResult) ComputeAverages() {
	r.AverageFileDuration = 0
	r.AverageSummaryDuration = 0
	if r.Processed > 0 {
		r.AverageFileDuration = r.TotalBatchDuration / time.Duration(r.Processed)
	}
	if r.SummaryCount > 0 {
		r.AverageSummaryDuration = r.TotalSummaryDuration / time.Duration(r.SummaryCount)
	}
}
