package workflow

import (
	"context"
	"time"

	"texforge/internal/history"
)

// AssetFailure is one failed asset and the reason shown in the run summary.
type AssetFailure struct {
	Source string
	Asset  string
	Reason string
}

// AssetReport is the outcome of one asset. Status is one of the asset
// metadata statuses (Processed, Skipped, Failed).
type AssetReport struct {
	Source       string
	Asset        string
	Status       string
	Reason       string
	OutputDir    string
	EncodedBytes int64
	Duration     time.Duration
}

// RunOutcome aggregates the per-asset results of one run.
type RunOutcome struct {
	RunID     string
	Sources   int
	Processed int
	Skipped   int
	Failed    int
	// Cancelled counts assets never started because the run was cancelled.
	Cancelled    int
	Failures     []AssetFailure
	Assets       []AssetReport
	EncodedBytes int64
	Duration     time.Duration
}

// Total returns the number of assets that reached a terminal status.
func (o RunOutcome) Total() int {
	return o.Processed + o.Skipped + o.Failed
}

// Recorder persists run and asset outcomes. *history.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, run history.Run) error
	RecordAsset(ctx context.Context, result history.AssetResult) error
	FinishRun(ctx context.Context, run history.Run) error
}
