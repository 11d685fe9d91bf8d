package history

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID         string
	RulesFile  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Sources    int
	Processed  int
	Skipped    int
	Failed     int
	Error      string
}

// Duration returns the run's wall time, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// AssetResult is the outcome of one asset within a run.
type AssetResult struct {
	RunID      string
	Source     string
	Asset      string
	Status     string
	Reason     string
	OutputDir  string
	Duration   time.Duration
	RecordedAt time.Time
}
