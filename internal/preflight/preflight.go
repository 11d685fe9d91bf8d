package preflight

import (
	"context"

	"texforge/internal/config"
)

// MinFreeBytes is the free space required on the output filesystem.
var MinFreeBytes uint64 = 512 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if results[0].Passed {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinFreeBytes))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
