package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/history"
	"texforge/internal/logging"
	"texforge/internal/rules"
	"texforge/internal/services"
	"texforge/internal/stageexec"
	"texforge/internal/staging"
	"texforge/internal/textutil"
)

// preparedSource is one regrouped source rule with its engine temp
// directory. reports and started are indexed by asset position and each slot
// is written by exactly one worker.
type preparedSource struct {
	rule      rules.SourceRule
	workspace string
	tempDir   string
	inputErr  error
	reports   []AssetReport
	started   []bool
}

// workUnit is the smallest piece of work handed to a worker: one asset, or
// every asset of a source when parallelism is per source.
type workUnit struct {
	src    *preparedSource
	assets []int
}

// Run processes every asset of sources and returns the aggregated outcome.
// The error is non-nil for setup failures, a fatal stage error, or
// cancellation; asset-scoped failures are only reported in the outcome.
func (m *Manager) Run(ctx context.Context, sources []rules.SourceRule) (RunOutcome, error) {
	if m.cfg == nil {
		return RunOutcome{}, services.Wrap(services.ErrConfiguration, "workflow", "run", "configuration is required", nil)
	}
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)
	started := time.Now()
	outcome := RunOutcome{RunID: runID, Sources: len(sources)}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("sources", len(sources)),
		logging.Int("workers", m.cfg.Processing.Workers),
		logging.String("parallelism", m.cfg.Processing.Parallelism),
	)

	if err := m.runPreflightChecks(ctx, logger); err != nil {
		return outcome, err
	}
	lock, err := AcquireLibraryLock(m.cfg.LockPath())
	if err != nil {
		logging.ErrorWithContext(logger, "library lock unavailable", "library_locked",
			logging.String("lock_path", m.cfg.LockPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the other run to finish"),
		)
		return outcome, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(logger, "failed to release library lock", "library_unlock_failed",
				logging.String("lock_path", lock.Path()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "lock released when the process exits"),
			)
		}
	}()

	staging.CleanStale(ctx, m.cfg.Paths.WorkspaceDir, staging.DefaultMaxAge, logger)
	m.beginRun(ctx, logger, history.Run{
		ID:        runID,
		RulesFile: m.rulesFile,
		StartedAt: started,
		Status:    history.RunRunning,
		Sources:   len(sources),
	})

	prepared, err := m.prepareSources(runID, sources)
	defer func() {
		for _, src := range prepared {
			staging.RemoveRunDir(src.tempDir, logger)
		}
	}()
	if err != nil {
		outcome.Duration = time.Since(started)
		logging.ErrorWithContext(logger, "run setup failed", "run_setup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.workspace_dir permissions and free space"),
		)
		m.finishRun(ctx, logger, outcome, err)
		m.notifyRunEnd(ctx, logger, outcome, err)
		return outcome, err
	}

	runErr := m.dispatch(ctx, logger, runID, prepared)
	aggregate(&outcome, prepared)
	outcome.Duration = time.Since(started)
	m.finishRun(ctx, logger, outcome, runErr)
	logSummary(logger, outcome, runErr)
	m.notifyRunEnd(ctx, logger, outcome, runErr)
	return outcome, runErr
}

func (m *Manager) prepareSources(runID string, sources []rules.SourceRule) ([]*preparedSource, error) {
	prepared := make([]*preparedSource, 0, len(sources))
	for i := range sources {
		rule := rules.Regroup(sources[i])
		src := &preparedSource{
			rule:      rule,
			workspace: rule.InputPath,
			inputErr:  checkSourceInput(rule.InputPath),
			reports:   make([]AssetReport, len(rule.Assets)),
			started:   make([]bool, len(rule.Assets)),
		}
		label := textutil.SanitizeFileName(filepath.Base(rule.InputPath))
		dir, err := staging.CreateRunDir(m.cfg.Paths.WorkspaceDir, runID, label)
		if err != nil {
			return prepared, services.Wrap(services.ErrSetup, "workflow", "create engine temp directory", rule.InputPath, err)
		}
		src.tempDir = dir
		prepared = append(prepared, src)
	}
	return prepared, nil
}

// checkSourceInput requires an extracted source folder.
func checkSourceInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "workflow", "source input", path, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "workflow", "source input", path+" is not a directory; extract archives before processing", nil)
	}
	return nil
}

func (m *Manager) workUnits(prepared []*preparedSource) []workUnit {
	var units []workUnit
	for _, src := range prepared {
		n := len(src.rule.Assets)
		if n == 0 {
			continue
		}
		if m.cfg.Processing.Parallelism == config.ParallelismSource {
			all := make([]int, n)
			for i := range all {
				all[i] = i
			}
			units = append(units, workUnit{src: src, assets: all})
			continue
		}
		for i := range n {
			units = append(units, workUnit{src: src, assets: []int{i}})
		}
	}
	return units
}

// dispatch feeds work units to the worker pool. Cancelling ctx or a fatal
// asset error stops new assets from starting; assets already running finish.
func (m *Manager) dispatch(ctx context.Context, logger *slog.Logger, runID string, prepared []*preparedSource) error {
	units := m.workUnits(prepared)
	workers := max(1, min(m.cfg.Processing.Workers, len(units)))
	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	queue := make(chan workUnit)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range queue {
				for _, idx := range unit.assets {
					if runCtx.Err() != nil {
						break
					}
					report, fatal := m.processAsset(runCtx, runID, unit.src, idx)
					unit.src.reports[idx] = report
					unit.src.started[idx] = true
					m.report(runCtx, logger, runID, report)
					if fatal != nil {
						abort(fatal)
					}
				}
			}
		}()
	}

feed:
	for _, unit := range units {
		select {
		case <-runCtx.Done():
			break feed
		case queue <- unit:
		}
	}
	close(queue)
	wg.Wait()

	return context.Cause(runCtx)
}

// processAsset runs the stage list for one asset. The returned error is set
// only for fatal failures.
func (m *Manager) processAsset(ctx context.Context, runID string, src *preparedSource, idx int) (AssetReport, error) {
	rule := src.rule.Assets[idx].Clone()
	report := AssetReport{Source: src.rule.InputPath, Asset: rule.AssetName}
	actx := services.WithAsset(services.WithSource(ctx, src.rule.InputPath), rule.AssetName)
	logger := logging.WithContext(actx, m.logger)
	started := time.Now()

	if src.inputErr != nil {
		report.Status = asset.StatusFailed
		report.Reason = classifyFailure(src.inputErr)
		logAssetOutcome(logger, report, src.inputErr)
		return report, nil
	}

	ac := asset.New(&src.rule, &rule, m.cfg.Clone(), src.workspace, src.tempDir, runID)
	if m.now != nil {
		ac.Now = m.now
	}
	// In-flight assets always run to completion.
	err := stageexec.RunAll(context.WithoutCancel(actx), logger, m.stages(), ac)
	ac.Cache.Release()
	if err != nil && len(ac.Placed) > 0 {
		m.discardPlaced(logger, ac)
	}

	report.Duration = time.Since(started)
	report.EncodedBytes = encodedBytes(ac.Saved)
	switch {
	case err != nil:
		report.Status = asset.StatusFailed
		report.Reason = classifyFailure(err)
	case ac.Skip:
		report.Status = asset.StatusSkipped
		report.Reason = ac.SkipReason
	default:
		report.Status = asset.StatusProcessed
		report.OutputDir = ac.OutputDir
	}
	staging.RemoveRunDir(filepath.Join(ac.EngineTempDir, textutil.SanitizeFileName(ac.Name())), logger)
	logAssetOutcome(logger, report, err)

	if err != nil && services.IsFatal(err) {
		return report, err
	}
	return report, nil
}

// report persists and publishes one asset outcome. Calls are serialized so
// progress callbacks never run concurrently.
func (m *Manager) report(ctx context.Context, logger *slog.Logger, runID string, r AssetReport) {
	m.reportMu.Lock()
	defer m.reportMu.Unlock()
	if m.recorder != nil {
		err := m.recorder.RecordAsset(context.WithoutCancel(ctx), history.AssetResult{
			RunID:     runID,
			Source:    r.Source,
			Asset:     r.Asset,
			Status:    r.Status,
			Reason:    r.Reason,
			OutputDir: r.OutputDir,
			Duration:  r.Duration,
		})
		if err != nil {
			logging.WarnWithContext(logger, "failed to record asset outcome", "history_write_failed",
				logging.String(logging.FieldAsset, r.Asset),
				logging.Error(err),
				logging.String(logging.FieldImpact, "run history incomplete"),
			)
		}
	}
	if m.progress != nil {
		m.progress(r)
	}
}

func encodedBytes(saved []asset.SavedVariant) int64 {
	var total int64
	for _, s := range saved {
		if info, err := os.Stat(s.TempPath); err == nil {
			total += info.Size()
		}
	}
	return total
}

func aggregate(outcome *RunOutcome, prepared []*preparedSource) {
	for _, src := range prepared {
		for i, report := range src.reports {
			if !src.started[i] {
				outcome.Cancelled++
				continue
			}
			outcome.Assets = append(outcome.Assets, report)
			outcome.EncodedBytes += report.EncodedBytes
			switch report.Status {
			case asset.StatusProcessed:
				outcome.Processed++
			case asset.StatusSkipped:
				outcome.Skipped++
			default:
				outcome.Failed++
				outcome.Failures = append(outcome.Failures, AssetFailure{Source: report.Source, Asset: report.Asset, Reason: report.Reason})
			}
		}
	}
}
