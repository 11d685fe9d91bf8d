package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/history"
	"texforge/internal/logging"
	"texforge/internal/notifications"
	"texforge/internal/preflight"
	"texforge/internal/rules"
	"texforge/internal/services"
	"texforge/internal/stage"
	"texforge/internal/stages"
	"texforge/internal/testsupport"
	"texforge/internal/workflow"
)

func TestMain(m *testing.M) {
	// Test temp filesystems are often small.
	preflight.MinFreeBytes = 0
	os.Exit(m.Run())
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithResolutions(map[string]int{"1K": 32}),
		testsupport.WithLowRes(false, 0),
	}, opts...)
	return testsupport.NewConfig(t, opts...)
}

// sourceDir creates an extracted source folder holding one colour map per
// asset name.
func sourceDir(t *testing.T, cfg *config.Config, name string, assets ...string) rules.SourceRule {
	t.Helper()
	dir := filepath.Join(testsupport.BaseDir(cfg), "sources", name)
	source := rules.SourceRule{InputPath: dir, SupplierIdentifier: "Poliigon"}
	for _, a := range assets {
		file := strings.ToLower(a) + "_col.png"
		testsupport.WriteImage(t, filepath.Join(dir, file), testsupport.Gradient(32, 32, 3, 8), "png", 8)
		source.Assets = append(source.Assets, rules.AssetRule{
			AssetName: a,
			Files:     []rules.FileRule{{FilePath: file, ItemType: rules.TypeColor}},
		})
	}
	return source
}

func newManager(cfg *config.Config, opts ...workflow.Option) *workflow.Manager {
	opts = append([]workflow.Option{workflow.WithClock(func() time.Time { return fixedNow })}, opts...)
	return workflow.NewManager(cfg, logging.NewNop(), opts...)
}

func TestRunIsolatesAssetFailures(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks")
	source.Assets = append(source.Assets, rules.AssetRule{
		AssetName: "Broken",
		Files:     []rules.FileRule{{FilePath: "missing_col.png", ItemType: rules.TypeColor}},
	})

	outcome, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Processed != 1 || outcome.Failed != 1 || outcome.Skipped != 0 {
		t.Fatalf("unexpected counts: %+v", outcome)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Asset != "Broken" {
		t.Fatalf("unexpected failures: %+v", outcome.Failures)
	}
	if !strings.Contains(outcome.Failures[0].Reason, "decode error") {
		t.Fatalf("failure reason %q should name the decode error", outcome.Failures[0].Reason)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Poliigon", "Bricks", "Bricks_COL_1K.png")); err != nil {
		t.Fatalf("sibling asset output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Poliigon", "Broken")); !os.IsNotExist(err) {
		t.Fatalf("failed asset should leave no output directory, stat err=%v", err)
	}
	if outcome.EncodedBytes <= 0 {
		t.Fatalf("expected encoded bytes to be counted")
	}
}

func TestRunCountsSkipsAndSupplierFailures(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks", "Stone")
	source.Assets[1].CommonMetadata = map[string]any{"process_status": "SKIP"}
	unknown := sourceDir(t, cfg, "mystery", "Wood")
	unknown.SupplierIdentifier = "NoSuchVendor"

	outcome, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source, unknown})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Processed != 1 || outcome.Skipped != 1 || outcome.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", outcome)
	}
	if outcome.Total() != 3 || outcome.Sources != 2 {
		t.Fatalf("unexpected totals: %+v", outcome)
	}
	if outcome.Failures[0].Asset != "Wood" || !strings.Contains(outcome.Failures[0].Reason, "supplier") {
		t.Fatalf("unexpected failure: %+v", outcome.Failures[0])
	}
}

func TestRunMissingSourceInputFailsItsAssets(t *testing.T) {
	cfg := newConfig(t)
	source := rules.SourceRule{
		InputPath:          filepath.Join(testsupport.BaseDir(cfg), "absent"),
		SupplierIdentifier: "Poliigon",
		Assets:             []rules.AssetRule{{AssetName: "Ghost"}},
	}

	outcome, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Failed != 1 || !strings.Contains(outcome.Failures[0].Reason, "validation error") {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := newConfig(t)
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	source := sourceDir(t, cfg, "delivery", "Bricks", "Stone")
	manager := newManager(cfg, workflow.WithRecorder(store), workflow.WithRulesFile("rules.yaml"))
	outcome, err := manager.Run(context.Background(), []rules.SourceRule{source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	runs, err := store.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != outcome.RunID || run.Status != history.RunCompleted || run.Processed != 2 || run.RulesFile != "rules.yaml" {
		t.Fatalf("unexpected run record: %+v", run)
	}
	results, err := store.AssetResults(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("AssetResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two asset results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != asset.StatusProcessed || r.OutputDir != "Poliigon/"+r.Asset {
			t.Fatalf("unexpected asset result: %+v", r)
		}
	}
}

func TestRunFailsWhileLibraryLocked(t *testing.T) {
	cfg := newConfig(t)
	lock, err := workflow.AcquireLibraryLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release()

	source := sourceDir(t, cfg, "delivery", "Bricks")
	outcome, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source})
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("expected setup error, got %v", err)
	}
	if outcome.Total() != 0 {
		t.Fatalf("no asset should run while locked: %+v", outcome)
	}
}

func TestAcquireLibraryLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "library.lock")
	first, err := workflow.AcquireLibraryLock(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := workflow.AcquireLibraryLock(path); err == nil {
		t.Fatalf("second acquire should fail while held")
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := workflow.AcquireLibraryLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestRunPreflightFailureIsFatal(t *testing.T) {
	cfg := newConfig(t)
	blocker := filepath.Join(testsupport.BaseDir(cfg), "not-a-dir")
	testsupport.WriteFile(t, blocker, 4)
	cfg.Paths.WorkspaceDir = blocker

	source := sourceDir(t, cfg, "delivery", "Bricks")
	_, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source})
	if !errors.Is(err, services.ErrSetup) || !services.IsFatal(err) {
		t.Fatalf("expected fatal setup error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Poliigon")); !os.IsNotExist(statErr) {
		t.Fatalf("no output expected after setup failure")
	}
}

func TestRunCancelledBeforeStartRunsNothing(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks", "Stone")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := newManager(cfg).Run(ctx, []rules.SourceRule{source})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if outcome.Total() != 0 || outcome.Cancelled != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestRunRemovesEngineTempDirectories(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks")
	if _, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries, err := os.ReadDir(cfg.Paths.WorkspaceDir)
	if err != nil {
		t.Fatalf("read workspace: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("engine temp directories left behind: %d", len(entries))
	}
}

func TestParallelAssetsGetDistinctIncrements(t *testing.T) {
	for _, parallelism := range []string{config.ParallelismAsset, config.ParallelismSource} {
		t.Run(parallelism, func(t *testing.T) {
			cfg := newConfig(t,
				testsupport.WithWorkers(4, parallelism),
				testsupport.WithConfig(func(c *config.Config) {
					c.Output.DirectoryPattern = "[supplier]/[####]_[assetname]"
				}),
			)
			var sources []rules.SourceRule
			for i := range 3 {
				sources = append(sources, sourceDir(t, cfg, fmt.Sprintf("delivery%d", i), fmt.Sprintf("A%d", i), fmt.Sprintf("B%d", i)))
			}

			var mu sync.Mutex
			var reported []string
			progress := func(r workflow.AssetReport) {
				mu.Lock()
				defer mu.Unlock()
				reported = append(reported, r.Asset)
			}
			outcome, err := newManager(cfg, workflow.WithProgress(progress)).Run(context.Background(), sources)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if outcome.Processed != 6 {
				t.Fatalf("expected six processed assets, got %+v", outcome)
			}
			if len(reported) != 6 {
				t.Fatalf("expected six progress reports, got %d", len(reported))
			}

			entries, err := os.ReadDir(filepath.Join(cfg.Paths.OutputDir, "Poliigon"))
			if err != nil {
				t.Fatalf("read library: %v", err)
			}
			var prefixes []string
			for _, e := range entries {
				prefixes = append(prefixes, strings.SplitN(e.Name(), "_", 2)[0])
			}
			sort.Strings(prefixes)
			want := "0000,0001,0002,0003,0004,0005"
			if strings.Join(prefixes, ",") != want {
				t.Fatalf("increments %v, want %s", prefixes, want)
			}
		})
	}
}

func TestRegroupedFilesJoinTargetAsset(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks", "Stray")
	source.Assets[1].Files[0].ItemType = rules.TypeRough
	source.Assets[1].Files[0].TargetAssetNameOverride = "Bricks"

	outcome, err := newManager(cfg).Run(context.Background(), []rules.SourceRule{source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Stray loses its only file and is skipped as empty.
	if outcome.Processed != 1 || outcome.Skipped != 1 {
		t.Fatalf("unexpected counts after regrouping: %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Poliigon", "Bricks", "Bricks_ROUGH_1K.png")); err != nil {
		t.Fatalf("regrouped rough map missing: %v", err)
	}
}

type recordingNotifier struct {
	completed []notifications.RunSummary
	aborted   []string
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, s notifications.RunSummary) error {
	n.completed = append(n.completed, s)
	return nil
}

func (n *recordingNotifier) NotifyRunAborted(_ context.Context, runID string, _ error) error {
	n.aborted = append(n.aborted, runID)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestRunNotifiesSummary(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks")
	source.Assets = append(source.Assets, rules.AssetRule{
		AssetName: "Broken",
		Files:     []rules.FileRule{{FilePath: "missing_col.png", ItemType: rules.TypeColor}},
	})
	notifier := &recordingNotifier{}

	outcome, err := newManager(cfg, workflow.WithNotifier(notifier)).Run(context.Background(), []rules.SourceRule{source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.completed) != 1 || len(notifier.aborted) != 0 {
		t.Fatalf("expected one completion notice, got %+v", notifier)
	}
	summary := notifier.completed[0]
	if summary.RunID != outcome.RunID || summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failures) != 1 || !strings.HasPrefix(summary.Failures[0], "Broken: ") {
		t.Fatalf("unexpected failure lines: %v", summary.Failures)
	}
}

func TestRunNotifiesAbort(t *testing.T) {
	cfg := newConfig(t)
	notifier := &recordingNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := sourceDir(t, cfg, "delivery", "Bricks")
	outcome, err := newManager(cfg, workflow.WithNotifier(notifier)).Run(ctx, []rules.SourceRule{source})
	if err == nil {
		t.Fatalf("expected cancelled run to return an error")
	}
	if len(notifier.aborted) != 1 || notifier.aborted[0] != outcome.RunID || len(notifier.completed) != 0 {
		t.Fatalf("expected one abort notice, got %+v", notifier)
	}
}

func TestRunRollsBackOutputWhenMetadataFails(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks")
	failingFinalize := func() []stage.Handler {
		handlers := stages.Default()
		for i, h := range handlers {
			if h.Name() == stages.NameFinalize {
				handlers[i] = stage.Func{StageName: stages.NameFinalize, Fn: func(context.Context, *asset.Context) error {
					return services.Wrap(services.ErrOutput, stages.NameFinalize, "write", "disk full", nil)
				}}
			}
		}
		return handlers
	}

	outcome, err := newManager(cfg, workflow.WithStages(failingFinalize)).Run(context.Background(), []rules.SourceRule{source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Failed != 1 {
		t.Fatalf("expected the asset to fail, got %+v", outcome)
	}
	assetDir := filepath.Join(cfg.Paths.OutputDir, "Poliigon", "Bricks")
	if _, err := os.Stat(filepath.Join(assetDir, "Bricks_COL_1K.png")); !os.IsNotExist(err) {
		t.Fatalf("placed map should be removed after finalize failure, stat err=%v", err)
	}
}

func TestRunReleasesDecodedImages(t *testing.T) {
	cfg := newConfig(t)
	source := sourceDir(t, cfg, "delivery", "Bricks")
	var captured *asset.Context
	capture := func() []stage.Handler {
		return append(stages.Default(), stage.Func{StageName: "capture", Fn: func(_ context.Context, ac *asset.Context) error {
			captured = ac
			return nil
		}})
	}

	if _, err := newManager(cfg, workflow.WithStages(capture)).Run(context.Background(), []rules.SourceRule{source}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if captured == nil || len(captured.Files) != 1 {
		t.Fatalf("expected the capture stage to see one map")
	}
	path := captured.Files[0].SourcePath
	if _, err := captured.Cache.Load(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := captured.Cache.DecodeCount(path); n != 2 {
		t.Fatalf("cache should be empty after the asset finished, decode count %d", n)
	}
}
