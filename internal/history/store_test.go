package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := store.BeginRun(ctx, Run{ID: "run-1", RulesFile: "rules.yaml", StartedAt: started, Sources: 2}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	for _, r := range []AssetResult{
		{RunID: "run-1", Source: "a.zip", Asset: "Bricks", Status: "Processed", OutputDir: "Poliigon/Bricks", Duration: 1500 * time.Millisecond},
		{RunID: "run-1", Source: "b.zip", Asset: "Wood", Status: "Failed", Reason: "decode error: corrupt"},
	} {
		if err := store.RecordAsset(ctx, r); err != nil {
			t.Fatalf("RecordAsset: %v", err)
		}
	}
	finished := started.Add(time.Minute)
	if err := store.FinishRun(ctx, Run{ID: "run-1", Status: RunCompleted, Sources: 2, Processed: 1, Failed: 1, FinishedAt: &finished}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != RunCompleted || run.Processed != 1 || run.Failed != 1 || run.RulesFile != "rules.yaml" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Duration() != time.Minute {
		t.Fatalf("unexpected duration %s", run.Duration())
	}

	results, err := store.AssetResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("AssetResults: %v", err)
	}
	if len(results) != 2 || results[0].Asset != "Bricks" || results[1].Reason != "decode error: corrupt" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %s", results[0].Duration)
	}
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.BeginRun(ctx, Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[0].FinishedAt != nil || runs[0].Status != RunRunning {
		t.Fatalf("unfinished run should be running, got %+v", runs[0])
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := openTestStore(t)
	if err := store.FinishRun(context.Background(), Run{ID: "missing", Status: RunAborted}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.BeginRun(context.Background(), Run{ID: "keep"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v %v", runs, err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
