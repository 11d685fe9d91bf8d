package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"texforge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass for 1 byte minimum, got %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, 1<<62); result.Passed {
		t.Fatal("expected failure for an impossible minimum")
	}
}

func TestCheckReadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("sources: []"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadableFile("rules", path); !result.Passed {
		t.Fatalf("expected readable file, got %s", result.Detail)
	}
	if result := CheckReadableFile("rules", dir); result.Passed {
		t.Fatal("directory must not pass as a file")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_ReportsMissingDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.OutputDir = base
	cfg.Paths.WorkspaceDir = filepath.Join(base, "missing")
	cfg.Paths.StateDir = base

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	failed := map[string]bool{}
	for _, r := range Failed(results) {
		failed[r.Name] = true
	}
	if !failed["Workspace directory"] || failed["Output directory"] || failed["State directory"] {
		t.Fatalf("expected only the workspace directory to fail, got %+v", failed)
	}
}
