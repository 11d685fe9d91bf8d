package stages_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/imaging"
	"texforge/internal/logging"
	"texforge/internal/rules"
	"texforge/internal/stageexec"
	"texforge/internal/stages"
	"texforge/internal/testsupport"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type fixture struct {
	t         *testing.T
	cfg       *config.Config
	workspace string
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	workspace := filepath.Join(testsupport.BaseDir(cfg), "source")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatalf("mkdir workspace: %v", err)
	}
	return &fixture{t: t, cfg: cfg, workspace: workspace}
}

// image writes img into the source workspace and returns its rule path.
func (f *fixture) image(name string, img *imaging.Image, format string, depth int) string {
	f.t.Helper()
	testsupport.WriteImage(f.t, filepath.Join(f.workspace, name), img, format, depth)
	return name
}

func (f *fixture) context(assetRule rules.AssetRule) *asset.Context {
	f.t.Helper()
	source := &rules.SourceRule{
		InputPath:          f.workspace,
		SupplierIdentifier: "Poliigon",
		Assets:             []rules.AssetRule{assetRule},
	}
	ac := asset.New(source, &source.Assets[0], f.cfg, f.workspace, f.t.TempDir(), "run-test")
	ac.Now = func() time.Time { return fixedNow }
	return ac
}

func (f *fixture) assetDir(supplier, name string) string {
	return filepath.Join(f.cfg.Paths.OutputDir, supplier, name)
}

func runAll(t *testing.T, ac *asset.Context) error {
	t.Helper()
	return stageexec.RunAll(context.Background(), logging.NewNop(), stages.Default(), ac)
}

// runUntil executes the default pipeline up to and including the named stage.
func runUntil(t *testing.T, ac *asset.Context, last string) {
	t.Helper()
	for _, h := range stages.Default() {
		if err := stageexec.Run(context.Background(), stageexec.Options{Logger: logging.NewNop(), Handler: h, Asset: ac}); err != nil {
			t.Fatalf("stage %s: %v", h.Name(), err)
		}
		if h.Name() == last {
			return
		}
	}
	t.Fatalf("stage %s not found", last)
}

func fileRule(path, itemType string) rules.FileRule {
	return rules.FileRule{FilePath: path, ItemType: itemType}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func itemsFor(ac *asset.Context, mapType string) []*asset.ProcessingItem {
	var out []*asset.ProcessingItem
	for _, item := range ac.Items {
		if item.MapType == mapType {
			out = append(out, item)
		}
	}
	return out
}
