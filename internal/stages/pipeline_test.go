package stages_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/fileutil"
	"texforge/internal/imaging"
	"texforge/internal/rules"
	"texforge/internal/services"
	"texforge/internal/stages"
	"texforge/internal/testsupport"
)

// A colour map at the largest configured size yields one file per resolution
// and nothing above the source size.
func TestColorMapYieldsOneFilePerFittingResolution(t *testing.T) {
	f := newFixture(t,
		testsupport.WithResolutions(map[string]int{"4K": 64, "2K": 32}),
		testsupport.WithLowRes(true, 64),
	)
	path := f.image("bricks_col.png", testsupport.Gradient(64, 64, 3, 8), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
	})

	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	dir := f.assetDir("Poliigon", "Bricks")
	got := listFiles(t, dir)
	sort.Strings(got)
	want := []string{"Bricks_COL_2K.png", "Bricks_COL_4K.png", "Bricks_metadata.json"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected files: got %v want %v", got, want)
	}
	small := testsupport.ReadImage(t, filepath.Join(dir, "Bricks_COL_2K.png"))
	if small.Width != 32 || small.Height != 32 {
		t.Fatalf("2K variant is %dx%d, want 32x32", small.Width, small.Height)
	}
}

func TestSmallSourceGetsLowResVariantAtNativeSize(t *testing.T) {
	f := newFixture(t, testsupport.WithLowRes(true, 512))
	path := f.image("bricks_rough.png", testsupport.Uniform(300, 300, 8, 0.4), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeRough)},
	})

	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	lowres := filepath.Join(f.assetDir("Poliigon", "Bricks"), "Bricks_ROUGH_LOWRES.png")
	img := testsupport.ReadImage(t, lowres)
	if img.Width != 300 || img.Height != 300 {
		t.Fatalf("LOWRES variant is %dx%d, want 300x300", img.Width, img.Height)
	}
	var lowCount int
	for _, saved := range ac.Saved {
		if saved.ResolutionKey == config.LowResKey {
			lowCount++
		}
	}
	if lowCount != 1 {
		t.Fatalf("expected exactly one LOWRES variant, got %d", lowCount)
	}
}

func TestMergeFillsMissingInputWithDefault(t *testing.T) {
	f := newFixture(t,
		testsupport.WithResolutions(map[string]int{"1K": 16}),
		testsupport.WithMergeRule(config.MergeRule{
			OutputMapType: "MAP_ORM",
			Inputs:        map[string]string{"R": rules.TypeAO, "G": rules.TypeRough, "B": rules.TypeMetal},
			Defaults:      map[string]float64{"R": 1, "G": 0.5, "B": 0},
		}),
	)
	ao := f.image("ao.png", testsupport.Uniform(16, 16, 8, 0.8), "png", 8)
	rough := f.image("rough.png", testsupport.Uniform(16, 16, 8, 0.3), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files: []rules.FileRule{
			fileRule(ao, rules.TypeAO),
			fileRule(rough, rules.TypeRough),
		},
	})

	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	dir := f.assetDir("Poliigon", "Bricks")
	orm := testsupport.ReadImage(t, filepath.Join(dir, "Bricks_ORM_1K.png"))
	if orm.Channels() < 3 {
		t.Fatalf("merged map has %d channels", orm.Channels())
	}
	if !imaging.IsUniform(orm.Planes[2], 0, 1e-6) {
		t.Fatal("blue channel should be uniformly zero")
	}
	if !imaging.IsUniform(orm.Planes[0], 0.8, 1.0/255) || !imaging.IsUniform(orm.Planes[1], 0.3, 1.0/255) {
		t.Fatal("red and green channels should carry AO and roughness")
	}

	md, err := stages.ReadMetadata(filepath.Join(dir, stages.MetadataFileName("Bricks")))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	entry := md.Maps["ORM"]
	if entry == nil || !entry.Merged {
		t.Fatalf("expected merged ORM entry, got %+v", entry)
	}
	if strings.Join(entry.Inputs, ",") != "MAP_AO,MAP_ROUGH,default" {
		t.Fatalf("unexpected merge inputs: %v", entry.Inputs)
	}
	if entry.VariantPaths["1K"] != "Bricks_ORM_1K.png" {
		t.Fatalf("unexpected ORM variant paths: %v", entry.VariantPaths)
	}
}

func TestUnknownSupplierFailsAsset(t *testing.T) {
	f := newFixture(t)
	path := f.image("col.png", testsupport.Uniform(8, 8, 8, 0.5, 0.5, 0.5), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
	})
	ac.Source.SupplierIdentifier = "UnknownVendor"

	err := runAll(t, ac)
	if !errors.Is(err, services.ErrSupplier) {
		t.Fatalf("expected supplier error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("supplier errors must be asset-scoped")
	}
	if !strings.Contains(services.Reason(err), "UnknownVendor") {
		t.Fatalf("reason should name the supplier: %q", services.Reason(err))
	}
	if fileutil.Exists(f.assetDir("UnknownVendor", "Bricks")) {
		t.Fatal("failed asset must not write output")
	}
}

func TestSupplierOverrideWins(t *testing.T) {
	f := newFixture(t)
	path := f.image("col.png", testsupport.Uniform(8, 8, 8, 0.5, 0.5, 0.5), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
	})
	ac.Source.SupplierIdentifier = "UnknownVendor"
	ac.Source.SupplierOverride = "AmbientCG"

	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if ac.EffectiveSupplier != "AmbientCG" {
		t.Fatalf("unexpected supplier %q", ac.EffectiveSupplier)
	}
	if !fileutil.Exists(filepath.Join(f.assetDir("AmbientCG", "Bricks"), "Bricks_COL_LOWRES.png")) {
		t.Fatal("expected output under the override supplier")
	}
}

func TestSecondRunSkipsAndLeavesOutputUnchanged(t *testing.T) {
	f := newFixture(t, testsupport.WithResolutions(map[string]int{"1K": 16}))
	path := f.image("col.png", testsupport.Gradient(16, 16, 3, 8), "png", 8)
	assetRule := rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
	}

	first := f.context(assetRule)
	if err := runAll(t, first); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, err := fileutil.HashTree(f.cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("hash output: %v", err)
	}

	second := f.context(assetRule)
	if err := runAll(t, second); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.Skip {
		t.Fatal("second run should skip the asset")
	}
	if len(second.Saved) != 0 {
		t.Fatalf("skipped asset saved %d variants", len(second.Saved))
	}
	after, err := fileutil.HashTree(f.cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("hash output: %v", err)
	}
	if before != after {
		t.Fatal("output tree changed on skipped run")
	}
}

func TestOverwriteReprocessesExistingOutput(t *testing.T) {
	f := newFixture(t, testsupport.WithOverwrite(true))
	path := f.image("col.png", testsupport.Gradient(16, 16, 3, 8), "png", 8)
	assetRule := rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
	}
	for i := 0; i < 2; i++ {
		ac := f.context(assetRule)
		if err := runAll(t, ac); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if ac.Skip {
			t.Fatalf("run %d skipped with overwrite enabled", i)
		}
	}
}

func TestMarkersSkipAsset(t *testing.T) {
	tests := []struct {
		name      string
		marker    string
		overwrite bool
		wantSkip  bool
	}{
		{name: "skip marker", marker: "SKIP", wantSkip: true},
		{name: "skip marker with overwrite", marker: "skip", overwrite: true, wantSkip: true},
		{name: "processed marker", marker: "PROCESSED", wantSkip: true},
		{name: "processed marker with overwrite", marker: "PROCESSED", overwrite: true, wantSkip: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testsupport.WithOverwrite(tt.overwrite))
			path := f.image("col.png", testsupport.Uniform(8, 8, 8, 0.2, 0.3, 0.4), "png", 8)
			ac := f.context(rules.AssetRule{
				AssetName:      "Bricks",
				CommonMetadata: map[string]any{"process_status": tt.marker},
				Files:          []rules.FileRule{fileRule(path, rules.TypeColor)},
			})
			if err := runAll(t, ac); err != nil {
				t.Fatalf("pipeline: %v", err)
			}
			if ac.Skip != tt.wantSkip {
				t.Fatalf("skip = %v, want %v (reason %q)", ac.Skip, tt.wantSkip, ac.SkipReason)
			}
			wrote := fileutil.Exists(filepath.Join(f.assetDir("Poliigon", "Bricks"), stages.MetadataFileName("Bricks")))
			if wrote == tt.wantSkip {
				t.Fatalf("metadata written = %v for skip = %v", wrote, tt.wantSkip)
			}
		})
	}
}

func TestMissingSourceFailsWithDecodeError(t *testing.T) {
	f := newFixture(t)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule("missing_rough.png", rules.TypeRough)},
	})
	err := runAll(t, ac)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing_rough.png") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestMetadataDocument(t *testing.T) {
	f := newFixture(t, testsupport.WithResolutions(map[string]int{"1K": 16, "HALF": 8}))
	col := f.image("col.png", testsupport.Gradient(16, 16, 3, 8), "png", 8)
	if err := os.WriteFile(filepath.Join(f.workspace, "readme.txt"), []byte("license"), 0o644); err != nil {
		t.Fatal(err)
	}
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		AssetType: "Surface",
		CommonMetadata: map[string]any{
			"id":            "PL-1234",
			"tags":          []any{"brick", "wall"},
			"custom_fields": map[string]any{"license": "CC0"},
		},
		Files: []rules.FileRule{
			fileRule(col, rules.TypeColor),
			fileRule("readme.txt", rules.TypeExtra),
		},
	})
	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	dir := f.assetDir("Poliigon", "Bricks")
	raw, err := os.ReadFile(filepath.Join(dir, "Bricks_metadata.json"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if strings.Contains(string(raw), "FinalOutputFiles") || strings.Contains(string(raw), "final_output_files") {
		t.Fatal("internal output list must not be persisted")
	}
	md, err := stages.ReadMetadata(filepath.Join(dir, "Bricks_metadata.json"))
	if err != nil {
		t.Fatal(err)
	}
	if md.AssetID != "PL-1234" || md.AssetType != "Surface" || md.Supplier != "Poliigon" {
		t.Fatalf("unexpected identity: %+v", md)
	}
	if md.Status != asset.StatusProcessed || md.RunID != "run-test" || md.Version != asset.MetadataVersion {
		t.Fatalf("unexpected status fields: %+v", md)
	}
	if md.ProcessingStartTime != "2026-03-14T09:26:53Z" || md.ProcessingEndTime == "" {
		t.Fatalf("unexpected timestamps: %q %q", md.ProcessingStartTime, md.ProcessingEndTime)
	}
	if strings.Join(md.Tags, ",") != "brick,wall" || md.CustomFields["license"] != "CC0" {
		t.Fatalf("unexpected tags or custom fields: %v %v", md.Tags, md.CustomFields)
	}
	if md.OutputPath != "Poliigon/Bricks" {
		t.Fatalf("unexpected output path %q", md.OutputPath)
	}
	col1 := md.Maps["COL"]
	if col1 == nil || col1.VariantPaths["1K"] != "Bricks_COL_1K.png" || col1.VariantPaths["HALF"] != "Bricks_COL_HALF.png" {
		t.Fatalf("unexpected COL entry: %+v", col1)
	}
	if col1.SourceFile != "col.png" || col1.Width != 16 || col1.BitDepth != 8 {
		t.Fatalf("unexpected COL details: %+v", col1)
	}
	if len(md.ExtraFiles) != 1 || md.ExtraFiles[0] != "Extra/readme.txt" {
		t.Fatalf("unexpected extras: %v", md.ExtraFiles)
	}
	if !fileutil.Exists(filepath.Join(dir, "Extra", "readme.txt")) {
		t.Fatal("extra file was not copied")
	}
}

func TestIncrementingDirectoryPattern(t *testing.T) {
	f := newFixture(t, testsupport.WithConfig(func(cfg *config.Config) {
		cfg.Output.DirectoryPattern = "[supplier]/[####]_[assetname]"
	}))
	path := f.image("col.png", testsupport.Uniform(8, 8, 8, 0.1, 0.2, 0.3), "png", 8)

	for i, name := range []string{"Bricks", "Stone"} {
		ac := f.context(rules.AssetRule{
			AssetName: name,
			Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
		})
		if err := runAll(t, ac); err != nil {
			t.Fatalf("pipeline %s: %v", name, err)
		}
		want := []string{"Poliigon/0000_Bricks", "Poliigon/0001_Stone"}[i]
		if ac.OutputDir != want {
			t.Fatalf("asset %s placed in %q, want %q", name, ac.OutputDir, want)
		}
		if ac.Metadata.IncrementingValue != want[len("Poliigon/"):len("Poliigon/")+4] {
			t.Fatalf("unexpected incrementing value %q", ac.Metadata.IncrementingValue)
		}
	}
}

func TestSixteenBitEncodeFallsBack(t *testing.T) {
	f := newFixture(t,
		testsupport.WithResolutions(map[string]int{"1K": 8}),
		testsupport.WithLowRes(false, 0),
		testsupport.WithMergeRule(config.MergeRule{
			OutputMapType: "MAP_ORM",
			Inputs:        map[string]string{"R": rules.TypeAO},
			Defaults:      map[string]float64{"G": 0.5, "B": 0},
			BitDepth:      config.BitDepthForce16,
		}),
		testsupport.WithConfig(func(cfg *config.Config) {
			cfg.Output.Format16BitPrimary = config.FormatJPG
			cfg.Output.Format16BitFallback = config.FormatPNG
		}),
	)
	ao := f.image("ao.png", testsupport.Uniform(8, 8, 8, 0.6), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(ao, rules.TypeAO)},
	})
	if err := runAll(t, ac); err != nil {
		t.Fatalf("fallback must not fail the asset: %v", err)
	}

	var orm *asset.SavedVariant
	for i := range ac.Saved {
		if ac.Saved[i].MapType == "MAP_ORM" {
			orm = &ac.Saved[i]
		}
	}
	if orm == nil || orm.Format != config.FormatPNG || orm.BitDepth != 8 {
		t.Fatalf("unexpected fallback variant: %+v", orm)
	}
	notes := strings.Join(ac.Metadata.Maps["ORM"].Notes, "\n")
	if !strings.Contains(notes, "16-bit jpg encode failed") {
		t.Fatalf("fallback should be noted, got %q", notes)
	}
	if !fileutil.Exists(filepath.Join(f.assetDir("Poliigon", "Bricks"), "Bricks_ORM_1K.png")) {
		t.Fatal("fallback file not organized")
	}
}

func TestSHA5TokenInFilename(t *testing.T) {
	f := newFixture(t, testsupport.WithConfig(func(cfg *config.Config) {
		cfg.Output.FilenamePattern = "[assetname]_[sha5]_[maptype]_[resolution].[ext]"
	}))
	path := f.image("col.png", testsupport.Uniform(8, 8, 8, 0.1, 0.2, 0.3), "png", 8)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(path, rules.TypeColor)},
	})
	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	sum := ac.Metadata.SHA5
	if len(sum) != 5 || strings.Trim(sum, "0123456789abcdef") != "" {
		t.Fatalf("unexpected sha5 %q", sum)
	}
	want := "Bricks_" + sum + "_COL_LOWRES.png"
	if got := ac.Metadata.Maps["COL"].VariantPaths[config.LowResKey]; got != want {
		t.Fatalf("variant name = %q, want %q", got, want)
	}
}

func TestMetadataKeepsSourceBitDepth(t *testing.T) {
	f := newFixture(t,
		testsupport.WithResolutions(map[string]int{"1K": 32}),
		testsupport.WithLowRes(false, 0),
	)
	spec := f.image("spec.png", testsupport.Gradient(32, 32, 1, 16), "png", 16)
	ac := f.context(rules.AssetRule{
		AssetName: "Bricks",
		Files:     []rules.FileRule{fileRule(spec, rules.TypeSpecular)},
	})
	if err := runAll(t, ac); err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	md, err := stages.ReadMetadata(filepath.Join(f.assetDir("Poliigon", "Bricks"), "Bricks_metadata.json"))
	if err != nil {
		t.Fatal(err)
	}
	entry := md.Maps["SPEC"]
	if entry == nil || entry.SourceBitDepth != 16 || entry.BitDepth != 8 {
		t.Fatalf("expected 16-bit source written at 8 bits, got %+v", entry)
	}
}
