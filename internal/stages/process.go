package stages

import (
	"context"
	"fmt"
	"path/filepath"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/imaging"
	"texforge/internal/logging"
	"texforge/internal/services"
	"texforge/internal/textutil"
)

// ProcessItems is the core loop: every item is transformed (merge items are
// merged here), scaled into its variants, and saved into the engine temp
// directory. Items run strictly in order.
type ProcessItems struct {
	base
}

// NewProcessItems constructs the core loop stage.
func NewProcessItems() *ProcessItems { return &ProcessItems{} }

// Name returns the stage name.
func (p *ProcessItems) Name() string { return NameCoreLoop }

// Execute processes ac.Items and appends to ac.Saved.
func (p *ProcessItems) Execute(_ context.Context, ac *asset.Context) error {
	for _, item := range ac.Items {
		if err := p.transform(ac, item); err != nil {
			return err
		}
		Scale(ac.Config, item)
		if err := p.save(ac, item); err != nil {
			return err
		}
	}
	return nil
}

// transform synthesizes merge items. Source-level transforms already ran
// before explosion, so regular items only carry their effective map type.
func (p *ProcessItems) transform(ac *asset.Context, item *asset.ProcessingItem) error {
	if !item.IsMerge() {
		return nil
	}
	merged, err := Merge(ac, item.Merge.Rule)
	if err != nil {
		return err
	}
	item.Merged = merged
	item.OriginalWidth = merged.Image.Width
	item.OriginalHeight = merged.Image.Height
	item.SourceBitDepth = merged.BitDepth

	entry := mapEntry(ac, merged.MapType)
	entry.Merged = true
	entry.Inputs = merged.Inputs
	entry.Width = merged.Image.Width
	entry.Height = merged.Image.Height
	entry.SourceBitDepth = merged.BitDepth
	for _, note := range merged.Notes {
		entry.AddNote(note)
	}
	p.log().Info(
		"merge completed",
		logging.String(logging.FieldEventType, "merge_completed"),
		logging.String(logging.FieldMapType, merged.MapType),
		logging.Strings("inputs", merged.Inputs),
		logging.Int("bit_depth", merged.BitDepth),
		logging.String("dimensions", fmt.Sprintf("%dx%d", merged.Image.Width, merged.Image.Height)),
		logging.String("dimension_policy", item.Merge.Rule.DimensionPolicy),
	)
	return nil
}

// Scale fills item.Variants. Regular items yield one variant for their
// resolution key; merged items fan out to every resolution that fits the
// merged image, plus LOWRES under the same policy as source maps. LOWRES
// keeps native dimensions, and scaling never upscales. A variant whose
// target equals the source size shares the source image.
func Scale(cfg *config.Config, item *asset.ProcessingItem) {
	if item.IsMerge() {
		if item.Merged == nil {
			return
		}
		src := item.Merged.Image
		maxDim := src.MaxDim()
		for _, res := range cfg.SortedResolutions() {
			if res.Size <= maxDim {
				item.Variants = append(item.Variants, asset.Variant{ResolutionKey: res.Key, Image: scaleTo(cfg, src, res.Size)})
			}
		}
		if lowResEligible(cfg, maxDim) {
			item.Variants = append(item.Variants, asset.Variant{ResolutionKey: config.LowResKey, Image: src})
		}
		return
	}
	if item.IsLowRes() {
		item.Variants = []asset.Variant{{ResolutionKey: item.ResolutionKey, Image: item.Image}}
		return
	}
	item.Variants = []asset.Variant{{ResolutionKey: item.ResolutionKey, Image: scaleTo(cfg, item.Image, item.TargetSize)}}
}

func scaleTo(cfg *config.Config, src *imaging.Image, size int) *imaging.Image {
	w, h := imaging.TargetDimensions(src.Width, src.Height, size)
	if cfg.Processing.PotMode == config.PotModeDownscale {
		w, h = imaging.PowerOfTwoDimensions(w, h)
	}
	if w == src.Width && h == src.Height {
		return src
	}
	return imaging.Resize(src, w, h, cfg.Processing.Interpolation)
}

// save encodes every variant of item. A failed 16-bit encode falls back to
// format_16bit_fallback at 8 bits and is noted on the map entry.
func (p *ProcessItems) save(ac *asset.Context, item *asset.ProcessingItem) error {
	cfg := ac.Config
	var depth int
	if item.IsMerge() {
		depth = item.Merged.BitDepth
	} else {
		depth = OutputBitDepth(cfg, item.MapType, item.SourceBitDepth)
	}
	opts := imaging.EncodeOptions{JPGQuality: cfg.Output.JPGQuality, PNGCompression: cfg.Output.PNGCompression}
	entry := mapEntry(ac, item.MapType)

	for _, variant := range item.Variants {
		img := variant.Image
		format := ChooseFormat(cfg, item.MapType, item.FormatOverride, item.SourceFormat, depth, img.MaxDim())
		variantDepth := depth
		target := tempVariantPath(ac, item.MapType, variant.ResolutionKey, format)

		err := imaging.EncodeFile(target, img, format, variantDepth, opts)
		if err != nil && variantDepth > 8 {
			fallback := cfg.Output.Format16BitFallback
			note := fmt.Sprintf("%s %s: 16-bit %s encode failed (%v); wrote 8-bit %s", variant.ResolutionKey, item.MapType, format, err, fallback)
			logging.WarnWithContext(
				p.log(),
				"16-bit encode failed, using fallback format",
				"encode_fallback",
				logging.String(logging.FieldMapType, item.MapType),
				logging.String(logging.FieldResolution, variant.ResolutionKey),
				logging.String("format", format),
				logging.String("fallback_format", fallback),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set output.format_16bit_primary to png or tif"),
				logging.String(logging.FieldImpact, "variant written at 8 bits"),
			)
			format, variantDepth = fallback, 8
			target = tempVariantPath(ac, item.MapType, variant.ResolutionKey, format)
			if err = imaging.EncodeFile(target, img, format, variantDepth, opts); err == nil {
				entry.AddNote(note)
			}
		}
		if err != nil {
			return services.Wrap(services.ErrEncode, NameCoreLoop, "save", fmt.Sprintf("%s %s as %s", item.MapType, variant.ResolutionKey, format), err)
		}

		ac.Saved = append(ac.Saved, asset.SavedVariant{
			MapType:       item.MapType,
			ResolutionKey: variant.ResolutionKey,
			TempPath:      target,
			Format:        format,
			BitDepth:      variantDepth,
			Width:         img.Width,
			Height:        img.Height,
		})
		p.log().Debug(
			"variant saved",
			logging.String(logging.FieldEventType, "variant_saved"),
			logging.String(logging.FieldMapType, item.MapType),
			logging.String(logging.FieldResolution, variant.ResolutionKey),
			logging.String("format", format),
			logging.Int("bit_depth", variantDepth),
			logging.String("dimensions", fmt.Sprintf("%dx%d", img.Width, img.Height)),
		)
	}
	return nil
}

func tempVariantPath(ac *asset.Context, mapType, resolution, format string) string {
	name := fmt.Sprintf("%s_%s.%s", textutil.SanitizeFileName(mapType), resolution, format)
	return filepath.Join(ac.EngineTempDir, textutil.SanitizeFileName(ac.Name()), name)
}
