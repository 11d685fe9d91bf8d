package stages

import (
	"context"
	"fmt"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/imaging"
	"texforge/internal/logging"
	"texforge/internal/rules"
	"texforge/internal/services"
)

// loadSource decodes a map through the asset's load cache.
func loadSource(ac *asset.Context, stageName string, file *asset.MapFile) (*imaging.Image, error) {
	img, err := ac.Cache.Load(file.SourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, stageName, "decode", file.Rule.FilePath, err)
	}
	return img, nil
}

// GlossToRough inverts glossiness maps into roughness maps once per source.
// The inverted image replaces the cached decode and the map is retagged, so
// every later stage sees a roughness map. A native roughness map for the
// same variant is superseded.
type GlossToRough struct {
	base
}

// NewGlossToRough constructs the gloss conversion stage.
func NewGlossToRough() *GlossToRough { return &GlossToRough{} }

// Name returns the stage name.
func (g *GlossToRough) Name() string { return NameGloss }

// Execute converts every gloss-kind map.
func (g *GlossToRough) Execute(_ context.Context, ac *asset.Context) error {
	var converted []*asset.MapFile
	for _, file := range ac.Files {
		if ac.Config.KindOf(file.Key) != config.KindGloss {
			continue
		}
		img, err := loadSource(ac, NameGloss, file)
		if err != nil {
			return err
		}
		ac.Cache.Put(file.SourcePath, imaging.Invert(img))
		from := file.Key
		file.Key = rules.TypeRough + rules.VariantSuffix(file.Key)
		mapEntry(ac, file.Key).AddNote(fmt.Sprintf("converted from %s (%s) by inversion", from, file.Rule.FilePath))
		converted = append(converted, file)
		g.log().Info(
			"gloss converted to roughness",
			logging.String(logging.FieldEventType, "gloss_converted"),
			logging.String("file", file.Rule.FilePath),
			logging.String(logging.FieldMapType, file.Key),
		)
	}
	if len(converted) == 0 {
		return nil
	}

	kept := ac.Files[:0]
	for _, file := range ac.Files {
		if superseded(file, converted) {
			note := fmt.Sprintf("native roughness %s superseded by gloss source", file.Rule.FilePath)
			mapEntry(ac, file.Key).AddNote(note)
			g.log().Info(
				"native roughness superseded",
				logging.Args(append(logging.DecisionAttrs("rough_source", "gloss", note),
					logging.String(logging.FieldEventType, "rough_superseded"),
					logging.String(logging.FieldMapType, file.Key))...)...,
			)
			continue
		}
		kept = append(kept, file)
	}
	ac.Files = kept
	return nil
}

// superseded reports whether a native map shares its base type and variant
// with a converted gloss map. An unsuffixed key and "-1" name the same map,
// since a lone respected variant is numbered 1 while an unsuffixed sibling
// keeps the bare base type.
func superseded(file *asset.MapFile, converted []*asset.MapFile) bool {
	for _, c := range converted {
		if c == file {
			return false
		}
	}
	base, variant := rules.SplitVariant(file.Key)
	for _, c := range converted {
		cBase, cVariant := rules.SplitVariant(c.Key)
		if cBase == base && max(cVariant, 1) == max(variant, 1) {
			return true
		}
	}
	return false
}

// AlphaToMask extracts a mask from the first colour map with an alpha channel
// when the asset declares no mask of its own.
type AlphaToMask struct {
	base
}

// NewAlphaToMask constructs the alpha extraction stage.
func NewAlphaToMask() *AlphaToMask { return &AlphaToMask{} }

// Name returns the stage name.
func (a *AlphaToMask) Name() string { return NameAlpha }

// Execute appends a synthetic mask map when one can be extracted.
func (a *AlphaToMask) Execute(_ context.Context, ac *asset.Context) error {
	for _, file := range ac.Files {
		if ac.Config.KindOf(file.Key) == config.KindMask {
			a.log().Debug(
				"alpha extraction not needed",
				logging.Args(append(logging.DecisionAttrs("alpha_mask", "skipped", "asset declares a mask"),
					logging.String(logging.FieldEventType, "alpha_mask_skipped"))...)...,
			)
			return nil
		}
	}

	for _, file := range ac.Files {
		if ac.Config.KindOf(file.Key) != config.KindColor {
			continue
		}
		img, err := loadSource(ac, NameAlpha, file)
		if err != nil {
			return err
		}
		if !img.HasAlpha() {
			continue
		}

		key := rules.TypeMask
		if ac.Config.RespectsVariant(rules.TypeMask) {
			key = rules.VariantKey(rules.TypeMask, 1)
		}
		maskPath := file.SourcePath + "#alpha"
		ac.Cache.Put(maskPath, imaging.ExtractChannel(img, 3))
		ac.Files = append(ac.Files, &asset.MapFile{
			Rule: rules.FileRule{
				FilePath: file.Rule.FilePath,
				ItemType: rules.TypeMask,
			},
			Key:        key,
			SourcePath: maskPath,
			Synthetic:  true,
		})
		mapEntry(ac, key).AddNote(fmt.Sprintf("extracted from the alpha channel of %s", file.Rule.FilePath))
		a.log().Info(
			"mask extracted from alpha",
			logging.String(logging.FieldEventType, "alpha_mask_extracted"),
			logging.String("file", file.Rule.FilePath),
			logging.String(logging.FieldMapType, key),
		)
		return nil
	}
	return nil
}

// NormalGreen flips the green channel of normal maps when
// processing.invert_normal_green is set.
type NormalGreen struct {
	base
}

// NewNormalGreen constructs the normal map stage.
func NewNormalGreen() *NormalGreen { return &NormalGreen{} }

// Name returns the stage name.
func (n *NormalGreen) Name() string { return NameNormal }

// Execute inverts channel 1 of every normal-kind map.
func (n *NormalGreen) Execute(_ context.Context, ac *asset.Context) error {
	if !ac.Config.Processing.InvertNormalGreen {
		return nil
	}
	for _, file := range ac.Files {
		if ac.Config.KindOf(file.Key) != config.KindNormal {
			continue
		}
		img, err := loadSource(ac, NameNormal, file)
		if err != nil {
			return err
		}
		entry := mapEntry(ac, file.Key)
		if img.Channels() < 3 {
			entry.AddNote("green channel not inverted: map has fewer than three channels")
			continue
		}
		ac.Cache.Put(file.SourcePath, imaging.InvertChannel(img, 1))
		entry.AddNote("green channel inverted")
		n.log().Debug(
			"normal green channel inverted",
			logging.String(logging.FieldEventType, "normal_green_inverted"),
			logging.String(logging.FieldMapType, file.Key),
		)
	}
	return nil
}
