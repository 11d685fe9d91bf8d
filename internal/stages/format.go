package stages

import "texforge/internal/config"

// OutputBitDepth applies the map type's bit-depth rule to a source depth.
func OutputBitDepth(cfg *config.Config, mapType string, sourceDepth int) int {
	switch cfg.BitDepthRuleFor(mapType) {
	case config.BitDepthRespect:
		if sourceDepth > 8 {
			return 16
		}
		return 8
	case config.BitDepthForce16:
		return 16
	default:
		return 8
	}
}

// ChooseFormat picks the container for one variant. The first rule that
// applies wins:
//
//  1. a supported per-file output_format_override
//  2. force-lossless map types always get a lossless format
//  3. 8-bit variants larger than jpg_resolution_threshold become jpg
//  4. 16-bit variants keep a png or tif source container
//  5. the configured format for the bit depth
func ChooseFormat(cfg *config.Config, mapType, override, sourceFormat string, depth, maxDim int) string {
	out := cfg.Output
	if override != "" && config.IsSupportedFormat(override) {
		return override
	}
	if cfg.IsForceLossless(mapType) {
		preferred := out.Format8Bit
		if depth > 8 {
			preferred = out.Format16BitPrimary
		}
		if config.IsLossless(preferred) {
			return preferred
		}
		return config.FormatPNG
	}
	if depth <= 8 && out.JPGResolutionThreshold > 0 && maxDim > out.JPGResolutionThreshold {
		return config.FormatJPG
	}
	if depth > 8 && config.IsLossless(sourceFormat) {
		return sourceFormat
	}
	if depth > 8 {
		return out.Format16BitPrimary
	}
	return out.Format8Bit
}
