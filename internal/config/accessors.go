package config

import (
	"sort"
	"strings"

	"texforge/internal/rules"
)

// LowResKey is the sentinel resolution key of the unscaled fallback variant.
const LowResKey = "LOWRES"

// Resolution is one entry of the resolution table.
type Resolution struct {
	Key  string
	Size int
}

// SortedResolutions returns the resolution table ordered by descending size,
// ties broken by key so iteration is deterministic.
func (c *Config) SortedResolutions() []Resolution {
	out := make([]Resolution, 0, len(c.Resolutions))
	for key, size := range c.Resolutions {
		out = append(out, Resolution{Key: key, Size: size})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// FileTypeFor returns the definition for a map key, ignoring variant suffixes.
func (c *Config) FileTypeFor(mapKey string) (FileType, bool) {
	ft, ok := c.FileTypes[rules.BaseType(mapKey)]
	return ft, ok
}

// IsKnownType reports whether the map key's base type has a definition.
func (c *Config) IsKnownType(mapKey string) bool {
	_, ok := c.FileTypeFor(mapKey)
	return ok
}

// Alias returns the filename-friendly form of a map key: the type alias plus
// any variant suffix (MAP_COL-2 becomes COL-2).
func (c *Config) Alias(mapKey string) string {
	base := rules.BaseType(mapKey)
	suffix := strings.TrimPrefix(mapKey, base)
	if ft, ok := c.FileTypes[base]; ok && ft.Alias != "" {
		return ft.Alias + suffix
	}
	return strings.TrimPrefix(base, "MAP_") + suffix
}

// KindOf returns the kind of a map key, or KindData when unknown.
func (c *Config) KindOf(mapKey string) string {
	if ft, ok := c.FileTypeFor(mapKey); ok {
		return ft.Kind
	}
	return KindData
}

// BitDepthRuleFor returns the bit-depth rule of a map key.
func (c *Config) BitDepthRuleFor(mapKey string) string {
	if ft, ok := c.FileTypeFor(mapKey); ok {
		return ft.BitDepthRule
	}
	return BitDepthForce8
}

// IsForceLossless reports whether a map key must never be written lossy.
func (c *Config) IsForceLossless(mapKey string) bool {
	base := rules.BaseType(mapKey)
	for _, t := range c.Output.ForceLosslessMapTypes {
		if t == base || t == mapKey {
			return true
		}
	}
	return false
}

// RespectsVariant reports whether a single file of this type still receives
// a -1 variant suffix.
func (c *Config) RespectsVariant(baseMapType string) bool {
	for _, t := range c.Processing.RespectVariantMapTypes {
		if t == baseMapType {
			return true
		}
	}
	return false
}

// IsKnownSupplier reports whether name appears in the suppliers table.
func (c *Config) IsKnownSupplier(name string) bool {
	_, ok := c.Suppliers[strings.TrimSpace(name)]
	return ok
}

// Clone returns a deep copy. Workers each receive their own clone.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Processing.RespectVariantMapTypes = append([]string(nil), c.Processing.RespectVariantMapTypes...)
	out.Output.ForceLosslessMapTypes = append([]string(nil), c.Output.ForceLosslessMapTypes...)
	if c.Resolutions != nil {
		out.Resolutions = make(map[string]int, len(c.Resolutions))
		for k, v := range c.Resolutions {
			out.Resolutions[k] = v
		}
	}
	if c.Suppliers != nil {
		out.Suppliers = make(map[string]Supplier, len(c.Suppliers))
		for k, v := range c.Suppliers {
			out.Suppliers[k] = v
		}
	}
	if c.FileTypes != nil {
		out.FileTypes = make(map[string]FileType, len(c.FileTypes))
		for k, v := range c.FileTypes {
			out.FileTypes[k] = v
		}
	}
	if c.MergeRules != nil {
		out.MergeRules = make([]MergeRule, len(c.MergeRules))
		for i, rule := range c.MergeRules {
			out.MergeRules[i] = rule
			out.MergeRules[i].Inputs = make(map[string]string, len(rule.Inputs))
			for k, v := range rule.Inputs {
				out.MergeRules[i].Inputs[k] = v
			}
			out.MergeRules[i].Defaults = make(map[string]float64, len(rule.Defaults))
			for k, v := range rule.Defaults {
				out.MergeRules[i].Defaults[k] = v
			}
		}
	}
	return &out
}

// ChannelIndex maps R, G, B, A to 0..3 and anything else to -1.
func ChannelIndex(channel string) int {
	switch strings.ToUpper(strings.TrimSpace(channel)) {
	case "R":
		return 0
	case "G":
		return 1
	case "B":
		return 2
	case "A":
		return 3
	default:
		return -1
	}
}

// IsSupportedFormat reports whether the encoder can write the extension.
func IsSupportedFormat(format string) bool {
	switch format {
	case FormatPNG, FormatJPG, FormatTIFF:
		return true
	default:
		return false
	}
}

// IsLossless reports whether the format stores pixels without loss.
func IsLossless(format string) bool {
	return format == FormatPNG || format == FormatTIFF
}
