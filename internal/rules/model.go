package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// File-type vocabulary. Map identifiers carry the MAP_ prefix; variant keys
// append "-N" (MAP_COL-2).
const (
	TypeColor        = "MAP_COL"
	TypeNormal       = "MAP_NRM"
	TypeGloss        = "MAP_GLOSS"
	TypeRough        = "MAP_ROUGH"
	TypeMetal        = "MAP_METAL"
	TypeAO           = "MAP_AO"
	TypeDisplacement = "MAP_DISP"
	TypeBump         = "MAP_BUMP"
	TypeMask         = "MAP_MASK"
	TypeSpecular     = "MAP_SPEC"
	TypeSSS          = "MAP_SSS"
	TypeIDMap        = "MAP_IDMAP"
	TypeExtra        = "EXTRA"
	TypeIgnore       = "FILE_IGNORE"
)

// Asset markers recognized in common_metadata.process_status.
const (
	MarkerSkip      = "SKIP"
	MarkerProcessed = "PROCESSED"
)

// FileRule describes one physical file inside a source and how to treat it.
type FileRule struct {
	FilePath                string   `yaml:"file_path" json:"file_path"`
	ItemType                string   `yaml:"item_type" json:"item_type"`
	ItemTypeOverride        string   `yaml:"item_type_override,omitempty" json:"item_type_override,omitempty"`
	TargetAssetNameOverride string   `yaml:"target_asset_name_override,omitempty" json:"target_asset_name_override,omitempty"`
	ResolutionOverride      []string `yaml:"resolution_override,omitempty" json:"resolution_override,omitempty"`
	OutputFormatOverride    string   `yaml:"output_format_override,omitempty" json:"output_format_override,omitempty"`
}

// EffectiveType returns the override when present, else the classified type.
func (f FileRule) EffectiveType() string {
	if t := NormalizeType(f.ItemTypeOverride); t != "" {
		return t
	}
	return NormalizeType(f.ItemType)
}

// IsIgnored reports whether the file is explicitly excluded.
func (f FileRule) IsIgnored() bool {
	return f.EffectiveType() == TypeIgnore
}

// IsExtra reports whether the file is passed through untouched.
func (f FileRule) IsExtra() bool {
	return f.EffectiveType() == TypeExtra
}

// AssetRule describes one logical asset within a source.
type AssetRule struct {
	AssetName         string         `yaml:"asset_name" json:"asset_name"`
	AssetType         string         `yaml:"asset_type" json:"asset_type"`
	AssetTypeOverride string         `yaml:"asset_type_override,omitempty" json:"asset_type_override,omitempty"`
	CommonMetadata    map[string]any `yaml:"common_metadata,omitempty" json:"common_metadata,omitempty"`
	Files             []FileRule     `yaml:"files" json:"files"`
}

// EffectiveAssetType returns the override when present, else the asset type.
func (a AssetRule) EffectiveAssetType() string {
	if t := strings.TrimSpace(a.AssetTypeOverride); t != "" {
		return t
	}
	return strings.TrimSpace(a.AssetType)
}

// Marker returns the upper-cased process_status marker, if any.
func (a AssetRule) Marker() string {
	return strings.ToUpper(strings.TrimSpace(a.MetadataString("process_status")))
}

// MetadataString returns a common_metadata value rendered as a string.
func (a AssetRule) MetadataString(key string) string {
	if a.CommonMetadata == nil {
		return ""
	}
	switch v := a.CommonMetadata[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SourceRule describes one input archive or folder from a vendor.
type SourceRule struct {
	InputPath          string      `yaml:"input_path" json:"input_path"`
	SupplierIdentifier string      `yaml:"supplier_identifier" json:"supplier_identifier"`
	SupplierOverride   string      `yaml:"supplier_override,omitempty" json:"supplier_override,omitempty"`
	PresetName         string      `yaml:"preset_name,omitempty" json:"preset_name,omitempty"`
	Assets             []AssetRule `yaml:"assets" json:"assets"`
}

// Clone returns a deep copy so concurrent workers never share rule slices.
func (s SourceRule) Clone() SourceRule {
	out := s
	out.Assets = make([]AssetRule, len(s.Assets))
	for i, asset := range s.Assets {
		out.Assets[i] = asset.Clone()
	}
	return out
}

// Clone returns a deep copy of the asset rule.
func (a AssetRule) Clone() AssetRule {
	out := a
	if a.CommonMetadata != nil {
		out.CommonMetadata = make(map[string]any, len(a.CommonMetadata))
		for k, v := range a.CommonMetadata {
			out.CommonMetadata[k] = v
		}
	}
	out.Files = make([]FileRule, len(a.Files))
	for i, file := range a.Files {
		out.Files[i] = file
		if file.ResolutionOverride != nil {
			out.Files[i].ResolutionOverride = append([]string(nil), file.ResolutionOverride...)
		}
	}
	return out
}

// NormalizeType upper-cases and trims a type identifier.
func NormalizeType(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// SplitVariant splits a map key such as MAP_COL-2 into its base type and
// variant number. Keys without a numeric suffix return variant 0.
func SplitVariant(key string) (string, int) {
	idx := strings.LastIndexByte(key, '-')
	if idx <= 0 || idx == len(key)-1 {
		return key, 0
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil || n <= 0 {
		return key, 0
	}
	return key[:idx], n
}

// BaseType strips any variant suffix from a map key.
func BaseType(key string) string {
	base, _ := SplitVariant(key)
	return base
}

// VariantKey joins a base type and variant number. Variant 0 yields the base.
func VariantKey(base string, variant int) string {
	if variant <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(variant)
}

// VariantSuffix returns the "-N" part of a map key, or "".
func VariantSuffix(key string) string {
	base := BaseType(key)
	return strings.TrimPrefix(key, base)
}
