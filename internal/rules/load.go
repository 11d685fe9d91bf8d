package rules

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a rule file.
type Document struct {
	Sources []SourceRule `yaml:"sources"`
}

// LoadFile reads a YAML or JSON rule document from path.
func LoadFile(path string) ([]SourceRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	sources, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return sources, nil
}

// Parse decodes a rule document. Both a {"sources": [...]} mapping and a bare
// list of sources are accepted.
func Parse(data []byte) ([]SourceRule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty rule document")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return nil, err
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, errors.New("rule document has no content")
	}

	var sources []SourceRule
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&sources); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc Document
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		sources = doc.Sources
	default:
		return nil, errors.New("rule document must be a mapping or a list")
	}

	for i := range sources {
		if err := sources[i].Validate(); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	return sources, nil
}

// Validate checks structural requirements that every stage relies on.
func (s SourceRule) Validate() error {
	if strings.TrimSpace(s.InputPath) == "" {
		return errors.New("input_path must be set")
	}
	seen := make(map[string]struct{}, len(s.Assets))
	for i, asset := range s.Assets {
		name := strings.TrimSpace(asset.AssetName)
		if name == "" {
			return fmt.Errorf("assets[%d].asset_name must be set", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("assets[%d]: duplicate asset_name %q", i, name)
		}
		seen[name] = struct{}{}
		for j, file := range asset.Files {
			if strings.TrimSpace(file.FilePath) == "" {
				return fmt.Errorf("assets[%d].files[%d].file_path must be set", i, j)
			}
		}
	}
	return nil
}

// Regroup returns a copy of s in which every file carrying a
// target_asset_name_override naming a different asset is moved into that
// asset. Target assets missing from the source are created with the asset
// type of the first file that names them.
func Regroup(s SourceRule) SourceRule {
	out := s.Clone()
	index := make(map[string]int, len(out.Assets))
	for i, asset := range out.Assets {
		index[asset.AssetName] = i
	}

	type move struct {
		target string
		file   FileRule
		from   AssetRule
	}
	var moves []move
	for i := range out.Assets {
		kept := out.Assets[i].Files[:0]
		for _, file := range out.Assets[i].Files {
			target := strings.TrimSpace(file.TargetAssetNameOverride)
			if target == "" || target == out.Assets[i].AssetName {
				kept = append(kept, file)
				continue
			}
			moves = append(moves, move{target: target, file: file, from: out.Assets[i]})
		}
		out.Assets[i].Files = kept
	}

	for _, m := range moves {
		idx, ok := index[m.target]
		if !ok {
			out.Assets = append(out.Assets, AssetRule{
				AssetName: m.target,
				AssetType: m.from.AssetType,
			})
			idx = len(out.Assets) - 1
			index[m.target] = idx
		}
		out.Assets[idx].Files = append(out.Assets[idx].Files, m.file)
	}
	return out
}
