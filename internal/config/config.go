package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir    string `toml:"output_dir"`
	WorkspaceDir string `toml:"workspace_dir"`
	StateDir     string `toml:"state_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Processing contains pipeline behaviour switches.
type Processing struct {
	Workers                int      `toml:"workers"`
	Parallelism            string   `toml:"parallelism"`
	OverwriteExisting      bool     `toml:"overwrite_existing"`
	InvertNormalGreen      bool     `toml:"invert_normal_green"`
	PotMode                string   `toml:"pot_mode"`
	Interpolation          string   `toml:"interpolation"`
	LowResFallbackEnabled  bool     `toml:"lowres_fallback_enabled"`
	LowResThreshold        int      `toml:"lowres_threshold"`
	RespectVariantMapTypes []string `toml:"respect_variant_map_types"`
}

// Output contains naming patterns and encoder policy.
type Output struct {
	DirectoryPattern       string   `toml:"directory_pattern"`
	FilenamePattern        string   `toml:"filename_pattern"`
	ExtraSubdir            string   `toml:"extra_subdir"`
	Format8Bit             string   `toml:"format_8bit"`
	Format16BitPrimary     string   `toml:"format_16bit_primary"`
	Format16BitFallback    string   `toml:"format_16bit_fallback"`
	JPGQuality             int      `toml:"jpg_quality"`
	PNGCompression         int      `toml:"png_compression"`
	JPGResolutionThreshold int      `toml:"jpg_resolution_threshold"`
	ForceLosslessMapTypes  []string `toml:"force_lossless_map_types"`
}

// Notifications configures run summaries pushed to ntfy. An empty topic
// disables them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnlyFailures   bool   `toml:"only_failures"`
}

// Supplier is one entry of the known-suppliers table.
type Supplier struct {
	Description string `toml:"description"`
}

// FileType describes how one map type is named and encoded.
type FileType struct {
	// Alias is the filename-friendly type written in place of [maptype].
	Alias        string `toml:"alias"`
	BitDepthRule string `toml:"bit_depth_rule"`
	Kind         string `toml:"kind"`
}

// MergeRule synthesizes one packed map from channels of other maps.
type MergeRule struct {
	OutputMapType   string             `toml:"output_map_type"`
	Inputs          map[string]string  `toml:"inputs"`
	Defaults        map[string]float64 `toml:"defaults"`
	ChannelOrder    string             `toml:"channel_order"`
	BitDepth        string             `toml:"bit_depth"`
	DimensionPolicy string             `toml:"dimension_policy"`
}

// Config encapsulates all configuration values for texforge.
//
// Configuration sections by subsystem:
//   - Paths: output library, engine workspace, and state (history, lock)
//   - Logging: log format and level
//   - Processing: workers, overwrite, normal convention, scaling, LOWRES policy
//   - Resolutions: resolution key to pixel size
//   - Output: directory/filename token patterns and encoder policy
//   - Suppliers: the known-suppliers table
//   - FileTypes: per-type alias, bit-depth rule, and kind
//   - MergeRules: channel packing definitions
//   - Notifications: optional ntfy run summaries
type Config struct {
	Paths         Paths               `toml:"paths"`
	Logging       Logging             `toml:"logging"`
	Processing    Processing          `toml:"processing"`
	Resolutions   map[string]int      `toml:"resolutions"`
	Output        Output              `toml:"output"`
	Suppliers     map[string]Supplier `toml:"suppliers"`
	FileTypes     map[string]FileType `toml:"file_types"`
	MergeRules    []MergeRule         `toml:"merge_rules"`
	Notifications Notifications       `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/texforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Tables present in the file replace the defaults; absent tables are
		// restored by normalize.
		cfg.Resolutions = nil
		cfg.Suppliers = nil
		cfg.FileTypes = nil
		cfg.MergeRules = nil

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("texforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the workspace and state directories. The output
// directory is created too so preflight checks can verify permissions on it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.StateDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite run history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the output library lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "library.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
