// Package config loads, normalizes, and validates texforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TEXFORGE_OUTPUT_DIR. The Config type is the read-only snapshot the pipeline
// consumes: the resolution table, low-resolution fallback policy, merge rules,
// per-type bit-depth rules, forced-lossless types, the JPEG threshold, output
// token patterns, the overwrite flag, and the normal-map convention switch.
//
// Each concurrent worker receives its own deep copy via Clone so no mutable
// configuration state is shared across assets.
package config
