// Package stages implements the asset pipeline stages.
//
// Pre-item stages resolve the supplier, decide skips, seed metadata, filter
// file rules, and apply source-level transforms (gloss to roughness, alpha to
// mask, normal green inversion) once per source map. Item explosion turns the
// filtered maps into processing items per resolution, and the core loop
// merges, scales, and saves each item into the engine temp directory.
// Post-item stages place the saved files into the library and write the
// metadata document.
//
// Default returns the ordered handler list the workflow manager runs for each
// asset.
package stages
