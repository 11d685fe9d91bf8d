// Package services defines shared utilities consumed by the pipeline stages and
// the orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, source paths, asset names, and
//     stage names for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the orchestrator
//     tell run-fatal setup failures apart from asset-scoped failures.
//
// Use these helpers when wiring new stage logic so failure classification and
// observability stay uniform across the pipeline.
package services
