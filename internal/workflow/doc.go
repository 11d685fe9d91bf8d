// Package workflow runs the pipeline over a batch of source rules.
//
// The Manager performs run setup (preflight checks, the library lock, stale
// engine temp cleanup, one engine temp directory per source), then feeds
// assets to a worker pool. Each asset gets its own asset.Context and its own
// configuration clone and runs the ordered stage list from package stages.
// Asset-scoped failures are recorded and the batch continues; setup failures
// abort the run. Cancelling the run context stops new assets from starting
// while in-flight assets finish.
//
// Outcomes are aggregated into a RunOutcome and, when a Recorder is
// configured, persisted to the run history.
package workflow
