// Package rules holds the declarative rule hierarchy consumed by the pipeline:
// a SourceRule per vendor delivery, an AssetRule per logical asset, and a
// FileRule per physical file with its classification.
//
// Rules are produced upstream (prediction, manual editing) and handed to the
// pipeline fully formed. Nothing in the pipeline mutates them; stages derive
// their own working copies inside the asset context. LoadFile reads a YAML or
// JSON rule document, and Regroup applies target-asset overrides before a
// source is processed.
package rules
