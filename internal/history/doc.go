// Package history persists a record of every pipeline run and the outcome of
// each asset it touched, backed by SQLite (modernc.org/sqlite, no cgo).
//
// The database lives at <state_dir>/history.db. The schema is embedded and
// versioned; a mismatched version is reported instead of migrated, and the
// operator clears the file.
package history
