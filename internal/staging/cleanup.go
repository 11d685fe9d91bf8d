package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"texforge/internal/logging"
)

// RunDirPrefix prefixes every engine temp directory.
const RunDirPrefix = "run-"

// DefaultMaxAge is the age after which leftover engine temp directories are
// considered stale.
const DefaultMaxAge = 24 * time.Hour

// CreateRunDir allocates the engine temp directory for one source run.
func CreateRunDir(workspaceDir, runID, label string) (string, error) {
	workspaceDir = strings.TrimSpace(workspaceDir)
	if workspaceDir == "" {
		return "", fmt.Errorf("workspace directory not configured")
	}
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace directory: %w", err)
	}
	pattern := RunDirPrefix + runID + "-"
	if label = strings.TrimSpace(label); label != "" {
		pattern += label + "-"
	}
	dir, err := os.MkdirTemp(workspaceDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create engine temp directory: %w", err)
	}
	return dir, nil
}

// RemoveRunDir deletes an engine temp directory, logging but not returning
// failures.
func RemoveRunDir(dir string, logger *slog.Logger) {
	if strings.TrimSpace(dir) == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil && logger != nil {
		logging.WarnWithContext(logger, "failed to remove engine temp directory", "staging_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes engine temp directories older than maxAge. Only
// directories carrying RunDirPrefix are considered.
func CleanStale(ctx context.Context, workspaceDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	workspaceDir = strings.TrimSpace(workspaceDir)
	if workspaceDir == "" {
		return result
	}

	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workspaceDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), RunDirPrefix) {
			continue
		}

		dirPath := filepath.Join(workspaceDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale engine temp directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale engine temp directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}

// DirInfo contains metadata about an engine temp directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListRunDirs returns the engine temp directories under workspaceDir.
func ListRunDirs(workspaceDir string) ([]DirInfo, error) {
	workspaceDir = strings.TrimSpace(workspaceDir)
	if workspaceDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), RunDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(workspaceDir, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return dirs, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
