package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pcsync/internal/fileutil"
	"pcsync/internal/logging"
)

// CleanStaleResult contains the outcome of a stale temp-file cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes temp files left in dir by an interrupted download or
// copy when they are older than maxAge. A maxAge of zero removes every temp
// file, which is only safe while the run lock is held.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if entry.IsDir() || !fileutil.IsTempName(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale temp file", "temp_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale temp file",
				logging.String("path", path),
				logging.Int64("bytes", info.Size()),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "temp_cleanup"),
			)
		}
	}

	return result
}
