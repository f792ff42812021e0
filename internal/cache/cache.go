package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pcsync/internal/episodes"
	"pcsync/internal/logging"
	"pcsync/internal/services"
)

const stageName = "cache"

// Entry describes one cached episode file.
type Entry struct {
	UUID    string
	Size    int64
	ModTime time.Time
}

// Prepare creates the cache directory if needed.
func Prepare(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return services.Wrap(services.ErrStorage, stageName, "prepare", "cache directory not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, stageName, "prepare", "create cache directory", err)
	}
	return nil
}

// Reconcile marks every candidate whose UUID names a file in dir as cached and
// returns how many were marked. The directory is read once. When it cannot be
// read nothing is marked, so those episodes are downloaded again.
func Reconcile(dir string, candidates []episodes.Candidate, logger *slog.Logger) int {
	logger = logging.NewComponentLogger(logger, "cache")
	present, err := snapshot(dir)
	if err != nil {
		logging.WarnWithContext(logger, "cache directory unreadable", "cache_read_failed",
			logging.String("cache_dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache_dir exists and is readable"),
			logging.String(logging.FieldImpact, "all episodes will be downloaded again"),
		)
		return 0
	}
	marked := 0
	for i := range candidates {
		if _, ok := present[candidates[i].UUID]; ok {
			candidates[i].CachedLocally = true
			marked++
		}
	}
	return marked
}

// Partition splits candidates into cached and to-download lists, preserving
// order.
func Partition(candidates []episodes.Candidate) (cached, toDownload []episodes.Candidate) {
	for _, c := range candidates {
		if c.CachedLocally {
			cached = append(cached, c)
		} else {
			toDownload = append(toDownload, c)
		}
	}
	return cached, toDownload
}

// Path returns the cache file location for an episode UUID.
func Path(dir, uuid string) string {
	return filepath.Join(dir, uuid)
}

// List returns the cached episode files in dir sorted by UUID. Hidden files
// and directories are ignored.
func List(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{UUID: de.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UUID < entries[j].UUID })
	return entries, nil
}

func snapshot(dir string) (map[string]struct{}, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		present[de.Name()] = struct{}{}
	}
	return present, nil
}
