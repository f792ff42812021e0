package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pcsync/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, 0, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOnlyTempFiles(t *testing.T) {
	tmpDir := t.TempDir()

	keep := []string{"ep-uuid", "001_Title_Show.mp3", ".pcsync.lock"}
	for _, name := range keep {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	stale := filepath.Join(tmpDir, ".ep-uuid-1234.part")
	if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, 0, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("expected %s removed, got %v", stale, result.Removed)
	}
	for _, name := range keep {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); err != nil {
			t.Fatalf("expected %s kept: %v", name, err)
		}
	}
}

func TestCleanStaleHonorsMaxAge(t *testing.T) {
	tmpDir := t.TempDir()

	oldTemp := filepath.Join(tmpDir, ".old-1.part")
	recentTemp := filepath.Join(tmpDir, ".recent-2.part")
	for _, path := range []string{oldTemp, recentTemp} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldTemp, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldTemp {
		t.Fatalf("expected only old temp removed, got %v", result.Removed)
	}
	if _, err := os.Stat(recentTemp); err != nil {
		t.Fatalf("recent temp should remain: %v", err)
	}
}
