package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bogem/id3v2"

	"pcsync/internal/episodes"
	"pcsync/internal/logging"
	"pcsync/internal/services"
)

const fakeAudio = "not really mpeg audio, but long enough to hold a header"

type failingTagger struct{ calls int }

func (f *failingTagger) Retag(string, Tags) error {
	f.calls++
	return errors.New("tag write failed")
}

func newFixture(t *testing.T, opts Options, extra ...Option) (*Stager, string, string) {
	t.Helper()
	root := t.TempDir()
	opts.CacheDir = filepath.Join(root, "cache")
	opts.OutputDir = filepath.Join(root, "out")
	for _, dir := range []string{opts.CacheDir, opts.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return NewStager(opts, logging.NewNop(), extra...), opts.CacheDir, opts.OutputDir
}

func cacheEpisode(t *testing.T, cacheDir, uuid string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cacheDir, uuid), []byte(fakeAudio), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileName(t *testing.T) {
	s := NewStager(Options{Extension: ".mp3"}, nil)
	got := s.FileName(7, "My Show: Daily", "Ep. 1 (Live)!")
	want := "007_Ep__1__Live___My_Show__Daily.mp3"
	if got != want {
		t.Fatalf("FileName = %q, want %q", got, want)
	}
}

func TestStageCopiesWithoutEviction(t *testing.T) {
	s, cacheDir, outDir := newFixture(t, Options{})
	cacheEpisode(t, cacheDir, "ep-1")

	dst, err := s.Stage(context.Background(), episodes.Candidate{UUID: "ep-1", ShowName: "Show", Title: "One"}, 1)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if dst != filepath.Join(outDir, "001_One_Show.mp3") {
		t.Fatalf("unexpected destination %q", dst)
	}
	if got, _ := os.ReadFile(dst); string(got) != fakeAudio {
		t.Fatalf("unexpected staged content %q", got)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "ep-1")); err != nil {
		t.Fatalf("cache file should remain: %v", err)
	}
}

func TestStageEvictsAfterCopy(t *testing.T) {
	s, cacheDir, _ := newFixture(t, Options{Evict: true})
	cacheEpisode(t, cacheDir, "ep-1")

	if _, err := s.Stage(context.Background(), episodes.Candidate{UUID: "ep-1", ShowName: "Show", Title: "One"}, 1); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "ep-1")); !os.IsNotExist(err) {
		t.Fatalf("expected cache file evicted, stat err=%v", err)
	}
}

func TestStageMissingCacheFileIsItemFailure(t *testing.T) {
	s, _, outDir := newFixture(t, Options{Evict: true})
	_, err := s.Stage(context.Background(), episodes.Candidate{UUID: "missing"}, 1)
	if !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("stage failure must not be fatal")
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("expected empty output dir, got %d entries", len(entries))
	}
}

func TestStageRetagFailureKeepsCache(t *testing.T) {
	tagger := &failingTagger{}
	s, cacheDir, outDir := newFixture(t, Options{Retag: true, Evict: true}, WithTagger(tagger))
	cacheEpisode(t, cacheDir, "ep-1")

	_, err := s.Stage(context.Background(), episodes.Candidate{UUID: "ep-1", ShowName: "Show", Title: "One"}, 1)
	if !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if tagger.calls != 1 {
		t.Fatalf("expected one retag attempt, got %d", tagger.calls)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "ep-1")); err != nil {
		t.Fatalf("cache file must survive a failed stage: %v", err)
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("expected no partial output, got %d entries", len(entries))
	}
}

func TestStageRetagWritesID3Frames(t *testing.T) {
	s, cacheDir, _ := newFixture(t, Options{Retag: true})
	cacheEpisode(t, cacheDir, "ep-1")

	dst, err := s.Stage(context.Background(), episodes.Candidate{UUID: "ep-1", ShowName: "Daily News", Title: "Headlines"}, 3)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	tag, err := id3v2.Open(dst, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open tag: %v", err)
	}
	defer tag.Close()

	if got := tag.Title(); got != "003-Headlines=Daily News" {
		t.Fatalf("title = %q", got)
	}
	if got := tag.Artist(); got != "Daily News" {
		t.Fatalf("artist = %q", got)
	}
	if got := tag.Album(); got != "PODCASTS" {
		t.Fatalf("album = %q", got)
	}
	if got := tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text; got != "03" {
		t.Fatalf("track = %q", got)
	}
	if got := tag.GetTextFrame(tag.CommonID("Original artist/performer")).Text; got != "Daily News" {
		t.Fatalf("original artist = %q", got)
	}
	flag, ok := tag.GetLastFrame(PodcastFlagFrameID).(id3v2.UnknownFrame)
	if !ok || string(flag.Body) != "\x00\x00\x00\x01" {
		t.Fatalf("podcast flag = %#v", tag.GetLastFrame(PodcastFlagFrameID))
	}
}

func TestFileNameFitsFilesystemLimit(t *testing.T) {
	s := NewStager(Options{}, nil)
	tests := []struct {
		name  string
		show  string
		title string
	}{
		{"long title", "Show", strings.Repeat("t", 240)},
		{"long show", strings.Repeat("s", 300), "Ep"},
		{"both long multibyte", strings.Repeat("é", 200), strings.Repeat("ü", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.FileName(12, tt.show, tt.title)
			if len(got) > MaxFileNameBytes {
				t.Fatalf("name is %d bytes", len(got))
			}
			if !utf8.ValidString(got) {
				t.Fatalf("name is not valid UTF-8: %q", got)
			}
			if !strings.HasPrefix(got, "012_") || !strings.HasSuffix(got, ".mp3") {
				t.Fatalf("unexpected name %q", got)
			}
		})
	}
	if got := s.FileName(1, "Show", strings.Repeat("t", 240)); !strings.HasSuffix(got, "_Show.mp3") {
		t.Fatalf("expected show kept when only the title is long, got %q", got)
	}
}

func TestStageLongTitle(t *testing.T) {
	s, cacheDir, outDir := newFixture(t, Options{Retag: true})
	cacheEpisode(t, cacheDir, "ep-long")
	title := strings.Repeat("t", 240)

	dst, err := s.Stage(context.Background(), episodes.Candidate{UUID: "ep-long", ShowName: "Show", Title: title}, 1)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if filepath.Dir(dst) != outDir {
		t.Fatalf("staged outside output dir: %s", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected staged file: %v", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the staged file, got %d entries", len(entries))
	}
}

func TestClearOutputRemovesMediaAndPlaylists(t *testing.T) {
	s, _, outDir := newFixture(t, Options{})
	for _, name := range []string{"001_a.mp3", "002_b.MP3", "playlist.m3u", "OLD.M3U", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := s.ClearOutput()
	if err != nil {
		t.Fatalf("ClearOutput failed: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 1 || entries[0].Name() != "notes.txt" {
		t.Fatalf("expected only notes.txt to remain, got %v", entries)
	}
}

func TestClearOutputMissingDirIsFatal(t *testing.T) {
	s := NewStager(Options{OutputDir: filepath.Join(t.TempDir(), "missing")}, nil)
	if _, err := s.ClearOutput(); !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestWritePlaylistSortsCaseInsensitiveExtensions(t *testing.T) {
	s, _, outDir := newFixture(t, Options{})
	for _, name := range []string{"003_c.mp3", "001_a.MP3", "002_b.mp3", "cover.jpg", ".tmp-1.part"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path, count, err := s.WritePlaylist("playlist.m3u")
	if err != nil {
		t.Fatalf("WritePlaylist failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{"#EXTM3U", "001_a.MP3", "002_b.mp3", "003_c.mp3", ""}, "\n")
	if string(data) != want {
		t.Fatalf("playlist = %q, want %q", data, want)
	}
}
