package syncrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"pcsync/internal/config"
	"pcsync/internal/logging"
	"pcsync/internal/services"
	"pcsync/internal/tokenstore"
)

type fakeAPI struct {
	t *testing.T

	mu            sync.Mutex
	loginCalls    int
	mediaRequests []string

	loginStatus int
	episodes    []map[string]any
	failing     map[string]bool
	server      *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{t: t, loginStatus: http.StatusOK, failing: map[string]bool{}}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case r.URL.Path == "/user/login":
		a.loginCalls++
		w.WriteHeader(a.loginStatus)
		if a.loginStatus == http.StatusOK {
			_, _ = w.Write([]byte(`{"token":"tok-1"}`))
		}
	case r.URL.Path == "/user/new_releases":
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"episodes": a.episodes})
	case r.URL.Path == "/podcast/full/show-1":
		eps := make([]map[string]any, 0, len(a.episodes))
		for _, ep := range a.episodes {
			copyEp := map[string]any{}
			for k, v := range ep {
				if k != "podcastTitle" {
					copyEp[k] = v
				}
			}
			eps = append(eps, copyEp)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"podcast": map[string]any{"uuid": "show-1", "title": "Solo Show", "episodes": eps},
		})
	case strings.HasPrefix(r.URL.Path, "/media/"):
		uuid := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/media/"), ".mp3")
		a.mediaRequests = append(a.mediaRequests, uuid)
		if a.failing[uuid] {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio for " + uuid + " padded to a reasonable length"))
	default:
		http.NotFound(w, r)
	}
}

func (a *fakeAPI) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginCalls, len(a.mediaRequests)
}

func (a *fakeAPI) addEpisode(uuid string, duration int) {
	a.episodes = append(a.episodes, map[string]any{
		"uuid":         uuid,
		"podcastTitle": "Show A",
		"title":        "Episode " + strings.TrimPrefix(uuid, "ep-"),
		"url":          a.server.URL + "/media/" + uuid + ".mp3",
		"duration":     duration,
	})
}

func testConfig(t *testing.T, api *fakeAPI) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(root, "cache")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Paths.StateDir = filepath.Join(root, "state")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.API.LoginURL = api.server.URL + "/user/login"
	cfg.API.NewReleasesURL = api.server.URL + "/user/new_releases"
	cfg.API.PodcastBaseURL = api.server.URL
	cfg.Account.Username = "me@example.com"
	cfg.Account.Password = "secret"
	return &cfg
}

func newRunner(t *testing.T, cfg *config.Config, api *fakeAPI) *Runner {
	t.Helper()
	runner, err := New(cfg, logging.NewNop(), WithHTTPClient(api.server.Client()), WithRunID("test-run"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return runner
}

func mediaFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".mp3") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// The catalog holds 30 episodes: two are too short, the limit keeps 25 of the
// remaining 28, ten of those are already cached, and two of the fifteen
// downloads fail.
func seedScenario(t *testing.T, api *fakeAPI, cfg *config.Config) []string {
	t.Helper()
	for i := 0; i < 30; i++ {
		duration := 1800
		switch i {
		case 3, 7:
			duration = 300
		case 5:
			duration = 0
		}
		api.addEpisode(fmt.Sprintf("ep-%02d", i), duration)
	}

	var selected []string
	for i := 0; i < 30 && len(selected) < 25; i++ {
		if i == 3 || i == 7 {
			continue
		}
		selected = append(selected, fmt.Sprintf("ep-%02d", i))
	}

	if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, uuid := range selected[:10] {
		if err := os.WriteFile(filepath.Join(cfg.Paths.CacheDir, uuid), []byte("cached audio for "+uuid), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	api.failing[selected[12]] = true
	api.failing[selected[18]] = true
	return selected
}

func TestRunEndToEnd(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(t, api)
	selected := seedScenario(t, api, cfg)

	req := RequestFromConfig(cfg)
	req.Limit = 25
	req.MinMinutes = 10

	summary, err := newRunner(t, cfg, api).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Resolved != 25 || summary.Cached != 10 {
		t.Fatalf("resolved/cached = %d/%d, want 25/10", summary.Resolved, summary.Cached)
	}
	if summary.Downloaded != 13 || summary.DownloadFailures != 2 {
		t.Fatalf("downloaded/failed = %d/%d, want 13/2", summary.Downloaded, summary.DownloadFailures)
	}
	if summary.Staged != 23 || summary.StageFailures != 0 {
		t.Fatalf("staged/failed = %d/%d, want 23/0", summary.Staged, summary.StageFailures)
	}
	if len(summary.Failures) != 2 || summary.Failures[0].UUID != selected[12] || summary.Failures[1].UUID != selected[18] {
		t.Fatalf("unexpected failures: %#v", summary.Failures)
	}
	for _, f := range summary.Failures {
		if !errors.Is(f.Err, services.ErrDownload) {
			t.Fatalf("expected download failure marker, got %v", f.Err)
		}
	}

	loginCalls, mediaCalls := api.counts()
	if loginCalls != 1 || mediaCalls != 15 {
		t.Fatalf("login/media calls = %d/%d, want 1/15", loginCalls, mediaCalls)
	}

	files := mediaFiles(t, cfg.Paths.OutputDir)
	if len(files) != 23 {
		t.Fatalf("expected 23 staged files, got %d", len(files))
	}
	var staged []string
	for _, uuid := range selected {
		if uuid != selected[12] && uuid != selected[18] {
			staged = append(staged, uuid)
		}
	}
	for i, name := range files {
		want := fmt.Sprintf("%03d_Episode_%s_Show_A.mp3", i+1, strings.TrimPrefix(staged[i], "ep-"))
		if name != want {
			t.Fatalf("file %d = %q, want %q", i, name, want)
		}
	}

	data, err := os.ReadFile(summary.PlaylistPath)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if lines[0] != "#EXTM3U" || len(lines) != 24 {
		t.Fatalf("unexpected playlist header/length: %q (%d lines)", lines[0], len(lines))
	}
	if !sort.StringsAreSorted(lines[1:]) {
		t.Fatal("playlist entries are not sorted")
	}
	if summary.PlaylistEntries != 23 {
		t.Fatalf("playlist entries = %d, want 23", summary.PlaylistEntries)
	}

	store, err := tokenstore.Open(cfg.TokenDBPath())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	cred, err := store.Load(context.Background())
	if err != nil || cred.Token != "tok-1" {
		t.Fatalf("expected persisted token, got %#v err=%v", cred, err)
	}

	// A second run reuses the token and downloads nothing new.
	second, err := newRunner(t, cfg, api).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.Cached != 23 || second.Downloaded != 0 || second.DownloadFailures != 2 || second.Staged != 23 {
		t.Fatalf("unexpected second summary: %+v", second)
	}
	loginCalls, mediaCalls = api.counts()
	if loginCalls != 1 {
		t.Fatalf("expected stored token reuse, got %d logins", loginCalls)
	}
	if mediaCalls != 17 {
		t.Fatalf("expected only the two failing episodes re-requested, got %d media calls", mediaCalls)
	}
	if files := mediaFiles(t, cfg.Paths.OutputDir); len(files) != 23 {
		t.Fatalf("expected 23 staged files after second run, got %d", len(files))
	}
}

func TestRunShowModeWithEvictionAndClear(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(t, api)
	api.addEpisode("a", 1200)
	api.addEpisode("b", 1200)

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"099_old.MP3", "old.m3u", "keep.txt"} {
		if err := os.WriteFile(filepath.Join(cfg.Paths.OutputDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	req := RequestFromConfig(cfg)
	req.ShowUUID = "show-1"
	req.EvictCache = true
	req.ClearOutput = true

	summary, err := newRunner(t, cfg, api).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Mode != "show" || summary.Staged != 2 || summary.OutputCleared != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	files := mediaFiles(t, cfg.Paths.OutputDir)
	want := []string{"001_Episode_a_Solo_Show.mp3", "002_Episode_b_Solo_Show.mp3"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", files, want)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "keep.txt")); err != nil {
		t.Fatalf("unrelated file should survive clear: %v", err)
	}
	for _, uuid := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.CacheDir, uuid)); !os.IsNotExist(err) {
			t.Fatalf("expected %s evicted from cache, stat err=%v", uuid, err)
		}
	}
}

func TestRunAuthenticationFailureIsFatal(t *testing.T) {
	api := newFakeAPI(t)
	api.loginStatus = http.StatusUnauthorized
	cfg := testConfig(t, api)
	api.addEpisode("a", 1200)

	_, err := newRunner(t, cfg, api).Run(context.Background(), RequestFromConfig(cfg))
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, cfg.Sync.PlaylistName)); !os.IsNotExist(statErr) {
		t.Fatalf("playlist must not be written after a fatal error, stat err=%v", statErr)
	}
}

func TestRunEmptyResolutionIsFatal(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(t, api)

	_, err := newRunner(t, cfg, api).Run(context.Background(), RequestFromConfig(cfg))
	if !errors.Is(err, services.ErrNoEpisodes) {
		t.Fatalf("expected no-episodes error, got %v", err)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(t, api)
	if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(cfg.Paths.CacheDir, LockFileName))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err = newRunner(t, cfg, api).Run(context.Background(), RequestFromConfig(cfg))
	if !errors.Is(err, services.ErrLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
	if loginCalls, _ := api.counts(); loginCalls != 0 {
		t.Fatalf("expected no login while locked, got %d", loginCalls)
	}
}

func TestRunRemovesStaleTempFiles(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(t, api)
	api.addEpisode("a", 1200)
	if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.Paths.CacheDir, ".a-123.part")
	if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := newRunner(t, cfg, api).Run(context.Background(), RequestFromConfig(cfg)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale temp file removed, stat err=%v", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(t, api)
	api.addEpisode("a", 1200)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner(t, cfg, api).Run(ctx, RequestFromConfig(cfg))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
