package syncrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"pcsync/internal/auth"
	"pcsync/internal/cache"
	"pcsync/internal/config"
	"pcsync/internal/download"
	"pcsync/internal/episodes"
	"pcsync/internal/logging"
	"pcsync/internal/output"
	"pcsync/internal/preflight"
	"pcsync/internal/services"
	"pcsync/internal/services/pocketcasts"
	"pcsync/internal/staging"
	"pcsync/internal/tokenstore"
)

const (
	stagePrepare  = "prepare"
	stageLock     = "lock"
	stageAuth     = "auth"
	stageResolve  = "resolve"
	stageClear    = "clear_output"
	stageDownload = "download"
	stageStage    = "stage"
	stagePlaylist = "playlist"

	// LockFileName is created inside the cache directory while a run is active.
	LockFileName = ".pcsync.lock"
)

// HTTPDoer abstracts http.Client.Do for the API client and the downloader.
type HTTPDoer interface {
	pocketcasts.HTTPDoer
}

// Option customises Runner construction.
type Option func(*Runner)

// WithHTTPClient routes API calls and media downloads through doer.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(r *Runner) {
		r.http = doer
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTagger overrides the ID3 writer used on retag.
func WithTagger(tagger output.Tagger) Option {
	return func(r *Runner) {
		r.tagger = tagger
	}
}

// WithRunID sets the identifier stamped on every log line of the run.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(id) != "" {
			r.runID = id
		}
	}
}

// Runner executes sync runs against one configuration.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	http   HTTPDoer
	now    func() time.Time
	tagger output.Tagger
	runID  string
}

// New builds a Runner.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stagePrepare, "", "config is required", nil)
	}
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "sync"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = NewRunID()
	}
	return r, nil
}

// RunID returns the identifier of the runs this Runner executes.
func (r *Runner) RunID() string {
	return r.runID
}

// Run performs one sync. The returned error is nil unless a fatal failure
// aborted the run or ctx was cancelled; the Summary is filled in either case
// with whatever was completed.
func (r *Runner) Run(ctx context.Context, req Request) (Summary, error) {
	started := time.Now()
	summary, err := r.run(services.WithRunID(ctx, r.runID), req, started)
	summary.Duration = time.Since(started)
	return summary, err
}

func (r *Runner) run(ctx context.Context, req Request, started time.Time) (Summary, error) {
	logger := logging.WithContext(ctx, r.logger)
	summary := Summary{RunID: r.runID, Mode: req.Mode()}

	if strings.TrimSpace(req.PlaylistName) == "" {
		req.PlaylistName = r.cfg.Sync.PlaylistName
	}

	cacheDir := r.cfg.Paths.CacheDir
	stager := output.NewStager(output.Options{
		CacheDir:  cacheDir,
		OutputDir: r.cfg.Paths.OutputDir,
		Extension: r.cfg.Sync.MediaExtension,
		Retag:     req.Retag,
		Evict:     req.EvictCache,
	}, r.logger, output.WithTagger(r.tagger))

	logger.Info("sync started",
		logging.String("mode", req.Mode()),
		logging.String("cache_dir", cacheDir),
		logging.String("output_dir", r.cfg.Paths.OutputDir),
		logging.Int("limit", req.Limit),
		logging.Int("min_minutes", req.MinMinutes),
		logging.Bool("retag", req.Retag),
		logging.Bool("evict_cache", req.EvictCache),
		logging.Bool("clear_output", req.ClearOutput),
	)

	// 1. directories
	if err := r.prepareDirectories(stager); err != nil {
		return r.abort(ctx, summary, stagePrepare, err, "check cache_dir and output_dir exist and are writable")
	}

	// 2. single-instance lock
	lock := flock.New(filepath.Join(cacheDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return r.abort(ctx, summary, stageLock,
			services.Wrap(services.ErrStorage, stageLock, "acquire", "lock cache directory", err),
			"check cache_dir permissions")
	}
	if !locked {
		return r.abort(ctx, summary, stageLock,
			services.Wrap(services.ErrLocked, stageLock, "acquire", "another pcsync run holds "+lock.Path(), nil),
			"wait for the other run to finish")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(logger, "failed to release run lock", "lock_release_failed",
				logging.String("path", lock.Path()),
				logging.Error(err),
			)
		}
	}()

	// 3. leftovers from an interrupted run
	for _, dir := range []string{cacheDir, r.cfg.Paths.OutputDir} {
		staging.CleanStale(ctx, dir, 0, logger)
	}

	// 4. authenticate
	token, err := r.authenticate(ctx)
	if err != nil {
		return r.abort(ctx, summary, stageAuth, err, "verify PC_USERNAME/PC_PASSWORD and the login endpoint")
	}

	// 5. resolve
	client := r.apiClient()
	resolver := episodes.NewResolver(client, r.logger)
	filter := episodes.Filter{MinMinutes: req.MinMinutes, Limit: req.Limit}
	var candidates []episodes.Candidate
	if req.Mode() == "show" {
		candidates, err = resolver.Show(ctx, token, req.ShowUUID, filter)
	} else {
		candidates, err = resolver.Latest(ctx, token, filter)
	}
	if err != nil {
		return r.abort(ctx, summary, stageResolve, err, "check network access and the podcast uuid")
	}
	summary.Resolved = len(candidates)

	// 6. reconcile
	summary.Cached = cache.Reconcile(cacheDir, candidates, r.logger)
	_, toDownload := cache.Partition(candidates)
	logger.Info("cache reconciled",
		logging.Int("cached", summary.Cached),
		logging.Int("to_download", len(toDownload)),
	)

	// 7. optional output clear
	if req.ClearOutput {
		removed, err := stager.ClearOutput()
		summary.OutputCleared = removed
		if err != nil {
			return r.abort(ctx, summary, stageClear, err, "check output_dir permissions")
		}
	}

	// 8. downloads
	available := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		available[c.UUID] = c.CachedLocally
	}
	downloader := download.New(
		download.WithHTTPClient(r.http),
		download.WithUserAgent(r.cfg.API.UserAgent),
		download.WithLogger(r.logger),
	)
	for _, c := range toDownload {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, summary, stageDownload, err, "")
		}
		if _, err := downloader.Download(ctx, c, cacheDir); err != nil {
			if services.IsFatal(err) {
				return r.abort(ctx, summary, stageDownload, err, "")
			}
			r.itemFailed(ctx, &summary, stageDownload, c, err)
			continue
		}
		available[c.UUID] = true
		summary.Downloaded++
	}

	// 9. stage with a dense sequence over successes
	seq := 1
	for _, c := range candidates {
		if !available[c.UUID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, summary, stageStage, err, "")
		}
		if _, err := stager.Stage(ctx, c, seq); err != nil {
			if services.IsFatal(err) {
				return r.abort(ctx, summary, stageStage, err, "")
			}
			r.itemFailed(ctx, &summary, stageStage, c, err)
			continue
		}
		seq++
		summary.Staged++
	}

	// 10. playlist
	path, entries, err := stager.WritePlaylist(req.PlaylistName)
	if err != nil {
		return r.abort(ctx, summary, stagePlaylist, err, "check output_dir permissions")
	}
	summary.PlaylistPath = path
	summary.PlaylistEntries = entries

	logger.Info("sync complete",
		logging.String(logging.FieldEventType, "sync_complete"),
		logging.Int("resolved", summary.Resolved),
		logging.Int("cached", summary.Cached),
		logging.Int("downloaded", summary.Downloaded),
		logging.Int("download_failures", summary.DownloadFailures),
		logging.Int("staged", summary.Staged),
		logging.Int("stage_failures", summary.StageFailures),
		logging.String("playlist", summary.PlaylistPath),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return summary, nil
}

func (r *Runner) prepareDirectories(stager *output.Stager) error {
	if err := cache.Prepare(r.cfg.Paths.CacheDir); err != nil {
		return err
	}
	if err := stager.Prepare(); err != nil {
		return err
	}
	for _, check := range []preflight.Result{
		preflight.CheckDirectoryAccess("cache directory", r.cfg.Paths.CacheDir),
		preflight.CheckDirectoryAccess("output directory", r.cfg.Paths.OutputDir),
	} {
		if !check.Passed {
			return services.Wrap(services.ErrStorage, stagePrepare, check.Name, check.Detail, nil)
		}
	}
	return nil
}

func (r *Runner) authenticate(ctx context.Context) (string, error) {
	store, err := tokenstore.Open(r.cfg.TokenDBPath())
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stageAuth, "open token store", r.cfg.TokenDBPath(), err)
	}
	defer store.Close()

	authenticator := auth.New(store, r.apiClient(), r.cfg.TokenValidity(),
		auth.WithClock(r.now),
		auth.WithLogger(r.logger),
	)
	return authenticator.Authenticate(ctx, auth.Credentials{
		Username: r.cfg.Account.Username,
		Password: r.cfg.Account.Password,
	})
}

func (r *Runner) apiClient() *pocketcasts.Client {
	client := pocketcasts.NewFromConfig(r.cfg, r.logger)
	if r.http != nil {
		pocketcasts.WithHTTPClient(r.http)(client)
	}
	return client
}

func (r *Runner) itemFailed(ctx context.Context, summary *Summary, stage string, c episodes.Candidate, err error) {
	summary.recordFailure(stage, c, err)
	logger := logging.WithContext(services.WithEpisode(services.WithStage(ctx, stage), c.UUID), r.logger)
	logging.WarnWithContext(logger, "episode skipped", stage+"_failed",
		logging.String(logging.FieldEpisodeTitle, c.Title),
		logging.String(logging.FieldShowName, c.ShowName),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the episode is retried on the next run"),
		logging.String(logging.FieldImpact, "episode missing from this playlist"),
	)
}

func (r *Runner) abort(ctx context.Context, summary Summary, stage string, err error, hint string) (Summary, error) {
	logger := logging.WithContext(services.WithStage(ctx, stage), r.logger)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("sync cancelled",
			logging.String(logging.FieldEventType, "sync_cancelled"),
			logging.Int("staged", summary.Staged),
		)
		return summary, err
	}
	if hint == "" {
		hint = "check logs for details"
	}
	logging.ErrorWithContext(logger, "sync aborted", "sync_failed",
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
	)
	return summary, fmt.Errorf("sync %s: %w", stage, err)
}
