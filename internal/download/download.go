// Package download streams episode media into the cache directory.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"pcsync/internal/cache"
	"pcsync/internal/episodes"
	"pcsync/internal/fileutil"
	"pcsync/internal/logging"
	"pcsync/internal/services"
)

const stageName = "download"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises Downloader construction.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(d *Downloader) {
		if doer != nil {
			d.http = doer
		}
	}
}

// WithUserAgent sets the User-Agent header on media requests.
func WithUserAgent(agent string) Option {
	return func(d *Downloader) {
		d.userAgent = agent
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logging.NewComponentLogger(logger, "download")
	}
}

// Downloader fetches one episode at a time.
type Downloader struct {
	http      HTTPDoer
	userAgent string
	logger    *slog.Logger
}

// New constructs a Downloader. Redirects are followed by the HTTP client.
func New(opts ...Option) *Downloader {
	d := &Downloader{http: &http.Client{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download streams the candidate's media to dir/<uuid>. The file appears only
// once it is complete; any failure removes the partial temp file and returns
// an error marked ErrDownload. An existing cache file is replaced.
func (d *Downloader) Download(ctx context.Context, candidate episodes.Candidate, dir string) (int64, error) {
	ctx = services.WithEpisode(services.WithStage(ctx, stageName), candidate.UUID)
	logger := logging.WithContext(ctx, d.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate.SourceURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, stageName, "request", "build request", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	started := time.Now()
	logger.Info("downloading episode",
		logging.String(logging.FieldShowName, candidate.ShowName),
		logging.String(logging.FieldEpisodeTitle, candidate.Title),
		logging.String("url", candidate.SourceURL),
	)

	resp, err := d.http.Do(req)
	if err != nil {
		return 0, d.wrap(ctx, "fetch", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, services.Wrap(services.ErrDownload, stageName, "fetch",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	out, err := fileutil.CreateAtomic(cache.Path(dir, candidate.UUID), 0o644)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, stageName, "write", "create temp file", err)
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Abort()
		return written, d.wrap(ctx, "write", "stream body", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		out.Abort()
		return written, services.Wrap(services.ErrDownload, stageName, "write",
			fmt.Sprintf("short body: got %d of %d bytes", written, resp.ContentLength), nil)
	}
	if err := out.Commit(); err != nil {
		return written, services.Wrap(services.ErrDownload, stageName, "commit", "publish cache file", err)
	}

	logger.Info("episode downloaded",
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return written, nil
}

func (d *Downloader) wrap(ctx context.Context, operation, message string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	return services.Wrap(services.ErrDownload, stageName, operation, message, err)
}
