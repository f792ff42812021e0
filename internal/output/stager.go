package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"pcsync/internal/cache"
	"pcsync/internal/episodes"
	"pcsync/internal/fileutil"
	"pcsync/internal/logging"
	"pcsync/internal/services"
	"pcsync/internal/textutil"
)

const (
	stageName = "stage"

	playlistHeader = "#EXTM3U"
	playlistExt    = ".m3u"
	albumTag       = "PODCASTS"
	genreTag       = "Podcast"
)

// Options configures a Stager.
type Options struct {
	CacheDir  string
	OutputDir string
	// Extension is the media file extension without a leading dot.
	Extension string
	// Retag rewrites ID3 tags on each staged file.
	Retag bool
	// Evict removes the cache file once its copy is committed.
	Evict bool
}

// Option customises Stager construction.
type Option func(*Stager)

// WithTagger overrides the metadata writer (used in tests).
func WithTagger(tagger Tagger) Option {
	return func(s *Stager) {
		if tagger != nil {
			s.tagger = tagger
		}
	}
}

// Stager copies cached episodes into the output directory.
type Stager struct {
	opts   Options
	tagger Tagger
	logger *slog.Logger
}

// NewStager builds a Stager.
func NewStager(opts Options, logger *slog.Logger, extra ...Option) *Stager {
	opts.Extension = strings.TrimPrefix(strings.TrimSpace(opts.Extension), ".")
	if opts.Extension == "" {
		opts.Extension = "mp3"
	}
	s := &Stager{
		opts:   opts,
		tagger: ID3Tagger{},
		logger: logging.NewComponentLogger(logger, "output"),
	}
	for _, opt := range extra {
		opt(s)
	}
	return s
}

// Prepare creates the output directory if needed.
func (s *Stager) Prepare() error {
	if strings.TrimSpace(s.opts.OutputDir) == "" {
		return services.Wrap(services.ErrStorage, stageName, "prepare", "output directory not configured", nil)
	}
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, stageName, "prepare", "create output directory", err)
	}
	return nil
}

// MaxFileNameBytes is the longest file name most filesystems accept.
const MaxFileNameBytes = 255

// FileName returns "{seq:03d}_{title}_{show}.{ext}" with title and show
// sanitized. When the result would exceed MaxFileNameBytes the title is
// shortened first, then the show, at rune boundaries.
func (s *Stager) FileName(seq int, show, title string) string {
	prefix := fmt.Sprintf("%03d_", seq)
	suffix := "." + s.opts.Extension
	title = textutil.SanitizeFileName(title)
	show = textutil.SanitizeFileName(show)

	budget := MaxFileNameBytes - len(prefix) - len("_") - len(suffix)
	if len(title)+len(show) > budget {
		keepShow := min(len(show), budget/2)
		title = truncateBytes(title, budget-keepShow)
		show = truncateBytes(show, budget-len(title))
	}
	return prefix + title + "_" + show + suffix
}

func truncateBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Stage copies the candidate's cache file into the output directory as
// sequence number seq and returns the destination path. Failures are marked
// ErrStage and leave the cache file in place.
func (s *Stager) Stage(ctx context.Context, candidate episodes.Candidate, seq int) (string, error) {
	ctx = services.WithEpisode(services.WithStage(ctx, stageName), candidate.UUID)
	logger := logging.WithContext(ctx, s.logger)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	src := cache.Path(s.opts.CacheDir, candidate.UUID)
	dst := filepath.Join(s.opts.OutputDir, s.FileName(seq, candidate.ShowName, candidate.Title))

	var finalize func(string) error
	if s.opts.Retag {
		tags := RetagFields(seq, candidate)
		finalize = func(tempPath string) error {
			if err := s.tagger.Retag(tempPath, tags); err != nil {
				return services.Wrap(services.ErrStage, stageName, "retag", "rewrite tags", err)
			}
			return nil
		}
	}

	written, err := fileutil.CopyFileAtomic(src, dst, 0o644, finalize)
	if err != nil {
		if errors.Is(err, services.ErrStage) {
			return "", err
		}
		return "", services.Wrap(services.ErrStage, stageName, "copy", filepath.Base(dst), err)
	}

	logger.Info("episode staged",
		logging.Int("sequence", seq),
		logging.String("file", filepath.Base(dst)),
		logging.Int64("bytes", written),
		logging.Bool("retagged", s.opts.Retag),
	)

	if s.opts.Evict {
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			logging.WarnWithContext(logger, "cache eviction failed", "cache_evict_failed",
				logging.String("path", src),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
				logging.String(logging.FieldImpact, "episode stays cached"),
			)
		} else {
			logger.Debug("cache file evicted", logging.String("path", src))
		}
	}
	return dst, nil
}

// RetagFields returns the tags written for a staged episode.
func RetagFields(seq int, candidate episodes.Candidate) Tags {
	return Tags{
		Title:  fmt.Sprintf("%03d-%s=%s", seq, candidate.Title, candidate.ShowName),
		Artist: candidate.ShowName,
		Album:  albumTag,
		Genre:  genreTag,
		Track:  fmt.Sprintf("%02d", seq),

		OriginalArtist: candidate.ShowName,
		Podcast:        true,
	}
}

// ClearOutput removes media and playlist files from the output directory and
// returns how many were removed. Extensions match case-insensitively.
func (s *Stager) ClearOutput() (int, error) {
	entries, err := os.ReadDir(s.opts.OutputDir)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, stageName, "clear output", "read output directory", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != s.mediaExt() && ext != playlistExt {
			continue
		}
		path := filepath.Join(s.opts.OutputDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, services.Wrap(services.ErrStorage, stageName, "clear output", entry.Name(), err)
		}
		removed++
		s.logger.Debug("output file removed", logging.String("path", path))
	}
	s.logger.Info("output directory cleared", logging.Int("removed", removed))
	return removed, nil
}

// WritePlaylist writes an M3U playlist named name into the output directory
// listing every media file there in lexicographic order. It returns the
// playlist path and the number of entries.
func (s *Stager) WritePlaylist(name string) (string, int, error) {
	files, err := s.MediaFiles()
	if err != nil {
		return "", 0, services.Wrap(services.ErrStorage, stageName, "playlist", "list output directory", err)
	}

	var b strings.Builder
	b.WriteString(playlistHeader)
	b.WriteByte('\n')
	for _, f := range files {
		b.WriteString(f)
		b.WriteByte('\n')
	}

	path := filepath.Join(s.opts.OutputDir, name)
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", 0, services.Wrap(services.ErrStorage, stageName, "playlist", "write playlist", err)
	}
	s.logger.Info("playlist written",
		logging.String("path", path),
		logging.Int("entries", len(files)),
	)
	return path, len(files), nil
}

// MediaFiles lists the media file names in the output directory, sorted.
func (s *Stager) MediaFiles() ([]string, error) {
	entries, err := os.ReadDir(s.opts.OutputDir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || fileutil.IsTempName(entry.Name()) {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == s.mediaExt() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Stager) mediaExt() string {
	return "." + strings.ToLower(s.opts.Extension)
}
