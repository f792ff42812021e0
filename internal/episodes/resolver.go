package episodes

import (
	"context"
	"errors"
	"log/slog"

	"pcsync/internal/logging"
	"pcsync/internal/services"
	"pcsync/internal/services/pocketcasts"
)

const stageName = "resolve"

// Source lists episodes from the remote API.
type Source interface {
	NewReleases(ctx context.Context, token string) ([]pocketcasts.Episode, error)
	PodcastFull(ctx context.Context, token, podcastUUID string) (pocketcasts.Podcast, error)
}

// Resolver turns API listings into filtered candidate lists.
type Resolver struct {
	source Source
	logger *slog.Logger
}

// NewResolver builds a Resolver reading from source.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logging.NewComponentLogger(logger, "episodes")}
}

// Latest resolves candidates from the account's new releases.
func (r *Resolver) Latest(ctx context.Context, token string, filter Filter) ([]Candidate, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, r.logger).With(logging.String("mode", "new_releases"))

	eps, err := r.source.NewReleases(ctx, token)
	if err != nil {
		return nil, r.resolutionError(logger, "new releases", err)
	}
	candidates := make([]Candidate, 0, len(eps))
	for _, ep := range eps {
		candidates = append(candidates, fromEpisode(ep, ""))
	}
	return r.finish(logger, candidates, filter)
}

// Show resolves candidates from one podcast's full catalog.
func (r *Resolver) Show(ctx context.Context, token, showUUID string, filter Filter) ([]Candidate, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String("mode", "show"),
		logging.String("podcast_uuid", showUUID),
	)

	show, err := r.source.PodcastFull(ctx, token, showUUID)
	if err != nil {
		return nil, r.resolutionError(logger, "podcast full", err)
	}
	candidates := make([]Candidate, 0, len(show.Episodes))
	for _, ep := range show.Episodes {
		candidates = append(candidates, fromEpisode(ep, show.Title))
	}
	logger.Info("show catalog fetched", logging.String(logging.FieldShowName, show.Title))
	return r.finish(logger, candidates, filter)
}

func (r *Resolver) resolutionError(logger *slog.Logger, operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logging.ErrorWithContext(logger, "episode listing failed", "resolution_failed",
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network access and that the token is accepted"),
	)
	return services.Wrap(services.ErrResolution, stageName, operation, "episode listing unavailable", err)
}

func (r *Resolver) finish(logger *slog.Logger, candidates []Candidate, filter Filter) ([]Candidate, error) {
	total := len(candidates)
	filtered := Filter{MinMinutes: filter.MinMinutes}.Apply(candidates)
	limited := Filter{Limit: filter.Limit}.Apply(filtered)

	logger.Info("episodes resolved",
		logging.Int("received", total),
		logging.Int("long_enough", len(filtered)),
		logging.Int("selected", len(limited)),
		logging.Int("min_minutes", filter.MinMinutes),
		logging.Int("limit", filter.Limit),
	)
	if len(limited) == 0 {
		logging.ErrorWithContext(logger, "no episodes to sync", "resolution_empty",
			logging.Int("received", total),
			logging.String(logging.FieldErrorHint, "the listing succeeded but returned nothing usable; relax min_episode_minutes or pick another show"),
		)
		return nil, services.Wrap(services.ErrNoEpisodes, stageName, "", "listing returned no usable episodes", nil)
	}
	return limited, nil
}
