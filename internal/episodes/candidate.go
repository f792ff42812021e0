package episodes

import "pcsync/internal/services/pocketcasts"

// Candidate is an episode selected for syncing.
type Candidate struct {
	UUID            string
	ShowName        string
	Title           string
	SourceURL       string
	DurationSeconds int
	Number          *int
	// CachedLocally is set once by the cache reconciler.
	CachedLocally bool
}

func fromEpisode(ep pocketcasts.Episode, showName string) Candidate {
	if showName == "" {
		showName = ep.PodcastTitle
	}
	return Candidate{
		UUID:            ep.UUID,
		ShowName:        showName,
		Title:           ep.Title,
		SourceURL:       ep.URL,
		DurationSeconds: ep.DurationSeconds,
		Number:          ep.Number,
	}
}

// Filter bounds the candidate list.
type Filter struct {
	// MinMinutes drops episodes shorter than this many minutes. Episodes with
	// an unknown (zero) duration always pass. Zero disables the filter.
	MinMinutes int
	// Limit keeps the first N episodes after filtering. Zero or less keeps all.
	Limit int
}

// Passes reports whether an episode of the given length survives the
// duration filter.
func (f Filter) Passes(durationSeconds int) bool {
	if f.MinMinutes <= 0 {
		return true
	}
	return durationSeconds == 0 || durationSeconds >= f.MinMinutes*60
}

// Apply filters by duration and then truncates to Limit, preserving order.
func (f Filter) Apply(candidates []Candidate) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if f.Passes(c.DurationSeconds) {
			kept = append(kept, c)
		}
	}
	if f.Limit > 0 && len(kept) > f.Limit {
		kept = kept[:f.Limit]
	}
	return kept
}
