package syncrun

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pcsync/internal/config"
)

// Request holds the per-run knobs the CLI may override.
type Request struct {
	// ShowUUID selects a single show's catalog; empty means new releases.
	ShowUUID     string
	Limit        int
	MinMinutes   int
	Retag        bool
	EvictCache   bool
	ClearOutput  bool
	PlaylistName string
}

// RequestFromConfig seeds a Request from the [sync] section.
func RequestFromConfig(cfg *config.Config) Request {
	if cfg == nil {
		return Request{}
	}
	return Request{
		Limit:        cfg.Sync.EpisodeLimit,
		MinMinutes:   cfg.Sync.MinEpisodeMinutes,
		Retag:        cfg.Sync.Retag,
		EvictCache:   cfg.Sync.ClearCache,
		ClearOutput:  cfg.Sync.ClearOutput,
		PlaylistName: cfg.Sync.PlaylistName,
	}
}

// Mode names the resolution mode for logs.
func (r Request) Mode() string {
	if strings.TrimSpace(r.ShowUUID) != "" {
		return "show"
	}
	return "new_releases"
}

// NewRunID returns a sortable, collision-resistant run identifier.
func NewRunID() string {
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405.000Z"), uuid.NewString()[:8])
}
