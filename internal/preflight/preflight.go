package preflight

import (
	"context"

	"pcsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects optional checks.
type Options struct {
	// Network checks that the Pocket Casts API hosts are reachable.
	Network bool
}

// RunAll executes the preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckCredentials(cfg),
		CheckStoredToken(ctx, cfg.TokenDBPath()),
	}

	if opts.Network {
		results = append(results,
			CheckEndpoint(ctx, "Login API", cfg.API.LoginURL),
			CheckEndpoint(ctx, "Podcast API", cfg.API.PodcastBaseURL),
		)
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
