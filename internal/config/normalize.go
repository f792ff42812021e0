package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAccount()
	c.normalizeAPI()
	c.normalizeSync()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAccount() {
	if value, ok := os.LookupEnv(usernameEnvVar); ok && strings.TrimSpace(value) != "" {
		c.Account.Username = value
	}
	if value, ok := os.LookupEnv(passwordEnvVar); ok && value != "" {
		c.Account.Password = value
	}
	c.Account.Username = strings.TrimSpace(c.Account.Username)
}

func (c *Config) normalizeAPI() {
	c.API.LoginURL = strings.TrimSpace(c.API.LoginURL)
	if c.API.LoginURL == "" {
		c.API.LoginURL = DefaultLoginURL
	}
	c.API.NewReleasesURL = strings.TrimSpace(c.API.NewReleasesURL)
	if c.API.NewReleasesURL == "" {
		c.API.NewReleasesURL = DefaultNewReleasesURL
	}
	c.API.PodcastBaseURL = strings.TrimRight(strings.TrimSpace(c.API.PodcastBaseURL), "/")
	if c.API.PodcastBaseURL == "" {
		c.API.PodcastBaseURL = DefaultPodcastBaseURL
	}
	if c.API.TokenValiditySeconds <= 0 {
		c.API.TokenValiditySeconds = defaultTokenValiditySeconds
	}
	if c.API.RequestTimeoutSeconds < 0 {
		c.API.RequestTimeoutSeconds = 0
	}
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.EpisodeLimit < 0 {
		c.Sync.EpisodeLimit = 0
	}
	if c.Sync.MinEpisodeMinutes < 0 {
		c.Sync.MinEpisodeMinutes = 0
	}
	c.Sync.PlaylistName = strings.TrimSpace(c.Sync.PlaylistName)
	if c.Sync.PlaylistName == "" {
		c.Sync.PlaylistName = defaultPlaylistName
	}
	c.Sync.MediaExtension = strings.TrimPrefix(strings.TrimSpace(c.Sync.MediaExtension), ".")
	if c.Sync.MediaExtension == "" {
		c.Sync.MediaExtension = defaultMediaExtension
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
