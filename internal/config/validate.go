package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are not checked
// here because commands such as `config init` or `cache list` never log in;
// the authenticator rejects missing credentials before contacting the API.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if filepath.Clean(c.Paths.CacheDir) == filepath.Clean(c.Paths.OutputDir) {
		return errors.New("paths.cache_dir and paths.output_dir must be different directories")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateAPI() error {
	for name, value := range map[string]string{
		"api.login_url":        c.API.LoginURL,
		"api.new_releases_url": c.API.NewReleasesURL,
		"api.podcast_base_url": c.API.PodcastBaseURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, value)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	name := c.Sync.PlaylistName
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("sync.playlist_name must be a bare file name, got %q", name)
	}
	if strings.ContainsAny(c.Sync.MediaExtension, `/\. `) {
		return fmt.Errorf("sync.media_extension must be a bare extension, got %q", c.Sync.MediaExtension)
	}
	return nil
}
