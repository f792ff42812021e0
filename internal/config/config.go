package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Account holds Pocket Casts credentials. Environment variables take
// precedence over values stored in the file.
type Account struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	EnvFile  string `toml:"env_file"`
}

// API contains remote endpoint configuration.
type API struct {
	LoginURL              string `toml:"login_url"`
	NewReleasesURL        string `toml:"new_releases_url"`
	PodcastBaseURL        string `toml:"podcast_base_url"`
	TokenValiditySeconds  int    `toml:"token_validity_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	UserAgent             string `toml:"user_agent"`
}

// Sync contains the per-run selection and staging defaults. CLI flags
// override these for a single invocation.
type Sync struct {
	EpisodeLimit      int    `toml:"episode_limit"`
	MinEpisodeMinutes int    `toml:"min_episode_minutes"`
	PlaylistName      string `toml:"playlist_name"`
	MediaExtension    string `toml:"media_extension"`
	Retag             bool   `toml:"retag"`
	ClearCache        bool   `toml:"clear_cache"`
	ClearOutput       bool   `toml:"clear_output"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for pcsync.
//
// Configuration sections by subsystem:
//   - Paths: cache, output, state (token database) and log directories
//   - Account: Pocket Casts credentials and optional .env file
//   - API: endpoint URLs, token validity and HTTP behaviour
//   - Sync: episode selection and output staging defaults
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Account Account `toml:"account"`
	API     API     `toml:"api"`
	Sync    Sync    `toml:"sync"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFile(cfg.Account.EnvFile); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pcsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadEnvFile populates the process environment from a dotenv file without
// overriding variables that are already set. An explicitly configured file
// must exist; the implicit ./.env is optional.
func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	} else {
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("account.env_file: %w", err)
		}
		path = expanded
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates the cache, output, state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TokenDBPath returns the location of the SQLite token database.
func (c *Config) TokenDBPath() string {
	return filepath.Join(c.Paths.StateDir, tokenDBFileName)
}

// TokenValidity returns how long a freshly issued token is considered valid.
func (c *Config) TokenValidity() time.Duration {
	return time.Duration(c.API.TokenValiditySeconds) * time.Second
}

// RequestTimeout returns the HTTP client timeout. Zero disables it.
func (c *Config) RequestTimeout() time.Duration {
	if c.API.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// HasCredentials reports whether both username and password are set.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.Account.Username) != "" && c.Account.Password != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
