package config

const (
	defaultConfigPath            = "~/.config/pcsync/config.toml"
	defaultCacheDir              = "~/.cache/pcsync/episodes"
	defaultOutputDir             = "output"
	defaultStateDir              = "~/.local/share/pcsync"
	defaultLogDir                = "~/.local/share/pcsync/logs"
	DefaultLoginURL              = "https://api.pocketcasts.com/user/login"
	DefaultNewReleasesURL        = "https://api.pocketcasts.com/user/new_releases"
	DefaultPodcastBaseURL        = "https://podcast-api.pocketcasts.com"
	defaultTokenValiditySeconds  = 7200
	defaultUserAgent             = "pcsync/dev"
	defaultEpisodeLimit          = 30
	defaultPlaylistName          = "playlist.m3u"
	defaultMediaExtension        = "mp3"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	tokenDBFileName              = "pcsync.db"
	usernameEnvVar               = "PC_USERNAME"
	passwordEnvVar               = "PC_PASSWORD"
	defaultRequestTimeoutSeconds = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		API: API{
			LoginURL:              DefaultLoginURL,
			NewReleasesURL:        DefaultNewReleasesURL,
			PodcastBaseURL:        DefaultPodcastBaseURL,
			TokenValiditySeconds:  defaultTokenValiditySeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			UserAgent:             defaultUserAgent,
		},
		Sync: Sync{
			EpisodeLimit:   defaultEpisodeLimit,
			PlaylistName:   defaultPlaylistName,
			MediaExtension: defaultMediaExtension,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
