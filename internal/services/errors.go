package services

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal markers abort the whole run.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrStorage        = errors.New("storage error")
	ErrAuthentication = errors.New("authentication error")
	ErrResolution     = errors.New("resolution error")
	ErrNoEpisodes     = errors.New("no episodes")
	ErrLocked         = errors.New("sync already running")
)

// Per-episode markers are logged and counted; the run continues.
var (
	ErrDownload = errors.New("download error")
	ErrStage    = errors.New("stage error")
)

// ErrTransient tags failures that carry no more specific marker.
var ErrTransient = errors.New("transient failure")

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err should terminate the sync run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDownload), errors.Is(err, ErrStage):
		return false
	default:
		return true
	}
}

// Kind returns a short label for the marker carried by err, used for log
// fields and exit messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrResolution):
		return "resolution"
	case errors.Is(err, ErrNoEpisodes):
		return "no_episodes"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrDownload):
		return "download"
	case errors.Is(err, ErrStage):
		return "stage"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
