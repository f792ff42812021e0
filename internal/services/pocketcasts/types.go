package pocketcasts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Episode is one playable episode returned by the API.
type Episode struct {
	UUID            string
	PodcastUUID     string
	PodcastTitle    string
	Title           string
	URL             string
	DurationSeconds int
	Number          *int
}

// Podcast is a show with its full episode catalog.
type Podcast struct {
	UUID     string
	Title    string
	Episodes []Episode
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Scope    string `json:"scope"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type newReleasesResponse struct {
	Episodes []episodeRecord `json:"episodes"`
}

type podcastFullResponse struct {
	Podcast *podcastRecord `json:"podcast"`
}

type podcastRecord struct {
	UUID     string          `json:"uuid"`
	Title    string          `json:"title"`
	Episodes []episodeRecord `json:"episodes"`
}

type episodeRecord struct {
	UUID         string  `json:"uuid"`
	PodcastUUID  string  `json:"podcastUuid"`
	PodcastTitle string  `json:"podcastTitle"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Duration     Seconds `json:"duration"`
	Number       *int    `json:"number"`
}

// missingField names the first required field absent from the record.
func (r episodeRecord) missingField() string {
	switch {
	case strings.TrimSpace(r.UUID) == "":
		return "uuid"
	case strings.TrimSpace(r.URL) == "":
		return "url"
	default:
		return ""
	}
}

func (r episodeRecord) episode() Episode {
	return Episode{
		UUID:            strings.TrimSpace(r.UUID),
		PodcastUUID:     r.PodcastUUID,
		PodcastTitle:    r.PodcastTitle,
		Title:           r.Title,
		URL:             strings.TrimSpace(r.URL),
		DurationSeconds: int(r.Duration),
		Number:          r.Number,
	}
}

// Seconds decodes an episode duration given as a JSON number, a numeric
// string, or null. Null, an empty string, and negative values decode to 0.
type Seconds int

func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		raw = strings.TrimSpace(str)
		if raw == "" {
			*s = 0
			return nil
		}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("duration: invalid value %s", string(data))
	}
	if value < 0 {
		value = 0
	}
	*s = Seconds(math.Round(value))
	return nil
}
