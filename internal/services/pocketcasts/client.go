package pocketcasts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"pcsync/internal/config"
	"pcsync/internal/logging"
)

// loginScope is the token scope the web player requests.
const loginScope = "webplayer"

// ErrMalformedResponse indicates a 2xx response whose body did not match the
// expected schema.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError reports an unexpected HTTP status from the API.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pocketcasts %s %s returned %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("pocketcasts %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Endpoints groups the API URLs the client calls.
type Endpoints struct {
	LoginURL       string
	NewReleasesURL string
	PodcastBaseURL string
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithEndpoints overrides the API URLs (used in tests).
func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Client) {
		c.endpoints = normalizeEndpoints(endpoints)
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// WithLogger attaches a logger for skipped-entry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "pocketcasts")
	}
}

// Client talks to the Pocket Casts API.
type Client struct {
	http      HTTPDoer
	endpoints Endpoints
	userAgent string
	logger    *slog.Logger
}

// NewClient constructs a Client. Without options it uses http.DefaultClient
// semantics (no timeout) and the production endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{},
		endpoints: normalizeEndpoints(Endpoints{
			LoginURL:       config.DefaultLoginURL,
			NewReleasesURL: config.DefaultNewReleasesURL,
			PodcastBaseURL: config.DefaultPodcastBaseURL,
		}),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from the [api] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	if cfg == nil {
		return NewClient(WithLogger(logger))
	}
	return NewClient(
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithEndpoints(Endpoints{
			LoginURL:       cfg.API.LoginURL,
			NewReleasesURL: cfg.API.NewReleasesURL,
			PodcastBaseURL: cfg.API.PodcastBaseURL,
		}),
		WithUserAgent(cfg.API.UserAgent),
		WithLogger(logger),
	)
}

func normalizeEndpoints(e Endpoints) Endpoints {
	e.LoginURL = strings.TrimSpace(e.LoginURL)
	e.NewReleasesURL = strings.TrimSpace(e.NewReleasesURL)
	e.PodcastBaseURL = strings.TrimRight(strings.TrimSpace(e.PodcastBaseURL), "/")
	return e
}

// Login exchanges an email and password for a bearer token. Only HTTP 200
// with a non-empty token counts as success.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := loginRequest{Email: email, Password: password, Scope: loginScope}
	var resp loginResponse
	status, err := c.doJSONRequest(ctx, c.endpoints.LoginURL, "", body, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &StatusError{Method: http.MethodPost, URL: c.endpoints.LoginURL, StatusCode: status}
	}
	token := strings.TrimSpace(resp.Token)
	if token == "" {
		return "", fmt.Errorf("%w: login response missing token", ErrMalformedResponse)
	}
	return token, nil
}

// NewReleases returns the signed-in user's new releases in remote order.
func (c *Client) NewReleases(ctx context.Context, token string) ([]Episode, error) {
	var resp newReleasesResponse
	if _, err := c.doJSONRequest(ctx, c.endpoints.NewReleasesURL, token, nil, &resp); err != nil {
		return nil, err
	}
	return c.convertEpisodes(resp.Episodes, "", ""), nil
}

// PodcastFull returns one show and its complete episode list. Episodes
// inherit the show's uuid and title.
func (c *Client) PodcastFull(ctx context.Context, token, podcastUUID string) (Podcast, error) {
	podcastUUID = strings.TrimSpace(podcastUUID)
	if podcastUUID == "" {
		return Podcast{}, errors.New("podcast uuid is required")
	}
	endpoint := c.endpoints.PodcastBaseURL + "/podcast/full/" + url.PathEscape(podcastUUID)

	var resp podcastFullResponse
	if _, err := c.doJSONRequest(ctx, endpoint, token, nil, &resp); err != nil {
		return Podcast{}, err
	}
	if resp.Podcast == nil {
		return Podcast{}, fmt.Errorf("%w: podcast object missing", ErrMalformedResponse)
	}
	pod := resp.Podcast
	show := Podcast{UUID: pod.UUID, Title: pod.Title}
	if show.UUID == "" {
		show.UUID = podcastUUID
	}
	show.Episodes = c.convertEpisodes(pod.Episodes, show.UUID, show.Title)
	return show, nil
}

func (c *Client) convertEpisodes(records []episodeRecord, podcastUUID, podcastTitle string) []Episode {
	episodes := make([]Episode, 0, len(records))
	for idx, record := range records {
		if field := record.missingField(); field != "" {
			logging.WarnWithContext(c.logger, "skipping episode entry", "episode_entry_rejected",
				logging.Int("index", idx),
				logging.String("missing_field", field),
				logging.String(logging.FieldEpisodeUUID, record.UUID),
				logging.String(logging.FieldEpisodeTitle, record.Title),
				logging.String(logging.FieldErrorHint, "the API returned an entry without a uuid or url"),
				logging.String(logging.FieldImpact, "episode not synced"),
			)
			continue
		}
		ep := record.episode()
		if podcastUUID != "" {
			ep.PodcastUUID = podcastUUID
		}
		if podcastTitle != "" && ep.PodcastTitle == "" {
			ep.PodcastTitle = podcastTitle
		}
		episodes = append(episodes, ep)
	}
	return episodes
}

// doJSONRequest POSTs body (or nothing) to endpoint and decodes a 2xx JSON
// response into out. It returns the status code so Login can insist on 200.
func (c *Client) doJSONRequest(ctx context.Context, endpoint, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pocketcasts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &StatusError{
			Method:     http.MethodPost,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, err)
	}
	return resp.StatusCode, nil
}
