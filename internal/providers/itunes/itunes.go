// Package itunes is a small client for the iTunes Search API, used as the
// artwork and podcast catalog.
package itunes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	providerhttp "github.com/justchokingaround/moodcast/internal/providers/http"
)

const (
	// DefaultBaseURL is the public search endpoint
	DefaultBaseURL = "https://itunes.apple.com/search"

	EntitySong    = "song"
	EntityPodcast = "podcast"
	MediaPodcast  = "podcast"
)

// ErrRateLimited is returned when a search could not get a pacing slot
// before its deadline. No request was sent.
var ErrRateLimited = errors.New("catalog rate limit reached")

// SearchParams describes one catalog query
type SearchParams struct {
	Term    string
	Entity  string
	Media   string
	Limit   int
	Country string
}

// Result is the subset of a catalog record the resolvers read
type Result struct {
	CollectionID      int64  `json:"collectionId"`
	ArtistName        string `json:"artistName"`
	CollectionName    string `json:"collectionName"`
	TrackName         string `json:"trackName"`
	ArtworkURL100     string `json:"artworkUrl100"`
	ArtworkURL600     string `json:"artworkUrl600"`
	TrackViewURL      string `json:"trackViewUrl"`
	CollectionViewURL string `json:"collectionViewUrl"`
	FeedURL           string `json:"feedUrl"`
}

type searchResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

// Config configures a catalog client
type Config struct {
	BaseURL string
	// RequestsPerMinute paces outgoing searches. Zero disables pacing.
	RequestsPerMinute int
	Burst             int
}

// Client searches the catalog
type Client struct {
	baseURL string
	http    *providerhttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a catalog client on top of the shared HTTP client
func NewClient(cfg Config, httpClient *providerhttp.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

// Search runs a catalog query. Pacing waits count against ctx, so a search
// that cannot get a slot before the deadline fails without hitting the network.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	query := url.Values{}
	query.Set("term", params.Term)
	if params.Entity != "" {
		query.Set("entity", params.Entity)
	}
	if params.Media != "" {
		query.Set("media", params.Media)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Country != "" {
		query.Set("country", params.Country)
	}

	resp, err := c.http.Get(ctx, c.baseURL+"?"+query.Encode(), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	c.logger.Debug("catalog search", "term", params.Term, "entity", params.Entity, "results", len(parsed.Results))
	return parsed.Results, nil
}
