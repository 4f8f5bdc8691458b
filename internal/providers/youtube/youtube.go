// Package youtube fetches YouTube search result pages and builds playback URLs.
package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	providerhttp "github.com/justchokingaround/moodcast/internal/providers/http"
)

const (
	searchURLTemplate = "https://www.youtube.com/results?search_query=%s"
	watchURLTemplate  = "https://www.youtube.com/watch?v=%s"
	musicURLTemplate  = "https://music.youtube.com/watch?v=%s"

	// BrowserUserAgent is sent with page fetches. YouTube serves a stripped
	// page without the embedded initial data to non-browser clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// BrowserHeaders are the request headers used for search page fetches
func BrowserHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = BrowserUserAgent
	}
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// SearchURL returns the results page URL for a free-text query
func SearchURL(query string) string {
	return fmt.Sprintf(searchURLTemplate, url.QueryEscape(query))
}

// IsSearchURL reports whether raw is a YouTube results page URL of the
// shape SearchURL produces. Anything else must not be fetched.
func IsSearchURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User != nil || u.Port() != "" {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	switch strings.ToLower(u.Hostname()) {
	case "www.youtube.com", "youtube.com":
	default:
		return false
	}
	return u.Path == "/results"
}

// WatchURL returns the standard watch URL for a video id
func WatchURL(videoID string) string {
	return fmt.Sprintf(watchURLTemplate, videoID)
}

// MusicURL returns the YouTube Music watch URL for a video id
func MusicURL(videoID string) string {
	return fmt.Sprintf(musicURLTemplate, videoID)
}

// Client fetches search result pages
type Client struct {
	http    *providerhttp.Client
	headers map[string]string
	logger  *slog.Logger
}

// NewClient creates a page client. An empty userAgent selects BrowserUserAgent.
func NewClient(httpClient *providerhttp.Client, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    httpClient,
		headers: BrowserHeaders(userAgent),
		logger:  logger,
	}
}

// FetchSearchPage returns the raw markup of a search results page
func (c *Client) FetchSearchPage(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.http.Get(ctx, pageURL, c.headers)
	if err != nil {
		return "", fmt.Errorf("failed to fetch search page: %w", err)
	}

	c.logger.Debug("fetched search page", "url", pageURL, "bytes", len(resp.Body()))
	return resp.String(), nil
}
