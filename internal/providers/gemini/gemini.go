// Package gemini generates song suggestions and podcast search keywords for a
// mood using the Gemini generateContent REST API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	providerhttp "github.com/justchokingaround/moodcast/internal/providers/http"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	// MaxPodcastTerms caps the keywords requested for a podcast search
	MaxPodcastTerms = 5
)

var (
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("gemini api key not configured")

	errUnparseable = errors.New("model output is not a JSON array")
)

// SongSuggestion is one generated song
type SongSuggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Config configures the generator
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	// Attempts is how many times a generation is tried when the model
	// answers with something that is not a JSON array
	Attempts uint
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Client talks to the Gemini API
type Client struct {
	cfg    Config
	http   *providerhttp.Client
	logger *slog.Logger
}

// NewClient creates a generator client
func NewClient(cfg Config, httpClient *providerhttp.Client, logger *slog.Logger) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.9
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// IsConfigured reports whether an API key is set
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// SongSuggestions asks the model for count songs matching mood
func (c *Client) SongSuggestions(ctx context.Context, mood string, count int) ([]SongSuggestion, error) {
	prompt := fmt.Sprintf(`Suggest exactly %d real, existing songs that fit this mood: %q.
Mix well-known and lesser-known tracks across genres and decades.

Respond with ONLY a JSON array, no other text. Each object must have exactly these fields:
- "title": the song title
- "artist": the primary artist

Example: [{"title": "Imagine", "artist": "John Lennon"}]`, count, mood)

	var songs []SongSuggestion
	err := c.generateJSON(ctx, prompt, &songs)
	if err != nil {
		return nil, err
	}

	out := make([]SongSuggestion, 0, len(songs))
	for _, s := range songs {
		s.Title = strings.TrimSpace(s.Title)
		s.Artist = strings.TrimSpace(s.Artist)
		if s.Title == "" {
			continue
		}
		out = append(out, s)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// PodcastTerms asks the model for up to count (max 5) podcast search keywords
func (c *Client) PodcastTerms(ctx context.Context, mood string, count int) ([]string, error) {
	if count <= 0 || count > MaxPodcastTerms {
		count = MaxPodcastTerms
	}

	prompt := fmt.Sprintf(`Give %d short podcast search keywords (1 to 3 words each) for someone whose mood is: %q.

Respond with ONLY a JSON array of strings, no other text.
Example: ["mindfulness", "true crime", "comedy"]`, count, mood)

	var terms []string
	if err := c.generateJSON(ctx, prompt, &terms); err != nil {
		return nil, err
	}

	out := make([]string, 0, count)
	seen := make(map[string]bool)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, term)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// generateJSON runs prompt and decodes the first JSON array in the answer
// into v. Unparseable answers are retried; transport errors are not, the
// HTTP client already retries those.
func (c *Client) generateJSON(ctx context.Context, prompt string, v any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	return retry.Do(
		func() error {
			text, err := c.generate(ctx, prompt)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			raw, ok := extractJSONArray(text)
			if !ok {
				return errUnparseable
			}
			if err := json.Unmarshal([]byte(raw), v); err != nil {
				return fmt.Errorf("%w: %v", errUnparseable, err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying generation", "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:      c.cfg.Temperature,
			MaxOutputTokens:  2048,
			ResponseMIMEType: "application/json",
		},
	}

	resp, err := c.http.Post(ctx, endpoint, body, map[string]string{
		"x-goog-api-key": c.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// extractJSONArray strips markdown fences and returns the outermost [...] span
func extractJSONArray(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
