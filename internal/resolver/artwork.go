package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/justchokingaround/moodcast/internal/cache"
	"github.com/justchokingaround/moodcast/internal/providers/itunes"
)

const (
	placeholderBase     = "https://placehold.co/600x600?text="
	placeholderMaxRunes = 60
	artworkCandidates   = 5
)

// GenericPlaceholder is returned when there is no text to put on a placeholder
var GenericPlaceholder = placeholderBase + url.QueryEscape("No Cover")

// ArtworkConfig configures an ArtworkResolver
type ArtworkConfig struct {
	Country string
	Timeout time.Duration
	Logger  *slog.Logger
}

// ArtworkResolver finds poster art for songs. Resolved posters, fallbacks
// included, are kept for the life of the process.
type ArtworkResolver struct {
	catalog CatalogSearcher
	cache   *cache.TTL[string]
	group   singleflight.Group
	country string
	timeout time.Duration
	logger  *slog.Logger
}

// NewArtworkResolver creates an artwork resolver backed by c
func NewArtworkResolver(catalog CatalogSearcher, c *cache.TTL[string], cfg ArtworkConfig) *ArtworkResolver {
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ArtworkResolver{
		catalog: catalog,
		cache:   c,
		country: cfg.Country,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// ResolvePoster returns a 600x600 artwork URL for the song, or a placeholder
// image URL when none can be found. It always returns a usable URL. A
// placeholder caused by local catalog pacing is returned but not cached, so
// the next call tries the catalog again.
func (r *ArtworkResolver) ResolvePoster(ctx context.Context, title, artist string) string {
	key := cache.NormalizeKey(title, artist)
	if poster, ok := r.cache.Get(key); ok {
		return poster
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		if poster, ok := r.cache.Peek(key); ok {
			return poster, nil
		}
		poster, final := r.lookup(ctx, strings.TrimSpace(title), strings.TrimSpace(artist))
		if final {
			r.cache.Set(key, poster, cache.NoExpiry)
		}
		return poster, nil
	})
	return v.(string)
}

// lookup reports final=false when the answer must not be cached
func (r *ArtworkResolver) lookup(ctx context.Context, title, artist string) (poster string, final bool) {
	if title == "" && artist == "" {
		return GenericPlaceholder, true
	}

	ctx, cancel := detached(ctx, r.timeout)
	defer cancel()

	results, err := r.catalog.Search(ctx, itunes.SearchParams{
		Term:    strings.TrimSpace(title + " " + artist),
		Entity:  itunes.EntitySong,
		Limit:   artworkCandidates,
		Country: r.country,
	})
	if errors.Is(err, itunes.ErrRateLimited) {
		r.logger.Debug("catalog busy, placeholder not cached", "title", title, "artist", artist)
		return textPlaceholder(title, artist), false
	}
	if err != nil {
		r.logger.Warn("artwork lookup failed, using placeholder", "title", title, "artist", artist, "error", err)
		return textPlaceholder(title, artist), true
	}

	for _, res := range results {
		if res.ArtworkURL100 != "" {
			return strings.Replace(res.ArtworkURL100, "100x100", "600x600", 1), true
		}
	}

	r.logger.Debug("no artwork in catalog results", "title", title, "artist", artist, "results", len(results))
	return textPlaceholder(title, artist), true
}

// textPlaceholder renders the song label onto a placeholder image
func textPlaceholder(title, artist string) string {
	var parts []string
	for _, p := range []string{title, artist} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	label := strings.Join(parts, " - ")
	if label == "" {
		return GenericPlaceholder
	}

	if runes := []rune(label); len(runes) > placeholderMaxRunes {
		label = string(runes[:placeholderMaxRunes])
	}
	return placeholderBase + url.QueryEscape(label)
}
