package resolver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/justchokingaround/moodcast/internal/cache"
	"github.com/justchokingaround/moodcast/internal/providers/youtube"
)

// DefaultVideoTTL is how long a resolution, found or not, is reused
const DefaultVideoTTL = time.Hour

// VideoQuery identifies what to resolve. SearchURL, when set, is fetched
// as-is and used as the cache key; otherwise Query is.
type VideoQuery struct {
	Query     string
	SearchURL string
}

func (q VideoQuery) key() string {
	if q.SearchURL != "" {
		return q.SearchURL
	}
	return q.Query
}

// VideoResolution holds the watch URLs for one video. The zero value is the
// negative result.
type VideoResolution struct {
	YouTubeURL string
	MusicURL   string
}

// Found reports whether a video was resolved
func (v VideoResolution) Found() bool {
	return v.YouTubeURL != ""
}

// MarshalJSON writes a negative result as two nulls
func (v VideoResolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		YouTubeURL *string `json:"youtubeUrl"`
		MusicURL   *string `json:"musicUrl"`
	}{nullable(v.YouTubeURL), nullable(v.MusicURL)})
}

// VideoConfig configures a VideoResolver
type VideoConfig struct {
	Timeout time.Duration
	TTL     time.Duration
	Logger  *slog.Logger
}

// VideoResolver maps a query to a playable video by scraping a search page
type VideoResolver struct {
	pages     PageFetcher
	extractor TokenExtractor
	cache     *cache.TTL[VideoResolution]
	group     singleflight.Group
	timeout   time.Duration
	ttl       time.Duration
	logger    *slog.Logger
}

// NewVideoResolver creates a video resolver backed by c. A nil extractor
// selects youtube.DefaultExtractor.
func NewVideoResolver(pages PageFetcher, extractor TokenExtractor, c *cache.TTL[VideoResolution], cfg VideoConfig) *VideoResolver {
	if extractor == nil {
		extractor = youtube.DefaultExtractor()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultVideoTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VideoResolver{
		pages:     pages,
		extractor: extractor,
		cache:     c,
		timeout:   cfg.Timeout,
		ttl:       cfg.TTL,
		logger:    cfg.Logger,
	}
}

// ResolveVideo returns the watch URLs for the first video on the query's
// search page. Misses are cached like hits. A query with neither field set
// resolves to the negative result without touching the cache.
func (r *VideoResolver) ResolveVideo(ctx context.Context, q VideoQuery) VideoResolution {
	key := q.key()
	if key == "" {
		return VideoResolution{}
	}
	if res, ok := r.cache.Get(key); ok {
		return res
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		if res, ok := r.cache.Peek(key); ok {
			return res, nil
		}
		res := r.lookup(ctx, q)
		r.cache.Set(key, res, r.ttl)
		return res, nil
	})
	return v.(VideoResolution)
}

func (r *VideoResolver) lookup(ctx context.Context, q VideoQuery) VideoResolution {
	pageURL := q.SearchURL
	if pageURL == "" {
		pageURL = youtube.SearchURL(q.Query)
	}

	ctx, cancel := detached(ctx, r.timeout)
	defer cancel()

	page, err := r.pages.FetchSearchPage(ctx, pageURL)
	if err != nil {
		r.logger.Warn("video search failed", "url", pageURL, "error", err)
		return VideoResolution{}
	}

	id, ok := r.extractor.ExtractFirst(page)
	if !ok {
		r.logger.Debug("no video id on search page", "url", pageURL)
		return VideoResolution{}
	}

	return VideoResolution{
		YouTubeURL: youtube.WatchURL(id),
		MusicURL:   youtube.MusicURL(id),
	}
}
