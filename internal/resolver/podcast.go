package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/justchokingaround/moodcast/internal/cache"
	"github.com/justchokingaround/moodcast/internal/providers/itunes"
)

const (
	// DefaultPodcastTTL is how long a mood's podcast list is reused
	DefaultPodcastTTL = 10 * time.Minute

	DefaultPodcastLimitPerTerm = 5
	DefaultPodcastTotalLimit   = 10
)

// PodcastResult is one podcast show. Empty fields mean the catalog had no
// value and are serialized as null.
type PodcastResult struct {
	CollectionID int64
	Title        string
	Author       string
	ArtworkURL   string
	TrackViewURL string
	FeedURL      string
}

type podcastJSON struct {
	CollectionID *int64  `json:"collectionId"`
	Title        *string `json:"title"`
	Author       *string `json:"author"`
	ArtworkURL   *string `json:"artworkUrl"`
	TrackViewURL *string `json:"trackViewUrl"`
	FeedURL      *string `json:"feedUrl"`
}

// MarshalJSON writes absent fields as null
func (p PodcastResult) MarshalJSON() ([]byte, error) {
	out := podcastJSON{
		Title:        nullable(p.Title),
		Author:       nullable(p.Author),
		ArtworkURL:   nullable(p.ArtworkURL),
		TrackViewURL: nullable(p.TrackViewURL),
		FeedURL:      nullable(p.FeedURL),
	}
	if p.CollectionID != 0 {
		id := p.CollectionID
		out.CollectionID = &id
	}
	return json.Marshal(out)
}

// usable reports whether the result can be shown and opened
func (p PodcastResult) usable() bool {
	return p.Title != "" && p.TrackViewURL != ""
}

// identity is the dedup key: the collection id when known, else title and author
func (p PodcastResult) identity() string {
	if p.CollectionID != 0 {
		return "id:" + strconv.FormatInt(p.CollectionID, 10)
	}
	return "ta:" + p.Title + "\x00" + p.Author
}

func podcastFromCatalog(r itunes.Result) PodcastResult {
	title := r.CollectionName
	if title == "" {
		title = r.TrackName
	}
	artwork := r.ArtworkURL600
	if artwork == "" {
		artwork = r.ArtworkURL100
	}
	view := r.TrackViewURL
	if view == "" {
		view = r.CollectionViewURL
	}
	return PodcastResult{
		CollectionID: r.CollectionID,
		Title:        title,
		Author:       r.ArtistName,
		ArtworkURL:   artwork,
		TrackViewURL: view,
		FeedURL:      r.FeedURL,
	}
}

// PodcastConfig configures a PodcastResolver
type PodcastConfig struct {
	Country string
	Timeout time.Duration
	TTL     time.Duration
	Logger  *slog.Logger
}

// PodcastResolver collects podcasts for a mood across several search terms
type PodcastResolver struct {
	catalog CatalogSearcher
	cache   *cache.TTL[[]PodcastResult]
	group   singleflight.Group
	country string
	timeout time.Duration
	ttl     time.Duration
	logger  *slog.Logger
}

// NewPodcastResolver creates a podcast resolver backed by c
func NewPodcastResolver(catalog CatalogSearcher, c *cache.TTL[[]PodcastResult], cfg PodcastConfig) *PodcastResolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultPodcastTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PodcastResolver{
		catalog: catalog,
		cache:   c,
		country: cfg.Country,
		timeout: cfg.Timeout,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
	}
}

// ResolvePodcasts searches terms in order and returns at most totalLimit
// unique, usable podcasts. The list is cached per mood, so a hit ignores
// terms entirely. An empty terms list yields (and caches) an empty result.
func (r *PodcastResolver) ResolvePodcasts(ctx context.Context, mood string, terms []string, limitPerTerm, totalLimit int) []PodcastResult {
	return r.ResolvePodcastsFunc(ctx, mood, func(context.Context) []string { return terms }, limitPerTerm, totalLimit)
}

// ResolvePodcastsFunc is ResolvePodcasts with the terms produced on demand.
// terms runs only on a cache miss, once for all coalesced callers.
func (r *PodcastResolver) ResolvePodcastsFunc(ctx context.Context, mood string, terms func(context.Context) []string, limitPerTerm, totalLimit int) []PodcastResult {
	if limitPerTerm <= 0 {
		limitPerTerm = DefaultPodcastLimitPerTerm
	}
	if totalLimit <= 0 {
		totalLimit = DefaultPodcastTotalLimit
	}

	key := cache.PodcastKey(mood)
	if list, ok := r.cache.Get(key); ok {
		return list
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		if list, ok := r.cache.Peek(key); ok {
			return list, nil
		}
		list, final := r.collect(ctx, terms(context.WithoutCancel(ctx)), limitPerTerm, totalLimit)
		if final {
			r.cache.Set(key, list, r.ttl)
		}
		return list, nil
	})
	return v.([]PodcastResult)
}

// collect reports final=false when a term was skipped by catalog pacing, so
// the partial list is not cached
func (r *PodcastResolver) collect(ctx context.Context, terms []string, limitPerTerm, totalLimit int) (list []PodcastResult, final bool) {
	final = true
	var accumulated []PodcastResult
	for _, term := range terms {
		if len(accumulated) >= 2*totalLimit {
			break
		}
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		found, err := r.searchTerm(ctx, term, limitPerTerm)
		if errors.Is(err, itunes.ErrRateLimited) {
			final = false
		}
		accumulated = append(accumulated, found...)
	}

	seen := make(map[string]bool, len(accumulated))
	out := make([]PodcastResult, 0, totalLimit)
	for _, p := range accumulated {
		if !p.usable() {
			continue
		}
		id := p.identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
		if len(out) == totalLimit {
			break
		}
	}
	return out, final
}

func (r *PodcastResolver) searchTerm(ctx context.Context, term string, limit int) ([]PodcastResult, error) {
	ctx, cancel := detached(ctx, r.timeout)
	defer cancel()

	results, err := r.catalog.Search(ctx, itunes.SearchParams{
		Term:    term,
		Entity:  itunes.EntityPodcast,
		Media:   itunes.MediaPodcast,
		Limit:   limit,
		Country: r.country,
	})
	if err != nil {
		r.logger.Warn("podcast search failed", "term", term, "error", err)
		return nil, err
	}

	out := make([]PodcastResult, 0, len(results))
	for _, res := range results {
		out = append(out, podcastFromCatalog(res))
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
