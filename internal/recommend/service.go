// Package recommend composes the term generator with the resolvers into the
// mood-to-media operations served over HTTP.
package recommend

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/justchokingaround/moodcast/internal/cache"
	"github.com/justchokingaround/moodcast/internal/providers/gemini"
	"github.com/justchokingaround/moodcast/internal/providers/youtube"
	"github.com/justchokingaround/moodcast/internal/resolver"
)

// DefaultPodcastTerms are searched when the generator produces no keywords
var DefaultPodcastTerms = []string{"mindfulness", "motivation", "storytelling", "comedy", "music"}

// TermGenerator invents songs and podcast keywords for a mood. Either call
// may fail; callers treat a failure as an empty list.
type TermGenerator interface {
	SongSuggestions(ctx context.Context, mood string, count int) ([]gemini.SongSuggestion, error)
	PodcastTerms(ctx context.Context, mood string, count int) ([]string, error)
}

// Song is a generated suggestion with its artwork and a ready-made video
// search URL that can be handed back to ResolveVideo.
type Song struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Poster    string `json:"poster"`
	SearchURL string `json:"searchUrl"`
}

// Config tunes the service
type Config struct {
	PodcastLimitPerTerm int
	PodcastTotalLimit   int
	FallbackTerms       []string
	// PosterConcurrency bounds parallel artwork lookups per request
	PosterConcurrency int
}

// Stats reports the counters of every cache
type Stats struct {
	Posters  cache.Stats `json:"posters"`
	Podcasts cache.Stats `json:"podcasts"`
	Videos   cache.Stats `json:"videos"`
}

// Caches groups the three resolver caches
type Caches struct {
	Posters  *cache.TTL[string]
	Podcasts *cache.TTL[[]resolver.PodcastResult]
	Videos   *cache.TTL[resolver.VideoResolution]
}

// Service is the mood-to-media façade
type Service struct {
	terms    TermGenerator
	posters  *resolver.ArtworkResolver
	podcasts *resolver.PodcastResolver
	videos   *resolver.VideoResolver
	caches   Caches
	cfg      Config
	logger   *slog.Logger
}

// NewService wires a Service
func NewService(
	terms TermGenerator,
	posters *resolver.ArtworkResolver,
	podcasts *resolver.PodcastResolver,
	videos *resolver.VideoResolver,
	caches Caches,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if len(cfg.FallbackTerms) == 0 {
		cfg.FallbackTerms = DefaultPodcastTerms
	}
	if cfg.PosterConcurrency <= 0 {
		cfg.PosterConcurrency = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		terms:    terms,
		posters:  posters,
		podcasts: podcasts,
		videos:   videos,
		caches:   caches,
		cfg:      cfg,
		logger:   logger,
	}
}

// Songs generates count songs for mood and attaches posters. The result keeps
// generator order and is empty when generation fails.
func (s *Service) Songs(ctx context.Context, mood string, count int) []Song {
	suggestions, err := s.terms.SongSuggestions(ctx, mood, count)
	if err != nil {
		s.logger.Warn("song generation failed", "mood", mood, "error", err)
		return []Song{}
	}

	songs := make([]Song, len(suggestions))
	p := pool.New().WithMaxGoroutines(s.cfg.PosterConcurrency)
	for i, sug := range suggestions {
		p.Go(func() {
			songs[i] = Song{
				Title:     sug.Title,
				Artist:    sug.Artist,
				Poster:    s.posters.ResolvePoster(ctx, sug.Title, sug.Artist),
				SearchURL: youtube.SearchURL(strings.TrimSpace(sug.Title + " " + sug.Artist)),
			}
		})
	}
	p.Wait()

	return songs
}

// Podcasts returns podcasts for mood, searching generated keywords or the
// fallback list when generation yields nothing. Keywords are only generated
// when the mood is not cached.
func (s *Service) Podcasts(ctx context.Context, mood string) []resolver.PodcastResult {
	return s.podcasts.ResolvePodcastsFunc(ctx, mood, func(ctx context.Context) []string {
		terms, err := s.terms.PodcastTerms(ctx, mood, gemini.MaxPodcastTerms)
		if err != nil {
			s.logger.Warn("podcast term generation failed", "mood", mood, "error", err)
		}
		if len(terms) == 0 {
			return s.cfg.FallbackTerms
		}
		return terms
	}, s.cfg.PodcastLimitPerTerm, s.cfg.PodcastTotalLimit)
}

// PodcastsForTerms resolves podcasts for mood from caller-chosen terms
func (s *Service) PodcastsForTerms(ctx context.Context, mood string, terms []string) []resolver.PodcastResult {
	return s.podcasts.ResolvePodcasts(ctx, mood, terms, s.cfg.PodcastLimitPerTerm, s.cfg.PodcastTotalLimit)
}

// Poster resolves artwork for a single song
func (s *Service) Poster(ctx context.Context, title, artist string) string {
	return s.posters.ResolvePoster(ctx, title, artist)
}

// ResolveVideo resolves a query or precomputed search URL to watch URLs
func (s *Service) ResolveVideo(ctx context.Context, q resolver.VideoQuery) resolver.VideoResolution {
	return s.videos.ResolveVideo(ctx, q)
}

// Stats returns cache counters
func (s *Service) Stats() Stats {
	var st Stats
	if s.caches.Posters != nil {
		st.Posters = s.caches.Posters.Stats()
	}
	if s.caches.Podcasts != nil {
		st.Podcasts = s.caches.Podcasts.Stats()
	}
	if s.caches.Videos != nil {
		st.Videos = s.caches.Videos.Stats()
	}
	return st
}
