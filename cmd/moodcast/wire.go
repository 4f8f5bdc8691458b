package main

import (
	"log/slog"

	"github.com/justchokingaround/moodcast/internal/cache"
	"github.com/justchokingaround/moodcast/internal/config"
	"github.com/justchokingaround/moodcast/internal/providers/gemini"
	providerhttp "github.com/justchokingaround/moodcast/internal/providers/http"
	"github.com/justchokingaround/moodcast/internal/providers/itunes"
	"github.com/justchokingaround/moodcast/internal/providers/youtube"
	"github.com/justchokingaround/moodcast/internal/recommend"
	"github.com/justchokingaround/moodcast/internal/resolver"
)

// buildService wires providers, caches and resolvers from configuration
func buildService(cfg *config.Config, logger *slog.Logger) *recommend.Service {
	newHTTP := func(c providerhttp.ClientConfig) *providerhttp.Client {
		c.MaxRetries = cfg.HTTP.MaxRetries
		if c.MaxRetries == 0 {
			c.MaxRetries = providerhttp.NoRetry
		}
		c.Debug = cfg.Advanced.Debug
		c.Logger = logger
		return providerhttp.NewClient(c)
	}

	catalog := itunes.NewClient(itunes.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		RequestsPerMinute: cfg.Catalog.RequestsPerMinute,
		Burst:             cfg.Catalog.Burst,
	}, newHTTP(providerhttp.ClientConfig{
		Timeout:   cfg.Catalog.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}), logger.With("provider", "itunes"))

	pages := youtube.NewClient(newHTTP(providerhttp.ClientConfig{
		Timeout: cfg.Video.Timeout,
	}), cfg.Video.UserAgent, logger.With("provider", "youtube"))

	generator := gemini.NewClient(gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
	}, newHTTP(providerhttp.ClientConfig{
		Timeout:   cfg.Gemini.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}), logger.With("provider", "gemini"))
	if !generator.IsConfigured() {
		logger.Warn("gemini api key not set, song suggestions are disabled and podcasts use fallback terms")
	}

	cacheOpts := cache.Options{MaxEntries: cfg.Cache.MaxEntries}
	caches := recommend.Caches{
		Posters:  cache.New[string](cacheOpts),
		Podcasts: cache.New[[]resolver.PodcastResult](cacheOpts),
		Videos:   cache.New[resolver.VideoResolution](cacheOpts),
	}

	posters := resolver.NewArtworkResolver(catalog, caches.Posters, resolver.ArtworkConfig{
		Country: cfg.Catalog.Country,
		Timeout: cfg.Catalog.Timeout,
		Logger:  logger.With("resolver", "artwork"),
	})
	podcasts := resolver.NewPodcastResolver(catalog, caches.Podcasts, resolver.PodcastConfig{
		Country: cfg.Catalog.Country,
		Timeout: cfg.Catalog.Timeout,
		TTL:     cfg.Cache.PodcastTTL,
		Logger:  logger.With("resolver", "podcast"),
	})
	videos := resolver.NewVideoResolver(pages, youtube.NewExtractor(cfg.Video.AnchorFallback), caches.Videos, resolver.VideoConfig{
		Timeout: cfg.Video.Timeout,
		TTL:     cfg.Cache.VideoTTL,
		Logger:  logger.With("resolver", "video"),
	})

	return recommend.NewService(generator, posters, podcasts, videos, caches, recommend.Config{
		PodcastLimitPerTerm: cfg.Podcasts.LimitPerTerm,
		PodcastTotalLimit:   cfg.Podcasts.TotalLimit,
		FallbackTerms:       cfg.Podcasts.FallbackTerms,
	}, logger)
}
