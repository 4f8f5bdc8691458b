package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/moodcast/internal/cache"
	"github.com/justchokingaround/moodcast/internal/providers/gemini"
	"github.com/justchokingaround/moodcast/internal/providers/itunes"
	"github.com/justchokingaround/moodcast/internal/providers/youtube"
	"github.com/justchokingaround/moodcast/internal/resolver"
)

type stubTerms struct {
	songs    []gemini.SongSuggestion
	songErr  error
	terms    []string
	termErr  error
	termRuns int
}

func (s *stubTerms) SongSuggestions(context.Context, string, int) ([]gemini.SongSuggestion, error) {
	return s.songs, s.songErr
}

func (s *stubTerms) PodcastTerms(context.Context, string, int) ([]string, error) {
	s.termRuns++
	return s.terms, s.termErr
}

type recordingCatalog struct {
	mu    sync.Mutex
	terms []string
}

func (c *recordingCatalog) Search(_ context.Context, p itunes.SearchParams) ([]itunes.Result, error) {
	c.mu.Lock()
	c.terms = append(c.terms, p.Term)
	c.mu.Unlock()

	if p.Entity == itunes.EntitySong {
		return []itunes.Result{{ArtworkURL100: "https://art.example/" + p.Term + "/100x100bb.jpg"}}, nil
	}
	return []itunes.Result{{
		CollectionID:   int64(len(p.Term)),
		CollectionName: "Show about " + p.Term,
		TrackViewURL:   "https://podcasts.example/" + p.Term,
	}}, nil
}

type noPages struct{}

func (noPages) FetchSearchPage(context.Context, string) (string, error) {
	return `{"videoId":"dQw4w9WgXcQ"}`, nil
}

func newTestService(terms TermGenerator, catalog resolver.CatalogSearcher) *Service {
	caches := Caches{
		Posters:  cache.New[string](cache.Options{}),
		Podcasts: cache.New[[]resolver.PodcastResult](cache.Options{}),
		Videos:   cache.New[resolver.VideoResolution](cache.Options{}),
	}
	return NewService(
		terms,
		resolver.NewArtworkResolver(catalog, caches.Posters, resolver.ArtworkConfig{}),
		resolver.NewPodcastResolver(catalog, caches.Podcasts, resolver.PodcastConfig{}),
		resolver.NewVideoResolver(noPages{}, nil, caches.Videos, resolver.VideoConfig{}),
		caches,
		Config{PodcastLimitPerTerm: 2, PodcastTotalLimit: 3},
		nil,
	)
}

func TestService_Songs(t *testing.T) {
	var suggestions []gemini.SongSuggestion
	for i := 0; i < 12; i++ {
		suggestions = append(suggestions, gemini.SongSuggestion{Title: fmt.Sprintf("Song %d", i), Artist: "Band"})
	}
	svc := newTestService(&stubTerms{songs: suggestions}, &recordingCatalog{})

	songs := svc.Songs(context.Background(), "upbeat", 12)

	require.Len(t, songs, 12)
	for i, s := range songs {
		assert.Equal(t, fmt.Sprintf("Song %d", i), s.Title, "generator order is kept")
		assert.Equal(t, fmt.Sprintf("https://art.example/Song %d Band/600x600bb.jpg", i), s.Poster)
		assert.Equal(t, youtube.SearchURL(fmt.Sprintf("Song %d Band", i)), s.SearchURL)
	}
}

func TestService_SongsGenerationFailure(t *testing.T) {
	svc := newTestService(&stubTerms{songErr: errors.New("boom")}, &recordingCatalog{})

	songs := svc.Songs(context.Background(), "upbeat", 5)

	assert.NotNil(t, songs)
	assert.Empty(t, songs)
}

func TestService_Podcasts(t *testing.T) {
	t.Run("uses generated terms", func(t *testing.T) {
		catalog := &recordingCatalog{}
		svc := newTestService(&stubTerms{terms: []string{"jazz", "thunder"}}, catalog)

		list := svc.Podcasts(context.Background(), "rainy")

		assert.Equal(t, []string{"jazz", "thunder"}, catalog.terms)
		assert.Len(t, list, 2)
	})

	t.Run("falls back to fixed terms", func(t *testing.T) {
		catalog := &recordingCatalog{}
		svc := newTestService(&stubTerms{termErr: gemini.ErrNotConfigured}, catalog)

		list := svc.Podcasts(context.Background(), "rainy")

		assert.Equal(t, DefaultPodcastTerms, catalog.terms)
		assert.NotEmpty(t, list)
	})

	t.Run("cache hit skips generation", func(t *testing.T) {
		terms := &stubTerms{terms: []string{"jazz"}}
		svc := newTestService(terms, &recordingCatalog{})

		first := svc.Podcasts(context.Background(), "rainy")
		second := svc.Podcasts(context.Background(), "Rainy")

		assert.Equal(t, first, second)
		assert.Equal(t, 1, terms.termRuns)
		stats := svc.Stats().Podcasts
		assert.Equal(t, uint64(1), stats.Misses, "one real miss is counted once")
		assert.Equal(t, uint64(1), stats.Hits)
	})
}

func TestService_ResolveVideoAndStats(t *testing.T) {
	svc := newTestService(&stubTerms{}, &recordingCatalog{})

	res := svc.ResolveVideo(context.Background(), resolver.VideoQuery{Query: "q"})
	svc.ResolveVideo(context.Background(), resolver.VideoQuery{Query: "q"})

	assert.Equal(t, "https://music.youtube.com/watch?v=dQw4w9WgXcQ", res.MusicURL)
	stats := svc.Stats()
	assert.Equal(t, 1, stats.Videos.Entries)
	assert.Equal(t, uint64(1), stats.Videos.Hits)
}
