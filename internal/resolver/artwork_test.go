package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/moodcast/internal/cache"
	providerhttp "github.com/justchokingaround/moodcast/internal/providers/http"
	"github.com/justchokingaround/moodcast/internal/providers/itunes"
)

func newArtworkResolver(catalog *fakeCatalog) (*ArtworkResolver, *cache.TTL[string]) {
	c := cache.New[string](cache.Options{})
	return NewArtworkResolver(catalog, c, ArtworkConfig{Country: "US"}), c
}

func TestArtworkResolver_HiResRewrite(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return []itunes.Result{
			{TrackName: "no art"},
			{ArtworkURL100: "https://is1-ssl.mzstatic.com/image/thumb/Music/v4/ab/cd/100x100bb.jpg"},
			{ArtworkURL100: "https://example.com/other/100x100bb.jpg"},
		}, nil
	}}
	r, _ := newArtworkResolver(catalog)

	poster := r.ResolvePoster(context.Background(), "Imagine", "John Lennon")

	assert.Equal(t, "https://is1-ssl.mzstatic.com/image/thumb/Music/v4/ab/cd/600x600bb.jpg", poster)
	require.Equal(t, 1, catalog.callCount())
	params := catalog.calls[0]
	assert.Equal(t, "Imagine John Lennon", params.Term)
	assert.Equal(t, itunes.EntitySong, params.Entity)
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, "US", params.Country)
}

func TestArtworkResolver_KeyEquivalence(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return []itunes.Result{{ArtworkURL100: "https://a.example/100x100bb.jpg"}}, nil
	}}
	r, _ := newArtworkResolver(catalog)

	first := r.ResolvePoster(context.Background(), "Imagine", "John Lennon")
	second := r.ResolvePoster(context.Background(), "  imagine ", "JOHN LENNON")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, catalog.callCount(), "second call should be served from cache")
}

func TestArtworkResolver_EmptyInputs(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		t.Fatal("catalog must not be called for empty input")
		return nil, nil
	}}
	r, c := newArtworkResolver(catalog)

	poster := r.ResolvePoster(context.Background(), "", "  ")

	assert.Equal(t, GenericPlaceholder, poster)
	assert.Contains(t, poster, "No+Cover")
	cached, ok := c.Get(cache.NormalizeKey("", ""))
	require.True(t, ok)
	assert.Equal(t, poster, cached)
}

func TestArtworkResolver_FallbackOnFailure(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return nil, errUpstream
	}}
	r, _ := newArtworkResolver(catalog)

	poster := r.ResolvePoster(context.Background(), "Bohemian Rhapsody", "Queen")
	again := r.ResolvePoster(context.Background(), "bohemian rhapsody", "queen")

	assert.Equal(t, placeholderBase+"Bohemian+Rhapsody+-+Queen", poster)
	assert.Equal(t, poster, again)
	assert.Equal(t, 1, catalog.callCount(), "fallbacks are cached too")
}

func TestArtworkResolver_FallbackWhenNoArtwork(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return []itunes.Result{{TrackName: "Song"}}, nil
	}}
	r, _ := newArtworkResolver(catalog)

	poster := r.ResolvePoster(context.Background(), "Only Title", "")

	assert.Equal(t, placeholderBase+"Only+Title", poster)
}

func TestArtworkResolver_PlaceholderTruncation(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return nil, errUpstream
	}}
	r, _ := newArtworkResolver(catalog)

	title := strings.Repeat("é", 80)
	poster := r.ResolvePoster(context.Background(), title, "")

	assert.Equal(t, textPlaceholder(strings.Repeat("é", 60), ""), poster)
}

func TestArtworkResolver_CoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		<-release
		return []itunes.Result{{ArtworkURL100: "https://a.example/100x100bb.jpg"}}, nil
	}}
	r, _ := newArtworkResolver(catalog)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.ResolvePoster(context.Background(), "Imagine", "John Lennon")
		}(i)
	}

	assert.Eventually(t, func() bool { return catalog.callCount() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, "https://a.example/600x600bb.jpg", got)
	}
	assert.Equal(t, 1, catalog.callCount())
}

func TestArtworkResolver_IgnoresCallerCancellation(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return []itunes.Result{{ArtworkURL100: "https://a.example/100x100bb.jpg"}}, nil
	}}
	r, _ := newArtworkResolver(catalog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "https://a.example/600x600bb.jpg", r.ResolvePoster(ctx, "Imagine", "John Lennon"))
}

func TestArtworkResolver_CatalogPacingIsNotCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"artworkUrl100":"https://art.example/100x100bb.jpg"}]}`))
	}))
	defer server.Close()

	// one search per 200ms and no burst: the second lookup cannot get a slot
	// within its 50ms timeout
	catalog := itunes.NewClient(
		itunes.Config{BaseURL: server.URL, RequestsPerMinute: 300, Burst: 1},
		providerhttp.NewClient(providerhttp.ClientConfig{MaxRetries: providerhttp.NoRetry}),
		nil,
	)
	posters := cache.New[string](cache.Options{})
	r := NewArtworkResolver(catalog, posters, ArtworkConfig{Timeout: 50 * time.Millisecond})
	ctx := context.Background()

	assert.Equal(t, "https://art.example/600x600bb.jpg", r.ResolvePoster(ctx, "Song 1", "Artist"))

	throttled := r.ResolvePoster(ctx, "Song 2", "Artist")
	assert.Equal(t, textPlaceholder("Song 2", "Artist"), throttled)
	assert.Equal(t, 1, posters.Len(), "throttled placeholder must not be cached")

	time.Sleep(250 * time.Millisecond)

	assert.Equal(t, "https://art.example/600x600bb.jpg", r.ResolvePoster(ctx, "Song 2", "Artist"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestArtworkResolver_RateLimitedFallbackRetries(t *testing.T) {
	limited := true
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		if limited {
			return nil, fmt.Errorf("%w: no slot", itunes.ErrRateLimited)
		}
		return []itunes.Result{{ArtworkURL100: "https://art.example/100x100bb.jpg"}}, nil
	}}
	r, c := newArtworkResolver(catalog)

	assert.Equal(t, textPlaceholder("Imagine", "John Lennon"), r.ResolvePoster(context.Background(), "Imagine", "John Lennon"))
	assert.Equal(t, 0, c.Len())

	limited = false
	assert.Equal(t, "https://art.example/600x600bb.jpg", r.ResolvePoster(context.Background(), "Imagine", "John Lennon"))
	assert.Equal(t, 2, catalog.callCount())
}

func TestArtworkResolver_StatsCountOneMissPerLookup(t *testing.T) {
	catalog := &fakeCatalog{search: func(itunes.SearchParams) ([]itunes.Result, error) {
		return []itunes.Result{{ArtworkURL100: "https://art.example/100x100bb.jpg"}}, nil
	}}
	r, c := newArtworkResolver(catalog)

	r.ResolvePoster(context.Background(), "Imagine", "John Lennon")
	r.ResolvePoster(context.Background(), "imagine", "john lennon")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}
