package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justchokingaround/moodcast/internal/providers/itunes"
)

var errUpstream = errors.New("upstream unavailable")

type fakeCatalog struct {
	mu     sync.Mutex
	calls  []itunes.SearchParams
	search func(params itunes.SearchParams) ([]itunes.Result, error)
}

func (f *fakeCatalog) Search(_ context.Context, params itunes.SearchParams) ([]itunes.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.mu.Unlock()
	return f.search(params)
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCatalog) terms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Term)
	}
	return out
}

type fakePages struct {
	mu    sync.Mutex
	urls  []string
	fetch func(url string) (string, error)
}

func (f *fakePages) FetchSearchPage(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.fetch(url)
}

func (f *fakePages) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
