package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/daiduo2/TaShan-SciSpark/arxiv"
)

func newTestCache(t *testing.T, ttl time.Duration) *SearchCache {
	t.Helper()
	cache, err := NewSearchCache(SearchCacheConfig{
		DSN: filepath.Join(t.TempDir(), "cache.db"),
		TTL: ttl,
	})
	if err != nil {
		t.Fatalf("NewSearchCache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

func TestSearchCache_PutGetRoundtrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	papers := []arxiv.Paper{{Title: "T", Authors: []string{"A"}, Abstract: "S"}}
	if err := cache.Put(ctx, "Dark Matter", 3, papers); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Keyword lookup is case-insensitive.
	got, ok, err := cache.Get(ctx, "dark matter", 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 1 || got[0].Title != "T" {
		t.Errorf("got = %v", got)
	}
}

func TestSearchCache_MissOnDifferentLimit(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := cache.Put(ctx, "dark matter", 3, []arxiv.Paper{{Title: "T"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, err := cache.Get(ctx, "dark matter", 5); err != nil || ok {
		t.Errorf("ok = %v, err = %v; want miss", ok, err)
	}
}

func TestSearchCache_TTLExpiry(t *testing.T) {
	cache := newTestCache(t, time.Nanosecond)
	ctx := context.Background()

	if err := cache.Put(ctx, "dark matter", 3, []arxiv.Paper{{Title: "T"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok, err := cache.Get(ctx, "dark matter", 3); err != nil || ok {
		t.Errorf("ok = %v, err = %v; expired entry should miss", ok, err)
	}
}

type countingSearcher struct {
	calls  int
	papers []arxiv.Paper
	err    error
}

func (s *countingSearcher) Search(context.Context, string, int) ([]arxiv.Paper, error) {
	s.calls++
	return s.papers, s.err
}

func TestCachingSearcher_ServesFromCache(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	inner := &countingSearcher{papers: []arxiv.Paper{{Title: "T"}}}
	s := NewCachingSearcher(inner, cache, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		papers, err := s.Search(ctx, "dark matter", 3)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(papers) != 1 {
			t.Fatalf("papers = %v", papers)
		}
	}
	if inner.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", inner.calls)
	}
}

func TestCachingSearcher_EmptyResultsNotCached(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	inner := &countingSearcher{}
	s := NewCachingSearcher(inner, cache, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.Search(ctx, "nothing", 3); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (empty results must not stick)", inner.calls)
	}
}

func TestCachingSearcher_UpstreamErrorPropagates(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	inner := &countingSearcher{err: errors.New("down")}
	s := NewCachingSearcher(inner, cache, nil)

	if _, err := s.Search(context.Background(), "x", 1); err == nil {
		t.Fatal("expected upstream error")
	}
}
