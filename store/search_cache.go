// Package store persists arXiv search results in SQLite so repeated
// queries for the same keyword do not hit the upstream API. Task state is
// never stored here; it stays memory-resident by design.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/daiduo2/TaShan-SciSpark/arxiv"
)

const searchCacheSchema = `
CREATE TABLE IF NOT EXISTS search_cache (
	keyword TEXT NOT NULL,
	max_results INTEGER NOT NULL,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (keyword, max_results)
);`

// SearchCacheConfig configures the SQLite-backed search cache.
type SearchCacheConfig struct {
	DSN string
	// TTL bounds how long cached results stay fresh. Zero disables expiry.
	TTL time.Duration
}

// SearchCache stores search results keyed by (keyword, limit).
type SearchCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSearchCache opens (or creates) the cache database.
func NewSearchCache(cfg SearchCacheConfig) (*SearchCache, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("store: search cache dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: search cache open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: search cache set WAL mode: %w", err)
	}
	if _, err := db.Exec(searchCacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: search cache create schema: %w", err)
	}

	return &SearchCache{db: db, ttl: cfg.TTL}, nil
}

// Close releases the underlying database handle.
func (c *SearchCache) Close() error {
	return c.db.Close()
}

// Get returns the cached papers for the query, or ok=false on a miss or an
// expired entry.
func (c *SearchCache) Get(ctx context.Context, keyword string, limit int) ([]arxiv.Paper, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM search_cache WHERE keyword = ? AND max_results = ?`,
		normalizeKeyword(keyword), limit,
	)

	var payload []byte
	var updatedAt string
	if err := row.Scan(&payload, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: search cache get: %w", err)
	}

	if c.ttl > 0 {
		stamp, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil || time.Since(stamp) > c.ttl {
			return nil, false, nil
		}
	}

	var papers []arxiv.Paper
	if err := json.Unmarshal(payload, &papers); err != nil {
		return nil, false, fmt.Errorf("store: search cache decode: %w", err)
	}
	return papers, true, nil
}

// Put stores the papers for the query, replacing any previous entry.
func (c *SearchCache) Put(ctx context.Context, keyword string, limit int, papers []arxiv.Paper) error {
	payload, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("store: search cache encode: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_cache (keyword, max_results, payload, updated_at) VALUES (?, ?, ?, ?)`,
		normalizeKeyword(keyword), limit, payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: search cache put: %w", err)
	}
	return nil
}

func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// CachingSearcher wraps a Searcher with the cache. Cache failures are
// logged and bypassed; the upstream result always wins.
type CachingSearcher struct {
	inner  arxiv.Searcher
	cache  *SearchCache
	logger *slog.Logger
}

// NewCachingSearcher wraps inner with cache.
func NewCachingSearcher(inner arxiv.Searcher, cache *SearchCache, logger *slog.Logger) *CachingSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingSearcher{inner: inner, cache: cache, logger: logger}
}

// Search serves from the cache when possible and falls through to the
// wrapped searcher otherwise. Empty upstream results are not cached so a
// transiently empty feed does not stick.
func (s *CachingSearcher) Search(ctx context.Context, keyword string, limit int) ([]arxiv.Paper, error) {
	if papers, ok, err := s.cache.Get(ctx, keyword, limit); err != nil {
		s.logger.Warn("search cache read failed", "keyword", keyword, "error", err)
	} else if ok {
		return papers, nil
	}

	papers, err := s.inner.Search(ctx, keyword, limit)
	if err != nil {
		return nil, err
	}
	if len(papers) > 0 {
		if err := s.cache.Put(ctx, keyword, limit, papers); err != nil {
			s.logger.Warn("search cache write failed", "keyword", keyword, "error", err)
		}
	}
	return papers, nil
}
