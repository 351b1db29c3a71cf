package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/superadviser/query-gateway/internal/db"
	"github.com/superadviser/query-gateway/internal/models"
)

// Store is the narrow slice of the datastore the cache needs.
type Store interface {
	GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error)
	UpsertCacheEntry(ctx context.Context, entry *models.CacheEntry) error
	IncrementCacheHit(ctx context.Context, key string) error
}

// ResponseCache is a keyed store of previously computed answers with a fixed
// TTL. Concurrent writers to the same key race under last-writer-wins upsert
// semantics; entries are idempotent derivations of the same query, so either
// writer's row is acceptable.
type ResponseCache struct {
	store Store
	ttl   time.Duration
}

func NewResponseCache(store Store, ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: store, ttl: ttl}
}

// Key derives the cache key for a (searchType, query) pair. A full content
// hash is used so distinct queries never alias onto the same entry.
func Key(searchType models.SearchType, query string) string {
	sum := sha256.Sum256([]byte(string(searchType) + ":" + query))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for the pair, if a live entry exists. On a
// hit the stored payload is returned verbatim except for the cached flag, and
// the hit counter is bumped best-effort. Read failures are treated as misses
// so an unavailable cache never blocks a fresh answer.
func (c *ResponseCache) Get(ctx context.Context, searchType models.SearchType, query string) (*models.QueryResponse, bool) {
	key := Key(searchType, query)

	entry, err := c.store.GetCacheEntry(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}

	if err := c.store.IncrementCacheHit(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache hit-count increment failed")
	}

	resp := entry.Response
	resp.Cached = true
	return &resp, true
}

// Put stores a fresh response under the derived key with the configured TTL,
// overwriting any existing entry.
func (c *ResponseCache) Put(ctx context.Context, searchType models.SearchType, query string, resp *models.QueryResponse) error {
	entry := &models.CacheEntry{
		Key:        Key(searchType, query),
		Query:      query,
		SearchType: searchType,
		Response:   *resp,
		ExpiresAt:  time.Now().Add(c.ttl),
	}
	return c.store.UpsertCacheEntry(ctx, entry)
}
