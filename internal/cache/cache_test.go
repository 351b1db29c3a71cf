package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superadviser/query-gateway/internal/db"
	"github.com/superadviser/query-gateway/internal/models"
)

type fakeStore struct {
	entries    map[string]*models.CacheEntry
	getErr     error
	upsertErr  error
	hitErr     error
	increments int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]*models.CacheEntry{}}
}

func (f *fakeStore) GetCacheEntry(_ context.Context, key string) (*models.CacheEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	entry, ok := f.entries[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, db.ErrNotFound
	}
	return entry, nil
}

func (f *fakeStore) UpsertCacheEntry(_ context.Context, entry *models.CacheEntry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.entries[entry.Key] = entry
	return nil
}

func (f *fakeStore) IncrementCacheHit(_ context.Context, key string) error {
	if f.hitErr != nil {
		return f.hitErr
	}
	f.increments++
	return nil
}

func sampleResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Answer:     "Concessional contributions are capped.",
		Sources:    []string{"ATO - https://ato.gov.au"},
		Confidence: 85,
		QueryType:  models.SearchTypeSearch,
		TokensUsed: 42,
	}
}

func TestKeyDistinguishesQueriesAndTypes(t *testing.T) {
	k1 := Key(models.SearchTypeSearch, "super contribution caps")
	k2 := Key(models.SearchTypeNews, "super contribution caps")
	k3 := Key(models.SearchTypeSearch, "super contribution caps 2026")

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, k1, Key(models.SearchTypeSearch, "super contribution caps"))
	assert.Len(t, k1, 64)
}

func TestGetMissOnEmptyStore(t *testing.T) {
	c := NewResponseCache(newFakeStore(), 10*time.Minute)

	_, hit := c.Get(context.Background(), models.SearchTypeSearch, "anything")
	assert.False(t, hit)
}

func TestPutThenGetRoundTrip(t *testing.T) {
	store := newFakeStore()
	c := NewResponseCache(store, 10*time.Minute)

	resp := sampleResponse()
	require.NoError(t, c.Put(context.Background(), models.SearchTypeSearch, "super caps", resp))

	got, hit := c.Get(context.Background(), models.SearchTypeSearch, "super caps")
	require.True(t, hit)
	assert.True(t, got.Cached)
	assert.Equal(t, resp.Answer, got.Answer)
	assert.Equal(t, resp.Confidence, got.Confidence)
	assert.Equal(t, 1, store.increments)

	// Stored entry itself is not mutated by the cached flag.
	entry := store.entries[Key(models.SearchTypeSearch, "super caps")]
	assert.False(t, entry.Response.Cached)
}

func TestGetMissWhenExpired(t *testing.T) {
	store := newFakeStore()
	c := NewResponseCache(store, -time.Minute)

	require.NoError(t, c.Put(context.Background(), models.SearchTypeSearch, "super caps", sampleResponse()))

	_, hit := c.Get(context.Background(), models.SearchTypeSearch, "super caps")
	assert.False(t, hit)
}

func TestGetTreatsReadErrorAsMiss(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	c := NewResponseCache(store, 10*time.Minute)

	_, hit := c.Get(context.Background(), models.SearchTypeSearch, "super caps")
	assert.False(t, hit)
}

func TestGetSurvivesHitCountFailure(t *testing.T) {
	store := newFakeStore()
	store.hitErr = errors.New("deadlock")
	c := NewResponseCache(store, 10*time.Minute)

	require.NoError(t, c.Put(context.Background(), models.SearchTypeSearch, "super caps", sampleResponse()))

	got, hit := c.Get(context.Background(), models.SearchTypeSearch, "super caps")
	assert.True(t, hit)
	assert.True(t, got.Cached)
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	store := newFakeStore()
	c := NewResponseCache(store, 10*time.Minute)
	ctx := context.Background()

	first := sampleResponse()
	require.NoError(t, c.Put(ctx, models.SearchTypeSearch, "super caps", first))

	second := sampleResponse()
	second.Answer = "Updated answer."
	require.NoError(t, c.Put(ctx, models.SearchTypeSearch, "super caps", second))

	got, hit := c.Get(ctx, models.SearchTypeSearch, "super caps")
	require.True(t, hit)
	assert.Equal(t, "Updated answer.", got.Answer)
}
