package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/superadviser/query-gateway/internal/models"
)

// ErrNotFound is returned when a lookup matches no live row.
var ErrNotFound = errors.New("not found")

// GetCacheEntry returns the live (non-expired) cache row for key, if any.
// Expired rows are filtered here rather than deleted; removal happens via
// PurgeExpiredCache or the storage-side TTL job.
func (db *DB) GetCacheEntry(ctx context.Context, key string) (*models.CacheEntry, error) {
	query := `
        SELECT cache_key, query, search_type, response, hit_count, created_at, expires_at
        FROM response_cache
        WHERE cache_key = $1 AND expires_at > NOW()
    `

	var entry models.CacheEntry
	var payload []byte
	err := db.Pool.QueryRow(ctx, query, key).Scan(
		&entry.Key,
		&entry.Query,
		&entry.SearchType,
		&payload,
		&entry.HitCount,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &entry.Response); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	return &entry, nil
}

// UpsertCacheEntry stores a fresh response under key, overwriting any
// existing row (last writer wins) and resetting its expiry and hit count.
func (db *DB) UpsertCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	payload, err := json.Marshal(entry.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	query := `
        INSERT INTO response_cache (cache_key, query, search_type, response, hit_count, created_at, expires_at)
        VALUES ($1, $2, $3, $4, 0, NOW(), $5)
        ON CONFLICT (cache_key) DO UPDATE
        SET query = EXCLUDED.query,
            search_type = EXCLUDED.search_type,
            response = EXCLUDED.response,
            hit_count = 0,
            created_at = NOW(),
            expires_at = EXCLUDED.expires_at
    `

	_, err = db.Pool.Exec(ctx, query, entry.Key, entry.Query, entry.SearchType, payload, entry.ExpiresAt)
	return err
}

// IncrementCacheHit bumps the hit counter for key. Callers treat failures as
// best-effort bookkeeping.
func (db *DB) IncrementCacheHit(ctx context.Context, key string) error {
	_, err := db.Pool.Exec(ctx, `UPDATE response_cache SET hit_count = hit_count + 1 WHERE cache_key = $1`, key)
	return err
}

// PurgeExpiredCache deletes expired cache rows and returns how many were removed.
func (db *DB) PurgeExpiredCache(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM response_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertQueryLog appends one audit row. Rows are never updated afterwards.
func (db *DB) InsertQueryLog(ctx context.Context, rec *models.QueryLogRecord) error {
	payload, err := json.Marshal(rec.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	query := `
        INSERT INTO query_logs (user_id, query, response, search_type, tokens_used, latency_ms, success, client_ip, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err = db.Pool.Exec(ctx, query,
		rec.UserID,
		rec.Query,
		payload,
		rec.SearchType,
		rec.TokensUsed,
		rec.LatencyMs,
		rec.Success,
		rec.ClientIP,
		rec.UserAgent,
	)
	return err
}

// GetCacheStats summarizes the cache table for the admin surface.
func (db *DB) GetCacheStats(ctx context.Context) (*models.CacheStats, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE expires_at > NOW()),
               COUNT(*) FILTER (WHERE expires_at <= NOW()),
               COALESCE(SUM(hit_count), 0),
               COALESCE(AVG(hit_count), 0)
        FROM response_cache
    `

	var stats models.CacheStats
	err := db.Pool.QueryRow(ctx, query).Scan(
		&stats.TotalEntries,
		&stats.LiveEntries,
		&stats.ExpiredEntries,
		&stats.TotalHits,
		&stats.AvgHitCount,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetUserUsage aggregates the query log for one user between from and to.
func (db *DB) GetUserUsage(ctx context.Context, userID string, from, to time.Time) (*models.UserUsage, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE success),
               COALESCE(SUM(tokens_used), 0),
               COALESCE(AVG(latency_ms), 0)
        FROM query_logs
        WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
    `

	usage := &models.UserUsage{UserID: userID}
	err := db.Pool.QueryRow(ctx, query, userID, from, to).Scan(
		&usage.QueryCount,
		&usage.SuccessCount,
		&usage.TokensUsed,
		&usage.AvgLatencyMs,
	)
	if err != nil {
		return nil, err
	}
	return usage, nil
}
