package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/superadviser/query-gateway/internal/models"
)

// Key TTLs only need to outlive their window; the window itself is encoded
// in the key, so a stale key can never be read by a later window.
const (
	dailyKeyTTL   = 48 * time.Hour
	monthlyKeyTTL = 35 * 24 * time.Hour
)

// Tracker enforces per-user daily and monthly query allowances on top of
// Redis counters. Check never consumes an allowance; Increment does. The two
// are separate so a request that fails before producing a fresh answer is
// never charged.
type Tracker struct {
	client       *redis.Client
	dailyLimit   int64
	monthlyLimit int64
}

func NewTracker(redisURL string, dailyLimit, monthlyLimit int64) (*Tracker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		client:       redis.NewClient(opt),
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
	}, nil
}

// Check reads the current window counters and reports whether another query
// is permitted, with remaining allowances and the next reset time.
func (t *Tracker) Check(ctx context.Context, userID string) (*models.QuotaDecision, error) {
	now := time.Now().UTC()

	vals, err := t.client.MGet(ctx, dailyKey(userID, now), monthlyKey(userID, now)).Result()
	if err != nil {
		return nil, fmt.Errorf("read quota counters: %w", err)
	}

	return decide(counter(vals[0]), counter(vals[1]), t.dailyLimit, t.monthlyLimit, now), nil
}

// Increment consumes one query from both windows. Expiry is set on the
// first increment of each window.
func (t *Tracker) Increment(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	dk := dailyKey(userID, now)
	mk := monthlyKey(userID, now)

	pipe := t.client.TxPipeline()
	daily := pipe.Incr(ctx, dk)
	monthly := pipe.Incr(ctx, mk)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment quota counters: %w", err)
	}

	if daily.Val() == 1 {
		t.client.Expire(ctx, dk, dailyKeyTTL)
	}
	if monthly.Val() == 1 {
		t.client.Expire(ctx, mk, monthlyKeyTTL)
	}
	return nil
}

func (t *Tracker) Close() error {
	return t.client.Close()
}

func dailyKey(userID string, now time.Time) string {
	return fmt.Sprintf("quota:%s:d:%s", userID, now.Format("2006-01-02"))
}

func monthlyKey(userID string, now time.Time) string {
	return fmt.Sprintf("quota:%s:m:%s", userID, now.Format("2006-01"))
}

// counter interprets an MGET value: absent keys count as zero.
func counter(val any) int64 {
	s, ok := val.(string)
	if !ok {
		return 0
	}
	var n int64
	fmt.Sscanf(s, "%d", &n)
	return n
}

// decide builds a QuotaDecision from raw counter values. Allowed requires
// headroom in both windows. NextReset is the boundary the caller actually
// has to wait for: the month boundary when only the monthly allowance is
// exhausted, the next UTC midnight otherwise.
func decide(daily, monthly, dailyLimit, monthlyLimit int64, now time.Time) *models.QuotaDecision {
	d := &models.QuotaDecision{
		Allowed:          daily < dailyLimit && monthly < monthlyLimit,
		DailyRemaining:   max(dailyLimit-daily, 0),
		DailyLimit:       dailyLimit,
		MonthlyRemaining: max(monthlyLimit-monthly, 0),
		MonthlyLimit:     monthlyLimit,
		NextReset:        nextDailyReset(now),
	}
	if monthly >= monthlyLimit && daily < dailyLimit {
		d.NextReset = nextMonthlyReset(now)
	}
	return d
}

func nextDailyReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func nextMonthlyReset(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

func max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
