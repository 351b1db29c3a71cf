package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var noon = time.Date(2026, time.March, 14, 12, 30, 0, 0, time.UTC)

func TestWindowKeys(t *testing.T) {
	assert.Equal(t, "quota:user-1:d:2026-03-14", dailyKey("user-1", noon))
	assert.Equal(t, "quota:user-1:m:2026-03", monthlyKey("user-1", noon))
}

func TestNextDailyReset(t *testing.T) {
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), nextDailyReset(noon))

	// Rolls over month and year boundaries.
	eve := time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), nextDailyReset(eve))
}

func TestNextMonthlyReset(t *testing.T) {
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), nextMonthlyReset(noon))

	dec := time.Date(2026, time.December, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), nextMonthlyReset(dec))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name           string
		daily, monthly int64
		wantAllowed    bool
		wantDailyRem   int64
		wantMonthlyRem int64
		wantReset      time.Time
	}{
		{
			name:    "fresh user",
			daily:   0, monthly: 0,
			wantAllowed:  true,
			wantDailyRem: 10, wantMonthlyRem: 200,
			wantReset: nextDailyReset(noon),
		},
		{
			name:    "under both limits",
			daily:   4, monthly: 40,
			wantAllowed:  true,
			wantDailyRem: 6, wantMonthlyRem: 160,
			wantReset: nextDailyReset(noon),
		},
		{
			name:    "daily exhausted",
			daily:   10, monthly: 40,
			wantAllowed:  false,
			wantDailyRem: 0, wantMonthlyRem: 160,
			wantReset: nextDailyReset(noon),
		},
		{
			name:    "monthly exhausted",
			daily:   2, monthly: 200,
			wantAllowed:  false,
			wantDailyRem: 8, wantMonthlyRem: 0,
			wantReset: nextMonthlyReset(noon),
		},
		{
			name:    "over-consumed counters clamp to zero",
			daily:   15, monthly: 250,
			wantAllowed:  false,
			wantDailyRem: 0, wantMonthlyRem: 0,
			wantReset: nextDailyReset(noon),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decide(tt.daily, tt.monthly, 10, 200, noon)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.Equal(t, tt.wantDailyRem, d.DailyRemaining)
			assert.Equal(t, tt.wantMonthlyRem, d.MonthlyRemaining)
			assert.Equal(t, int64(10), d.DailyLimit)
			assert.Equal(t, int64(200), d.MonthlyLimit)
			assert.Equal(t, tt.wantReset, d.NextReset)
		})
	}
}

func TestCounter(t *testing.T) {
	assert.Equal(t, int64(0), counter(nil))
	assert.Equal(t, int64(7), counter("7"))
	assert.Equal(t, int64(0), counter("garbage"))
}
