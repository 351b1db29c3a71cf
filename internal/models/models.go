package models

import "time"

// SearchType selects which Serper vertical a query runs against.
type SearchType string

const (
	SearchTypeSearch SearchType = "search"
	SearchTypeNews   SearchType = "news"
	SearchTypeImages SearchType = "images"
)

// Valid reports whether t is one of the supported search types.
func (t SearchType) Valid() bool {
	switch t {
	case SearchTypeSearch, SearchTypeNews, SearchTypeImages:
		return true
	}
	return false
}

// QueryContext carries optional financial context supplied by the caller.
type QueryContext struct {
	PortfolioValue *float64 `json:"portfolioValue,omitempty"`
	RiskProfile    string   `json:"riskProfile,omitempty"`
	Age            *int     `json:"age,omitempty"`
	RetirementAge  *int     `json:"retirementAge,omitempty"`
}

// QueryRequest is the wire-level body of POST /api/query.
type QueryRequest struct {
	Query      string        `json:"query"`
	Context    *QueryContext `json:"context,omitempty"`
	SearchType SearchType    `json:"searchType,omitempty"`
}

// QueryResponse is the wire-level success body returned to the caller.
type QueryResponse struct {
	Answer        string           `json:"answer"`
	SearchResults []map[string]any `json:"searchResults"`
	Sources       []string         `json:"sources"`
	Confidence    int              `json:"confidence"`
	QueryType     SearchType       `json:"queryType"`
	TokensUsed    int              `json:"tokensUsed"`
	Cached        bool             `json:"cached"`
}

// QuotaDecision is produced fresh for every request and never cached.
type QuotaDecision struct {
	Allowed          bool      `json:"allowed"`
	DailyRemaining   int64     `json:"dailyRemaining"`
	DailyLimit       int64     `json:"dailyLimit"`
	MonthlyRemaining int64     `json:"monthlyRemaining"`
	MonthlyLimit     int64     `json:"monthlyLimit"`
	NextReset        time.Time `json:"nextReset"`
}

// CacheEntry is one row of the response cache. Entries are only removed by
// expiry: lazy filtering on read plus the admin purge.
type CacheEntry struct {
	Key        string        `json:"key"`
	Query      string        `json:"query"`
	SearchType SearchType    `json:"search_type"`
	Response   QueryResponse `json:"response"`
	HitCount   int           `json:"hit_count"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// QueryLogRecord is one append-only audit row per handled request.
type QueryLogRecord struct {
	ID         int64         `json:"id"`
	UserID     string        `json:"user_id"`
	Query      string        `json:"query"`
	Response   QueryResponse `json:"response"`
	SearchType SearchType    `json:"search_type"`
	TokensUsed int           `json:"tokens_used"`
	LatencyMs  int           `json:"latency_ms"`
	Success    bool          `json:"success"`
	ClientIP   string        `json:"client_ip"`
	UserAgent  string        `json:"user_agent"`
	CreatedAt  time.Time     `json:"created_at"`
}

// CacheStats summarizes the cache table for the admin surface.
type CacheStats struct {
	TotalEntries   int64   `json:"total_entries"`
	LiveEntries    int64   `json:"live_entries"`
	ExpiredEntries int64   `json:"expired_entries"`
	TotalHits      int64   `json:"total_hits"`
	AvgHitCount    float64 `json:"avg_hit_count"`
}

// UserUsage aggregates the query log for one user over a time range.
type UserUsage struct {
	UserID       string  `json:"user_id"`
	QueryCount   int64   `json:"query_count"`
	SuccessCount int64   `json:"success_count"`
	TokensUsed   int64   `json:"tokens_used"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
