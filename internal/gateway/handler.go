package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/superadviser/query-gateway/internal/auth"
	"github.com/superadviser/query-gateway/internal/metrics"
	"github.com/superadviser/query-gateway/internal/models"
	"github.com/superadviser/query-gateway/internal/search"
	"github.com/superadviser/query-gateway/internal/synth"
)

const (
	minQueryLen = 3
	maxQueryLen = 500

	searchRegion   = "au"
	searchLanguage = "en"
	searchResults  = 10
	newsResults    = 5
)

// ResponseCache is the cache contract the handler needs.
type ResponseCache interface {
	Get(ctx context.Context, searchType models.SearchType, query string) (*models.QueryResponse, bool)
	Put(ctx context.Context, searchType models.SearchType, query string, resp *models.QueryResponse) error
}

// QuotaTracker checks and consumes per-user query allowances. Check never
// consumes; Increment does.
type QuotaTracker interface {
	Check(ctx context.Context, userID string) (*models.QuotaDecision, error)
	Increment(ctx context.Context, userID string) error
}

// SearchClient issues upstream search calls.
type SearchClient interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// QueryLogger appends audit records.
type QueryLogger interface {
	InsertQueryLog(ctx context.Context, rec *models.QueryLogRecord) error
}

// Handler orchestrates one query request: auth, quota, cache, upstream
// search, answer synthesis, usage tracking, audit logging.
type Handler struct {
	cache         ResponseCache
	quota         QuotaTracker
	search        SearchClient
	logger        QueryLogger
	searchTimeout time.Duration
	now           func() time.Time
}

func NewHandler(cache ResponseCache, quota QuotaTracker, searchClient SearchClient, logger QueryLogger, searchTimeout time.Duration) *Handler {
	return &Handler{
		cache:         cache,
		quota:         quota,
		search:        searchClient,
		logger:        logger,
		searchTimeout: searchTimeout,
		now:           time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("panic in query handler")
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
	}()

	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	userID := claims.UserID()

	req, errMsg := parseRequest(r)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	start := h.now()
	ctx := r.Context()

	decision, err := h.quota.Check(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("quota check failed")
		respondError(w, http.StatusInternalServerError, "Failed to check permission")
		return
	}
	if !decision.Allowed {
		metrics.QuotaRejectionsTotal.Inc()
		respondJSON(w, http.StatusTooManyRequests, quotaExceededBody(decision))
		return
	}

	if resp, hit := h.cache.Get(ctx, req.SearchType, req.Query); hit {
		metrics.RecordCacheEvent("hit")
		h.logQuery(userID, req, resp, start, r)
		respondJSON(w, http.StatusOK, resp)
		return
	}
	metrics.RecordCacheEvent("miss")

	resp, degraded := h.freshResponse(ctx, req)

	if !degraded {
		if err := h.cache.Put(ctx, req.SearchType, req.Query, resp); err != nil {
			log.Warn().Err(err).Msg("cache write failed")
		}
	}

	if err := h.quota.Increment(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("usage increment failed")
		respondError(w, http.StatusInternalServerError, "Failed to track usage")
		return
	}

	h.logQuery(userID, req, resp, start, r)
	respondJSON(w, http.StatusOK, resp)
}

// freshResponse runs the cache-miss pipeline. It never returns an error: an
// upstream failure degrades to the fixed fallback answer instead.
func (h *Handler) freshResponse(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, bool) {
	searchCtx, cancel := context.WithTimeout(ctx, h.searchTimeout)
	defer cancel()

	upstreamStart := h.now()
	primary, err := h.search.Search(searchCtx, search.Request{
		Q:    synth.EnhanceQuery(req.Query, req.Context, h.now()),
		Type: req.SearchType,
		GL:   searchRegion,
		HL:   searchLanguage,
		Num:  searchResults,
	})
	metrics.RecordUpstream(string(req.SearchType), h.now().Sub(upstreamStart).Seconds())
	if err != nil {
		log.Warn().Err(err).Str("query", req.Query).Msg("upstream search failed, serving fallback")
		metrics.DegradedResponsesTotal.Inc()
		answer, confidence, tokens := synth.Fallback()
		return &models.QueryResponse{
			Answer:        answer,
			SearchResults: []map[string]any{},
			Sources:       []string{},
			Confidence:    confidence,
			QueryType:     req.SearchType,
			TokensUsed:    tokens,
		}, true
	}

	var news []map[string]any
	if synth.IsFinancialQuery(req.Query) {
		newsCtx, cancelNews := context.WithTimeout(ctx, h.searchTimeout)
		defer cancelNews()

		newsResp, err := h.search.Search(newsCtx, search.Request{
			Q:    synth.NewsQuery(req.Query),
			Type: models.SearchTypeNews,
			GL:   searchRegion,
			HL:   searchLanguage,
			Num:  newsResults,
		})
		if err != nil {
			log.Warn().Err(err).Msg("news search failed, omitting news context")
		} else {
			news = newsResp.News
		}
	}

	answer := synth.Compose(req.Query, req.Context, primary.Organic, news)
	return &models.QueryResponse{
		Answer:        answer,
		SearchResults: organicOrEmpty(primary),
		Sources:       synth.Sources(primary.Organic, news),
		Confidence:    synth.Confidence(len(primary.Organic), len(primary.KnowledgeGraph) > 0),
		QueryType:     req.SearchType,
		TokensUsed:    synth.EstimateTokens(req.Query, answer),
	}, false
}

// logQuery appends the audit record. Logging failures never affect the
// user-visible response.
func (h *Handler) logQuery(userID string, req *models.QueryRequest, resp *models.QueryResponse, start time.Time, r *http.Request) {
	rec := &models.QueryLogRecord{
		UserID:     userID,
		Query:      req.Query,
		Response:   *resp,
		SearchType: req.SearchType,
		TokensUsed: resp.TokensUsed,
		LatencyMs:  int(h.now().Sub(start).Milliseconds()),
		Success:    true,
		ClientIP:   clientIP(r),
		UserAgent:  r.UserAgent(),
	}
	if err := h.logger.InsertQueryLog(r.Context(), rec); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("query log insert failed")
	}
}

// parseRequest decodes and validates the body. The query is validated before
// any external call is made.
func parseRequest(r *http.Request) (*models.QueryRequest, string) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "Invalid request body"
	}

	length := utf8.RuneCountInString(req.Query)
	switch {
	case strings.TrimSpace(req.Query) == "":
		return nil, "Query is required"
	case length < minQueryLen:
		return nil, "Query must be at least 3 characters"
	case length > maxQueryLen:
		return nil, "Query must be at most 500 characters"
	}

	if req.SearchType == "" {
		req.SearchType = models.SearchTypeSearch
	}
	if !req.SearchType.Valid() {
		return nil, "Invalid search type"
	}
	return &req, ""
}

func quotaExceededBody(d *models.QuotaDecision) map[string]any {
	return map[string]any{
		"error":            "Query limit reached",
		"message":          "Upgrade your plan for more queries, or wait for your allowance to reset.",
		"dailyRemaining":   d.DailyRemaining,
		"dailyLimit":       d.DailyLimit,
		"monthlyRemaining": d.MonthlyRemaining,
		"monthlyLimit":     d.MonthlyLimit,
		"nextReset":        d.NextReset,
		"upgradeRequired":  true,
	}
}

func organicOrEmpty(resp *search.Response) []map[string]any {
	if resp.Organic == nil {
		return []map[string]any{}
	}
	return resp.Organic
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
