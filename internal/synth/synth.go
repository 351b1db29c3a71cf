// Package synth composes advisory answers from search results. Everything
// here is deterministic template and keyword selection over the inputs, so
// it is testable without network access.
package synth

import (
	"fmt"
	"strings"
	"time"

	"github.com/superadviser/query-gateway/internal/models"
)

const domainQualifier = "Australian superannuation investment advice"

const disclaimer = "This is general information only and does not constitute personal financial advice. " +
	"Consider your own objectives, financial situation and needs, and consult a licensed financial adviser before acting."

var financialKeywords = []string{
	"super", "superannuation", "invest", "retirement", "pension", "portfolio",
	"shares", "stock", "market", "fund", "contribution", "dividend", "etf",
	"smsf", "tax", "salary sacrifice",
}

var marketInsights = map[string]string{
	"superannuation": "Superannuation settings such as contribution caps and preservation rules are reviewed each financial year, so current thresholds matter more than historical ones.",
	"portfolio":      "Diversification across asset classes remains the most reliable way to manage portfolio risk through changing market cycles.",
	"market":         "Markets move through cycles; staying invested through volatility has historically outperformed attempts to time entries and exits.",
	"default":        "Long-term investment outcomes are driven mostly by asset allocation, fees and contribution discipline rather than individual picks.",
}

var recommendationBlocks = map[string][]string{
	"contribution": {
		"Check your concessional contribution cap before adding pre-tax contributions this financial year.",
		"Consider salary sacrifice arrangements to make use of unused cap space.",
		"Review whether carry-forward concessional contributions apply to you.",
	},
	"portfolio": {
		"Review your asset allocation against your risk profile at least annually.",
		"Compare your fund's fees and long-term returns with similar options.",
		"Rebalance gradually rather than reacting to short-term market moves.",
	},
	"default": {
		"Review your superannuation investment option against your time horizon.",
		"Consolidate lost or duplicate super accounts to avoid double fees.",
		"Set up regular contributions so returns compound over time.",
	},
}

var fallbackAnswer = "I couldn't reach live market data just now, so here is general guidance:\n\n" +
	"Investing fundamentals:\n" +
	"- Diversify across asset classes to spread risk.\n" +
	"- Keep fees low; they compound against you over decades.\n" +
	"- Match your investment mix to your time horizon.\n\n" +
	"Superannuation:\n" +
	"- Concessional and non-concessional contributions have annual caps.\n" +
	"- Your choice of investment option matters more than fund branding.\n" +
	"- Check your employer contributions are being paid on time.\n\n" +
	"Risk management:\n" +
	"- Hold an emergency fund outside your investments.\n" +
	"- Avoid reacting to short-term market noise.\n" +
	"- Review insurance held inside your super.\n\n" + disclaimer

const fallbackConfidence = 60
const fallbackTokens = 150

// EnhanceQuery builds the upstream search string: the raw query plus a fixed
// domain qualifier, optional caller context, and the current year.
func EnhanceQuery(query string, qc *models.QueryContext, now time.Time) string {
	parts := []string{query, domainQualifier}

	if qc != nil {
		if rp := strings.TrimSpace(qc.RiskProfile); rp != "" {
			parts = append(parts, rp+" risk profile")
		}
		if qc.Age != nil && qc.RetirementAge != nil && *qc.RetirementAge > *qc.Age {
			parts = append(parts, fmt.Sprintf("%d years to retirement", *qc.RetirementAge-*qc.Age))
		}
	}

	parts = append(parts, fmt.Sprintf("%d", now.Year()))
	return strings.Join(parts, " ")
}

// IsFinancialQuery reports whether the query matches the fixed financial
// keyword list, case-insensitively. Financial queries get a secondary news
// search for sentiment context.
func IsFinancialQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range financialKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// NewsQuery derives the secondary news search string from the original
// query, truncated to its first 100 characters.
func NewsQuery(query string) string {
	if len(query) > 100 {
		query = query[:100]
	}
	return query + " Australian financial markets news"
}

// Compose builds the answer text from the query, caller context and raw
// search records. Snippet content is never summarized; its presence only
// gates which canned paragraph is used.
func Compose(query string, qc *models.QueryContext, organic, news []map[string]any) string {
	var b strings.Builder

	if qc != nil && qc.PortfolioValue != nil {
		fmt.Fprintf(&b, "With a portfolio of $%s in mind:\n\n", formatAmount(*qc.PortfolioValue))
	}

	b.WriteString(marketInsight(organic))

	if len(news) > 0 {
		b.WriteString("\n\nRecent news sentiment looks " + newsSentiment(news) + " for Australian investors.")
	}

	b.WriteString("\n\nRecommendations:\n")
	for _, rec := range recommendations(query) {
		b.WriteString("- " + rec + "\n")
	}

	b.WriteString("\n" + disclaimer)
	return b.String()
}

// marketInsight picks one fixed sentence keyed on what the organic snippets
// mention, checked in priority order.
func marketInsight(organic []map[string]any) string {
	text := strings.ToLower(joinedField(organic, "snippet"))
	for _, key := range []string{"superannuation", "portfolio", "market"} {
		if strings.Contains(text, key) {
			return marketInsights[key]
		}
	}
	return marketInsights["default"]
}

// newsSentiment maps news snippet keywords onto a fixed sentiment label.
func newsSentiment(news []map[string]any) string {
	text := strings.ToLower(joinedField(news, "title") + " " + joinedField(news, "snippet"))
	switch {
	case strings.Contains(text, "growth") || strings.Contains(text, "positive"):
		return "positive"
	case strings.Contains(text, "decline") || strings.Contains(text, "concern"):
		return "cautious"
	default:
		return "mixed"
	}
}

// recommendations picks the fixed 3-item block keyed on the query text.
func recommendations(query string) []string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "contribut"):
		return recommendationBlocks["contribution"]
	case strings.Contains(q, "portfolio"):
		return recommendationBlocks["portfolio"]
	default:
		return recommendationBlocks["default"]
	}
}

// Sources lists the top 3 organic and top 2 news results as "title - link"
// strings, in that order.
func Sources(organic, news []map[string]any) []string {
	sources := make([]string, 0, 5)
	sources = appendSources(sources, organic, 3)
	sources = appendSources(sources, news, 2)
	return sources
}

func appendSources(dst []string, records []map[string]any, limit int) []string {
	for i, rec := range records {
		if i >= limit {
			break
		}
		title, _ := rec["title"].(string)
		link, _ := rec["link"].(string)
		if title == "" && link == "" {
			continue
		}
		dst = append(dst, title+" - "+link)
	}
	return dst
}

// Confidence scores a fresh answer from result volume and knowledge-graph
// presence, always landing in [70, 95] on the live path.
func Confidence(organicCount int, hasKnowledgeGraph bool) int {
	score := 70 + min(3*organicCount, 20)
	if hasKnowledgeGraph {
		score += 10
	}
	return min(score, 95)
}

// EstimateTokens approximates token usage as ceil((len(query)+len(answer))/4).
func EstimateTokens(query, answer string) int {
	return (len(query) + len(answer) + 3) / 4
}

// Fallback returns the fixed degraded answer used when the upstream search
// fails outright.
func Fallback() (answer string, confidence, tokens int) {
	return fallbackAnswer, fallbackConfidence, fallbackTokens
}

func joinedField(records []map[string]any, field string) string {
	var parts []string
	for _, rec := range records {
		if s, ok := rec[field].(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// formatAmount renders a dollar amount with thousands separators and no
// cents, e.g. 250000 -> "250,000".
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
