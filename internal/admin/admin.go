package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/superadviser/query-gateway/internal/models"
)

// Store is the slice of the datastore the admin surface needs.
type Store interface {
	GetCacheStats(ctx context.Context) (*models.CacheStats, error)
	PurgeExpiredCache(ctx context.Context) (int64, error)
	GetUserUsage(ctx context.Context, userID string, from, to time.Time) (*models.UserUsage, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/cache/stats", h.GetCacheStats).Methods("GET")
	router.HandleFunc("/admin/cache/purge", h.PurgeCache).Methods("POST")
	router.HandleFunc("/admin/usage/{userID}", h.GetUserUsage).Methods("GET")
}

func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetCacheStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("cache stats query failed")
		writeError(w, http.StatusInternalServerError, "Failed to get cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.PurgeExpiredCache(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("cache purge failed")
		writeError(w, http.StatusInternalServerError, "Failed to purge cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *Handler) GetUserUsage(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	from, to, err := timeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time range; use YYYY-MM-DD")
		return
	}

	usage, err := h.store.GetUserUsage(r.Context(), userID, from, to)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("usage query failed")
		writeError(w, http.StatusInternalServerError, "Failed to get usage")
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// timeRange parses optional from/to query params, defaulting to the last 30
// days.
func timeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
