package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/superadviser/query-gateway/internal/admin"
	"github.com/superadviser/query-gateway/internal/auth"
	"github.com/superadviser/query-gateway/internal/cache"
	"github.com/superadviser/query-gateway/internal/config"
	"github.com/superadviser/query-gateway/internal/db"
	"github.com/superadviser/query-gateway/internal/gateway"
	"github.com/superadviser/query-gateway/internal/quota"
	"github.com/superadviser/query-gateway/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg)

	ctx := context.Background()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	tracker, err := quota.NewTracker(cfg.RedisURL, cfg.DailyQueryLimit, cfg.MonthlyQueryLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize quota tracker")
	}
	defer tracker.Close()

	responseCache := cache.NewResponseCache(database, cfg.CacheTTL)
	searchClient := search.NewClient(cfg.SerperAPIKey, cfg.SearchTimeout)

	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	adminHandler := admin.NewHandler(database)
	adminHandler.RegisterRoutes(router)

	authMiddleware := auth.NewMiddleware(auth.NewVerifier(cfg.JWTSecret))
	queryHandler := gateway.NewHandler(responseCache, tracker, searchClient, database, cfg.SearchTimeout)
	router.PathPrefix("/api/query").Handler(
		gateway.CORS(gateway.PostOnly(authMiddleware.Authenticate(queryHandler))),
	)

	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, gateway.RequestLogger(router)); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
}
