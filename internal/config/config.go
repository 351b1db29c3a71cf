package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway. It is built once in main
// and passed down explicitly; nothing reads the environment after Load.
type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"` // json or console

	DatabaseURL string `env:"DATABASE_URL,notEmpty"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	JWTSecret    string `env:"JWT_SECRET,notEmpty"`
	SerperAPIKey string `env:"SERPER_API_KEY"`

	DailyQueryLimit   int64 `env:"DAILY_QUERY_LIMIT" envDefault:"10"`
	MonthlyQueryLimit int64 `env:"MONTHLY_QUERY_LIMIT" envDefault:"200"`

	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	SearchTimeout time.Duration `env:"SEARCH_TIMEOUT" envDefault:"15s"`
}

// Load reads .env if present and parses the environment.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
