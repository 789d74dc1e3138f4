package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	LogLevel         slog.Level
	HTTPTimeout      time.Duration
	DatabaseURL      string
	RedisURL         string
	CacheTTL         time.Duration
	AdsURL           string
	AnalysisPeriod   int
	Sources          []string
	BatchConcurrency int
	SaveStrategies   bool
	CORSOrigins      []string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		lvl = slog.LevelDebug
	}
	return Config{
		Port:             envOr("PORT", "8080"),
		LogLevel:         lvl,
		HTTPTimeout:      to,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		CacheTTL:         time.Duration(intOr("CACHE_TTL_SECONDS", 300)) * time.Second,
		AdsURL:           os.Getenv("ADS_API_URL"),
		AnalysisPeriod:   intOr("ANALYSIS_PERIOD", 30),
		Sources:          splitCSV(envOr("SOURCES", "yandex,google,vk")),
		BatchConcurrency: intOr("BATCH_CONCURRENCY", 4),
		SaveStrategies:   boolOr("SAVE_STRATEGIES", true),
		CORSOrigins:      splitCSV(os.Getenv("CORS_ORIGINS")),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.AnalysisPeriod <= 0 {
		errs = append(errs, errors.New("ANALYSIS_PERIOD must be positive"))
	}
	if c.BatchConcurrency <= 0 {
		errs = append(errs, errors.New("BATCH_CONCURRENCY must be positive"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL_SECONDS must not be negative"))
	}
	return errors.Join(errs...)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func intOr(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func boolOr(k string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
