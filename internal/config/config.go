package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/soeholm/vandstand/internal/tide"
	"github.com/soeholm/vandstand/internal/waterlevel/sources"
)

// AppConfig carries every tunable of the service. The tide constants live
// here too: the model is one configurable instance, not a set of hardcoded
// variants.
type AppConfig struct {
	Port      string
	AppEnv    string // "dev" or "prod"; switches the slog handler
	LogLevel  string
	StaticDir string

	// HTTPTimeout bounds each outbound source request.
	HTTPTimeout time.Duration
	// FetchTimeout bounds one whole adapter fan-out.
	FetchTimeout time.Duration
	// CacheTTL is how long a fused response stays valid.
	CacheTTL time.Duration
	// PrefetchInterval drives the background refresh job; 0 disables it.
	PrefetchInterval time.Duration

	// Bounds is the plausible water-level band for live readings.
	Bounds sources.Bounds

	// Tide holds the simulated model constants.
	Tide tide.Config
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:      getenvDefault("PORT", "8080"),
		AppEnv:    getenvDefault("APP_ENV", "prod"),
		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		StaticDir: getenvDefault("STATIC_DIR", "./public"),
		Bounds:    sources.DefaultBounds(),
		Tide:      tide.DefaultConfig(),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PrefetchInterval, err = getenvDuration("PREFETCH_INTERVAL", 0); err != nil {
		return nil, err
	}

	cfg.Bounds.MinCm = getenvInt("PLAUSIBLE_MIN_CM", cfg.Bounds.MinCm)
	cfg.Bounds.MaxCm = getenvInt("PLAUSIBLE_MAX_CM", cfg.Bounds.MaxCm)
	if cfg.Bounds.MinCm >= cfg.Bounds.MaxCm {
		return nil, fmt.Errorf("PLAUSIBLE_MIN_CM must be below PLAUSIBLE_MAX_CM")
	}

	cfg.Tide.AmplitudeCm = getenvFloat("TIDE_AMPLITUDE_CM", cfg.Tide.AmplitudeCm)
	cfg.Tide.MeanLevelCm = getenvFloat("TIDE_MEAN_LEVEL_CM", cfg.Tide.MeanLevelCm)
	cfg.Tide.WeatherVariationCm = getenvFloat("TIDE_WEATHER_VARIATION_CM", cfg.Tide.WeatherVariationCm)
	cfg.Tide.SpringBoost = getenvFloat("TIDE_SPRING_BOOST", cfg.Tide.SpringBoost)
	cfg.Tide.NeapReduction = getenvFloat("TIDE_NEAP_REDUCTION", cfg.Tide.NeapReduction)

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
