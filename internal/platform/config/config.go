package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabasePath    string
	Port            string
	IsProduction    bool
	RateProviderURL string
	RateCacheTTL    time.Duration
	SyncedRetention int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("DB_PATH", "splitledger.db")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("RATE_PROVIDER_URL", "")
	viper.SetDefault("RATE_CACHE_TTL", "24h")
	viper.SetDefault("QUEUE_SYNCED_RETENTION", 100)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabasePath = viper.GetString("DB_PATH")
	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.RateProviderURL = viper.GetString("RATE_PROVIDER_URL")
	if cfg.RateProviderURL == "" {
		log.Println("Warning: RATE_PROVIDER_URL not set. Currency conversion will fall back to cached or identity rates.")
	}

	ttlStr := viper.GetString("RATE_CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		ttl = 24 * time.Hour
		if ttlStr != "" {
			log.Printf("Warning: Invalid value for RATE_CACHE_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl.String())
		}
	}
	cfg.RateCacheTTL = ttl

	cfg.SyncedRetention = viper.GetInt("QUEUE_SYNCED_RETENTION")
	if cfg.SyncedRetention < 0 {
		log.Printf("Warning: QUEUE_SYNCED_RETENTION must not be negative (got %d). Defaulting to 100.\n", cfg.SyncedRetention)
		cfg.SyncedRetention = 100
	}

	return cfg, nil
}
