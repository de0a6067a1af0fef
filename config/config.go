// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// System defaults used when a tenant has no saved settings, and as the
// baseline for Defaults().
const (
	DefaultRelevanceThreshold  = 6.0
	DefaultSimilarityThreshold = 0.85
	DefaultMaxAgeDays          = 7
	DefaultLookbackDays        = 30
	DefaultItemDelay           = 2 * time.Second
	DefaultMaxErrorsReported   = 20
)

// Config holds process-level configuration.
type Config struct {
	Addr         string
	DatabasePath string

	CohereAPIKey string
	EmbedModel   string
	ChatModel    string

	RedisAddr string
	RedisPass string
	RedisDB   int

	KafkaBrokers []string
	KafkaTopic   string

	S3Bucket string
	S3Region string
	S3Prefix string

	ItemDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:         getEnvOrDefault("ADDR", ":8080"),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/curator.db"),
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		EmbedModel:   getEnvOrDefault("COHERE_EMBED_MODEL", "embed-english-v3.0"),
		ChatModel:    getEnvOrDefault("COHERE_CHAT_MODEL", "command-r-08-2024"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisPass:    os.Getenv("REDIS_PASS"),
		KafkaTopic:   getEnvOrDefault("KAFKA_PROGRESS_TOPIC", "curation-progress"),
		S3Bucket:     strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:     strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Prefix:     strings.Trim(strings.TrimSpace(os.Getenv("S3_PREFIX")), "/"),
		ItemDelay:    DefaultItemDelay,
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		cfg.RedisDB = db
	}

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if raw := os.Getenv("ITEM_DELAY_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("invalid ITEM_DELAY_SECONDS %q", raw)
		}
		cfg.ItemDelay = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// Settings are the tenant-configurable curation knobs.
type Settings struct {
	RelevanceThreshold  float64 `json:"relevance_threshold"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxAgeDays          int     `json:"max_age_days"`
	LookbackDays        int     `json:"lookback_days"`
	BrandVoice          string  `json:"brand_voice,omitempty"`
}

// Defaults returns the system-default tenant settings.
func Defaults() Settings {
	return Settings{
		RelevanceThreshold:  DefaultRelevanceThreshold,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxAgeDays:          DefaultMaxAgeDays,
		LookbackDays:        DefaultLookbackDays,
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
