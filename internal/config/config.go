package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Model definition. Empty ModelFile uses the built-in model.
	ModelFile  string
	ModelWatch bool

	// Assessment publishing. Empty KafkaBrokers disables it.
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration
	PublishQueueSize   int

	// Headline feed. Empty FeedURL disables it.
	FeedURL             string
	FeedTimeout         time.Duration
	FeedLimit           int
	FeedCacheTTL        time.Duration
	FeedCacheSize       int
	FeedRefreshSchedule string

	// Sessions.
	MaxSessions int
	SessionTTL  time.Duration
}

// PublishEnabled reports whether assessments are sent to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

// FeedEnabled reports whether a headline feed is configured.
func (c *Config) FeedEnabled() bool { return c.FeedURL != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	feedCacheTTL, err := parsePositiveDuration("FEED_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	sessionTTL, err := parsePositiveDuration("SESSION_TTL", "12h")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	modelFile := os.Getenv("MODEL_FILE")
	modelWatch := modelFile != ""
	if v := os.Getenv("MODEL_WATCH"); v != "" {
		modelWatch = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ModelFile:  modelFile,
		ModelWatch: modelWatch,

		KafkaBrokers:       brokers,
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "unrest-assessments"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		PublishQueueSize:   parsePositiveInt("PUBLISH_QUEUE_SIZE", 1000),

		FeedURL:             os.Getenv("FEED_URL"),
		FeedTimeout:         feedTimeout,
		FeedLimit:           parsePositiveInt("FEED_LIMIT", 5),
		FeedCacheTTL:        feedCacheTTL,
		FeedCacheSize:       parsePositiveInt("FEED_CACHE_SIZE", 32),
		FeedRefreshSchedule: os.Getenv("FEED_REFRESH_SCHEDULE"),

		MaxSessions: parsePositiveInt("MAX_SESSIONS", 10000),
		SessionTTL:  sessionTTL,
	}

	if cfg.PublishEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.ModelWatch && cfg.ModelFile == "" {
		return nil, errors.New("MODEL_WATCH is true but MODEL_FILE is not set")
	}
	if cfg.FeedRefreshSchedule != "" && !cfg.FeedEnabled() {
		return nil, errors.New("FEED_REFRESH_SCHEDULE is set but FEED_URL is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parsePositiveInt falls back to def on unset, malformed or non-positive values.
func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
