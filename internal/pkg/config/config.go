package config

import (
    "fmt"
    "github.com/spf13/viper"
)

type Config struct {
    ServerPort    string `mapstructure:"SERVER_PORT"`
    QueueCapacity int    `mapstructure:"QUEUE_CAPACITY"`
    NumWorkers    int    `mapstructure:"NUM_WORKERS"`

    // Archive (bulk result export) config
    ArchiveURL    string `mapstructure:"ARCHIVE_URL"`
    ArchiveIndex  string `mapstructure:"ARCHIVE_INDEX"`
    BulkThreshold int    `mapstructure:"BULK_THRESHOLD"`
    FlushInterval int    `mapstructure:"FLUSH_INTERVAL"`
    MaxRetries    int    `mapstructure:"MAX_RETRIES"`

    // Redis result cache config; empty host falls back to the in-memory LRU
    RedisHost     string `mapstructure:"REDIS_HOST"`
    RedisPort     string `mapstructure:"REDIS_PORT"`
    RedisPassword string `mapstructure:"REDIS_PASSWORD"`
    RedisDB       int    `mapstructure:"REDIS_DB"`
    CacheTTLHours int    `mapstructure:"CACHE_TTL_HOURS"`
    CacheCapacity int    `mapstructure:"CACHE_CAPACITY"`

    // Remote NER service config; empty URL uses the built-in tagger
    NerServiceURL string `mapstructure:"NER_SERVICE_URL"`

    // LLM enrichment config; empty key disables enrichment
    OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`
    OpenAIModel   string `mapstructure:"OPENAI_MODEL"`
    OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`

    // Calibration knobs
    BotLikelyThreshold    float64 `mapstructure:"BOT_LIKELY_THRESHOLD"`
    CoordinationThreshold float64 `mapstructure:"COORDINATION_THRESHOLD"`

    LogLevel string `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
    // Set defaults for configuration values
    viper.SetDefault("SERVER_PORT", "8080")
    viper.SetDefault("QUEUE_CAPACITY", 1000)
    viper.SetDefault("NUM_WORKERS", 4) // Default to 4 workers

    // Archive defaults
    viper.SetDefault("ARCHIVE_URL", "http://localhost:9200/_bulk")
    viper.SetDefault("ARCHIVE_INDEX", "threatlens_results")
    viper.SetDefault("BULK_THRESHOLD", 25)
    viper.SetDefault("FLUSH_INTERVAL", 30)
    viper.SetDefault("MAX_RETRIES", 3)

    // Cache defaults: Redis off unless a host is configured
    viper.SetDefault("REDIS_HOST", "")
    viper.SetDefault("REDIS_PORT", "6379")
    viper.SetDefault("REDIS_PASSWORD", "")
    viper.SetDefault("REDIS_DB", 0)
    viper.SetDefault("CACHE_TTL_HOURS", 24)
    viper.SetDefault("CACHE_CAPACITY", 1024)

    // NER service defaults
    viper.SetDefault("NER_SERVICE_URL", "")

    // Enrichment defaults
    viper.SetDefault("OPENAI_API_KEY", "")
    viper.SetDefault("OPENAI_MODEL", "")
    viper.SetDefault("OPENAI_BASE_URL", "")

    // Calibration defaults
    viper.SetDefault("BOT_LIKELY_THRESHOLD", 50.0)
    viper.SetDefault("COORDINATION_THRESHOLD", 0.6)

    viper.SetDefault("LOG_LEVEL", "info")

    viper.AutomaticEnv()

    var config Config
    if err := viper.Unmarshal(&config); err != nil {
        return nil, fmt.Errorf("failed to unmarshal config: %w", err)
    }
    return &config, nil
}
