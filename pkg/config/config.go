package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External providers
	Yahoo    YahooConfig
	NewsWire NewsWireConfig

	// Scoring
	Scoring ScoringConfig

	// Ingestion
	Ingest IngestConfig

	// Alerting
	Alerting AlertingConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// YahooConfig holds the quote/fundamentals provider configuration
type YahooConfig struct {
	BaseURL string
}

// NewsWireConfig holds the headline provider configuration
type NewsWireConfig struct {
	BaseURL string
	APIKey  string
}

// ScoringConfig holds index and sub-feature weights.
// Index weights must sum to 1.0; sub-feature weights are renormalized at
// scoring time over the sub-features that are actually defined.
type ScoringConfig struct {
	FinancialWeight float64
	MarketWeight    float64
	NewsWeight      float64

	// Financial sub-feature weights
	DebtEquityDeltaWeight float64
	RevenueGrowthWeight   float64
	EPSChangeWeight       float64

	// Market sub-feature weights
	VolatilityWeight     float64
	RecentReturnWeight   float64
	MarketCapTrendWeight float64

	// News sub-feature weights
	SentimentWeight        float64
	EventImpactWeight      float64
	HeadlineActivityWeight float64
}

// IngestConfig holds cycle scheduling and retry configuration
type IngestConfig struct {
	CycleSchedule   string        // cron expression for the recurring scoring job
	Lookback        time.Duration // observation window fed to feature engineering
	Retention       time.Duration // raw observation retention for maintenance pruning
	MaxParallel     int           // entities scored concurrently
	MaxRetries      int           // transient source error retries per category
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	FutureSkew      time.Duration // reject news timestamps further in the future
	ExtraKeywords   []string      // "category:keyword" additions to the event vocabulary
}

// AlertingConfig holds alert evaluation configuration
type AlertingConfig struct {
	Threshold  float64 // composite score points
	TopReasons int     // attribution entries copied into alert reasons
}

// Load reads configuration from environment variables.
// This is the only function in the codebase that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"),
		},

		NewsWire: NewsWireConfig{
			BaseURL: getEnv("NEWSWIRE_BASE_URL", "https://finance.yahoo.com"),
			APIKey:  getEnv("NEWSWIRE_API_KEY", ""),
		},

		Scoring: ScoringConfig{
			FinancialWeight: getEnvAsFloat("FINANCIAL_WEIGHT", 0.4),
			MarketWeight:    getEnvAsFloat("MARKET_WEIGHT", 0.3),
			NewsWeight:      getEnvAsFloat("NEWS_WEIGHT", 0.3),

			DebtEquityDeltaWeight: getEnvAsFloat("WEIGHT_DEBT_EQUITY_DELTA", 0.40),
			RevenueGrowthWeight:   getEnvAsFloat("WEIGHT_REVENUE_GROWTH", 0.35),
			EPSChangeWeight:       getEnvAsFloat("WEIGHT_EPS_CHANGE", 0.25),

			VolatilityWeight:     getEnvAsFloat("WEIGHT_VOLATILITY", 0.40),
			RecentReturnWeight:   getEnvAsFloat("WEIGHT_RECENT_RETURN", 0.35),
			MarketCapTrendWeight: getEnvAsFloat("WEIGHT_MARKET_CAP_TREND", 0.25),

			SentimentWeight:        getEnvAsFloat("WEIGHT_SENTIMENT", 0.50),
			EventImpactWeight:      getEnvAsFloat("WEIGHT_EVENT_IMPACT", 0.30),
			HeadlineActivityWeight: getEnvAsFloat("WEIGHT_HEADLINE_ACTIVITY", 0.20),
		},

		Ingest: IngestConfig{
			CycleSchedule:  getEnv("CYCLE_SCHEDULE", "0 */30 * * * *"),
			Lookback:       getEnvAsDuration("LOOKBACK_WINDOW", "720h"),
			Retention:      getEnvAsDuration("OBSERVATION_RETENTION", "2160h"),
			MaxParallel:    getEnvAsInt("MAX_PARALLEL_ENTITIES", 4),
			MaxRetries:     getEnvAsInt("MAX_RETRIES", 3),
			InitialBackoff: getEnvAsDuration("RETRY_INITIAL_BACKOFF", "2s"),
			MaxBackoff:     getEnvAsDuration("RETRY_MAX_BACKOFF", "30s"),
			FutureSkew:     getEnvAsDuration("NEWS_FUTURE_SKEW", "24h"),
			ExtraKeywords:  getEnvAsList("EVENT_KEYWORDS_EXTRA"),
		},

		Alerting: AlertingConfig{
			Threshold:  getEnvAsFloat("SCORE_CHANGE_THRESHOLD", 20.0),
			TopReasons: getEnvAsInt("ALERT_TOP_REASONS", 3),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	sum := c.Scoring.FinancialWeight + c.Scoring.MarketWeight + c.Scoring.NewsWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("index weights must sum to 1.0, got %.3f", sum)
	}

	if c.Alerting.Threshold <= 0 {
		return fmt.Errorf("SCORE_CHANGE_THRESHOLD must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
