package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinLLMTimeout is the floor applied to LLM_TIMEOUT. Large-context requests
// against reasoning models routinely take longer than a minute.
const MinLLMTimeout = 90 * time.Second

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Cache    CacheConfig
	LLM      LLMConfig
	Scoring  ScoringConfig
	Importer ImporterConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	Workers         int
	// WebhookSecret, when set, requires signed automation payloads
	WebhookSecret string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled     bool
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// CacheConfig selects the score cache backend
type CacheConfig struct {
	Backend string // "redis" or "memory"
	TTL     time.Duration
}

// LLMConfig holds chat-completions client configuration
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	DefaultModel   string
	FallbackModel  string
	Timeout        time.Duration
	MaxTokens      int
	Temperature    float64
	RateLimitRPS   float64
	RateLimitBurst int
}

// ScoringConfig holds qualification thresholds and scheduling limits
type ScoringConfig struct {
	QualificationThreshold      int
	SalesQualificationThreshold int
	Concurrency                 int
}

// ImporterConfig holds importer configuration
type ImporterConfig struct {
	MappingFile string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 2),
			WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
		},
		Database: DatabaseConfig{
			Enabled:     getEnvAsBool("DB_ENABLED", true),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "meeting_intel"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Enabled:         getEnvAsBool("STORAGE_ENABLED", true),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-transcripts"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "memory"),
			TTL:     getEnvAsDuration("CACHE_TTL", "720h"),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			DefaultModel:   getEnv("DEFAULT_LLM_MODEL", "gpt-4o-mini"),
			FallbackModel:  getEnv("LLM_FALLBACK_MODEL", "gpt-4o-mini"),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", "120s"),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 500),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			RateLimitRPS:   getEnvAsFloat("LLM_RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvAsInt("LLM_RATE_LIMIT_BURST", 5),
		},
		Scoring: ScoringConfig{
			QualificationThreshold:      getEnvAsInt("QUALIFICATION_THRESHOLD", 3),
			SalesQualificationThreshold: getEnvAsInt("SALES_QUALIFICATION_THRESHOLD", 5),
			Concurrency:                 getEnvAsInt("SCORING_CONCURRENCY", 3),
		},
		Importer: ImporterConfig{
			MappingFile: getEnv("IMPORTER_MAPPING_FILE", ""),
		},
	}

	if config.LLM.Timeout < MinLLMTimeout {
		log.Printf("Warning: LLM_TIMEOUT %s is below %s, raising it", config.LLM.Timeout, MinLLMTimeout)
		config.LLM.Timeout = MinLLMTimeout
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Scoring.QualificationThreshold < 0 || c.Scoring.QualificationThreshold > 5 {
		return fmt.Errorf("QUALIFICATION_THRESHOLD must be between 0 and 5")
	}
	if c.Scoring.SalesQualificationThreshold < 0 || c.Scoring.SalesQualificationThreshold > 8 {
		return fmt.Errorf("SALES_QUALIFICATION_THRESHOLD must be between 0 and 8")
	}
	if c.Scoring.Concurrency < 1 {
		return fmt.Errorf("SCORING_CONCURRENCY must be at least 1")
	}
	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("CACHE_BACKEND must be redis or memory, got %q", c.Cache.Backend)
	}
	return nil
}

// RequireLLM reports whether the chat-completions client can be built.
// Commands that only import or load records skip this check.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
