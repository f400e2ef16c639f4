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

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Harvest target
	Symbol string

	// External APIs
	Sina SinaConfig

	// Output
	Output OutputConfig

	// Database (optional sink)
	Database DatabaseConfig

	// Redis (optional shared rate limit + API cache)
	Redis RedisConfig

	// Scheduler
	Schedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// SinaConfig holds the Sina money-flow endpoint configuration.
// Paginator와 Client는 전역 상수 대신 이 값을 주입받는다.
type SinaConfig struct {
	BaseURL   string
	PageSize  int
	SortField string
	Ascending bool
	Delay     time.Duration // 가득 찬 페이지 이후 다음 요청까지 고정 대기
	Timeout   time.Duration
	Encoding  string // gbk, gb18030, utf-8
	UserAgent string
	Referer   string
	RateLimit float64 // requests per second, 0 = off
}

// OutputConfig holds output artifact settings
type OutputConfig struct {
	Dir     string
	Parquet bool
	CSV     bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database sink is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

const (
	DefaultSinaURL   = "https://vip.stock.finance.sina.com.cn/quotes_service/api/json_v2.php/MoneyFlow.ssl_qsfx_lscjfb"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultReferer   = "https://vip.stock.finance.sina.com.cn/"
)

// Load reads configuration from environment variables, after loading the
// first .env file found next to the working directory or the executable.
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit env file. An empty path searches the
// default locations; a missing explicit file is an error.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		loadEnvFile()
	}

	cfg := &Config{
		Port:   getEnv("PORT", "8089"),
		Env:    getEnv("ENV", "development"),
		Symbol: getEnv("FUNDFLOW_SYMBOL", "sh.600519"),

		Sina: SinaConfig{
			BaseURL:   getEnv("SINA_BASE_URL", DefaultSinaURL),
			PageSize:  getEnvAsInt("SINA_PAGE_SIZE", 50),
			SortField: getEnv("SINA_SORT", "opendate"),
			Ascending: getEnvAsBool("SINA_ASC", false),
			Delay:     getEnvAsDuration("SINA_DELAY", "300ms"),
			Timeout:   getEnvAsDuration("SINA_TIMEOUT", "30s"),
			Encoding:  strings.ToLower(getEnv("SINA_ENCODING", "gbk")),
			UserAgent: getEnv("SINA_USER_AGENT", DefaultUserAgent),
			Referer:   getEnv("SINA_REFERER", DefaultReferer),
			RateLimit: getEnvAsFloat("SINA_RATE_LIMIT", 0),
		},

		Output: OutputConfig{
			Dir:     getEnv("OUTPUT_DIR", "output"),
			Parquet: getEnvAsBool("OUTPUT_PARQUET", true),
			CSV:     getEnvAsBool("OUTPUT_CSV", true),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
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

		Schedule: getEnv("FUNDFLOW_SCHEDULE", "0 30 16 * * 1-5"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Sina.BaseURL == "" {
		return fmt.Errorf("SINA_BASE_URL is required")
	}
	if c.Sina.PageSize <= 0 {
		return fmt.Errorf("SINA_PAGE_SIZE must be positive, got %d", c.Sina.PageSize)
	}
	if c.Sina.Delay < 0 {
		return fmt.Errorf("SINA_DELAY must not be negative")
	}
	if c.Sina.RateLimit < 0 {
		return fmt.Errorf("SINA_RATE_LIMIT must not be negative")
	}

	switch c.Sina.Encoding {
	case "gbk", "gb18030", "utf-8", "utf8":
	default:
		return fmt.Errorf("SINA_ENCODING must be one of: gbk, gb18030, utf-8")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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
