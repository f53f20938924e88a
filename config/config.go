package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Model      ModelConfig
	Compliance ComplianceConfig
	Charts     ChartsConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type CORSConfig struct {
	AllowedOrigins string
}

// ModelConfig locates the persisted regression artifact.
type ModelConfig struct {
	Path  string
	Watch bool
}

type ComplianceConfig struct {
	WriteTimeout time.Duration
}

type ChartsConfig struct {
	CacheTTL time.Duration
}

// RateLimitConfig applies to POST /predict. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	shutdownSec, err := getIntEnv("SHUTDOWN_TIMEOUT_SEC", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SEC: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	dbMaxConns, err := getIntEnv("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	modelWatch, err := getBoolEnv("MODEL_WATCH", true)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_WATCH: %w", err)
	}

	writeTimeoutMS, err := getIntEnv("COMPLIANCE_WRITE_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLIANCE_WRITE_TIMEOUT_MS: %w", err)
	}
	if writeTimeoutMS <= 0 {
		return nil, fmt.Errorf("invalid COMPLIANCE_WRITE_TIMEOUT_MS: must be positive, got %d", writeTimeoutMS)
	}

	chartTTLSec, err := getIntEnv("CHART_CACHE_TTL_SEC", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid CHART_CACHE_TTL_SEC: %w", err)
	}

	rps, err := getFloatEnv("RATE_LIMIT_RPS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getIntEnv("RATE_LIMIT_BURST", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            serverPort,
			ShutdownTimeout: time.Duration(shutdownSec) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "logistics_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Model: ModelConfig{
			Path:  getEnv("MODEL_PATH", "model.json"),
			Watch: modelWatch,
		},
		Compliance: ComplianceConfig{
			WriteTimeout: time.Duration(writeTimeoutMS) * time.Millisecond,
		},
		Charts: ChartsConfig{
			CacheTTL: time.Duration(chartTTLSec) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
