package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Limits   LimitsConfig
	Fanout   FanoutConfig
}

// ServerConfig holds HTTP server configuration. AdminEmails may change feature request status.
type ServerConfig struct {
	Port            string
	Host            string
	AllowedOrigins  []string
	AdminEmails     []string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration. KAFKA_BROKERS=none disables event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// RedisConfig holds the usage cache configuration. REDIS_ADDR=none disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// LimitsConfig holds the free plan limits
type LimitsConfig struct {
	MaxOpenPositions    int
	MaxMonthlyCreations int
}

// FanoutConfig bounds concurrent notification writes
type FanoutConfig struct {
	Concurrency int
}

// Load reads configuration from a .env file, if present, and environment variables
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", "*"),
			AdminEmails:     getEnvList("ADMIN_EMAILS", "none"),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "premiumtracker"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "position-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "premium-tracker-usage-cache"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_USAGE_TTL", 5*time.Minute),
		},
		Limits: LimitsConfig{
			MaxOpenPositions:    getEnvInt("FREE_MAX_OPEN_POSITIONS", 3),
			MaxMonthlyCreations: getEnvInt("FREE_MAX_MONTHLY_POSITIONS", 10),
		},
		Fanout: FanoutConfig{
			Concurrency: getEnvInt("FANOUT_CONCURRENCY", 16),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Enabled reports whether a Redis address is configured
func (r *RedisConfig) Enabled() bool {
	return r.Addr != "" && r.Addr != "none"
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value. "none" yields an empty list.
func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "none" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return value
}
