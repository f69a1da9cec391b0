package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Square    SquareConfig
	Sync      SyncConfig
	Reminders RemindersConfig
	Redis     RedisConfig
	JWT       JWTConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// SquareConfig holds payments-platform API configuration
type SquareConfig struct {
	BaseURL             string
	AccessToken         string
	LocationID          string
	WebhookSignatureKey string // empty disables webhook signature verification
	Timeout             int    // request timeout in seconds
}

// SyncConfig holds gift card cache synchronization configuration
type SyncConfig struct {
	ReconcileInterval time.Duration
	Disabled          bool
	SnapshotPath      string
}

// RemindersConfig holds invoice reminder queue configuration
type RemindersConfig struct {
	QueuePath       string
	ProcessInterval time.Duration
	Disabled        bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Square: SquareConfig{
			BaseURL:             getEnv("SQUARE_BASE_URL", "https://connect.squareupsandbox.com"),
			AccessToken:         getEnv("SQUARE_ACCESS_TOKEN", ""),
			LocationID:          getEnv("SQUARE_LOCATION_ID", ""),
			WebhookSignatureKey: getEnv("SQUARE_WEBHOOK_SIGNATURE_KEY", ""),
			Timeout:             getEnvAsInt("SQUARE_TIMEOUT", 30),
		},
		Sync: SyncConfig{
			ReconcileInterval: getEnvAsDuration("GIFT_CARD_RECONCILE_INTERVAL", 24*time.Hour),
			Disabled:          getEnvAsBool("GIFT_CARD_DISABLE_SYNC", false),
			SnapshotPath:      getEnv("GIFT_CARD_SNAPSHOT_PATH", "data/gift-cards.json"),
		},
		Reminders: RemindersConfig{
			QueuePath:       getEnv("REMINDER_QUEUE_PATH", "data/reminders.json"),
			ProcessInterval: getEnvAsDuration("REMINDER_PROCESS_INTERVAL", time.Minute),
			Disabled:        getEnvAsBool("REMINDER_QUEUE_DISABLED", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
	}

	return cfg, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
