package config

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds all configuration for the service
type Config struct {
	Environment     string
	Port            string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	ThemeDir        string
	ThemeConfigFile string
	ImportBatchSize int
	ImportBatchRate float64 // batches per second allowed by the inter-batch throttle
	DefaultCurrency string
	MaxUploadSizeMB int64
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8095"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:         getEnv("NATS_URL", ""),
		ThemeDir:        getEnv("THEME_DIR", "./themes"),
		ThemeConfigFile: getEnv("THEME_CONFIG_FILE", "./themes/appearance.json"),
		ImportBatchSize: getEnvInt("IMPORT_BATCH_SIZE", 500),
		ImportBatchRate: getEnvFloat("IMPORT_BATCH_RATE", 20),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
		MaxUploadSizeMB: int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 50)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// InitDB initializes the database connection
func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		// Build DSN from individual components if DATABASE_URL not set
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		password := getEnv("DB_PASSWORD", "postgres")
		dbname := getEnv("DB_NAME", "pricelist_db")
		sslmode := getEnv("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode,
		)
	}

	logLevel := logger.Silent
	if cfg.Environment == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
