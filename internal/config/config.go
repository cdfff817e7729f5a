package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	BackendJSON       = "json"
	BackendPostgres   = "postgres"
	BackendFilesystem = "filesystem"
	BackendMinIO      = "minio"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	StorageBackend string
	DataDir        string
	DatabaseURL    string

	AttachmentBackend string
	AttachmentDir     string
	MaxUploadSize     int

	RedisURL      string
	StatsCacheTTL time.Duration

	JWTSecret       string
	JWTAccessExpiry time.Duration

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	CORSOrigins     string
	IntakeRateLimit int

	AdminUsername string
	AdminPassword string
}

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendJSON),
		DataDir:        dataDir,
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		AttachmentBackend: getEnv("ATTACHMENT_BACKEND", BackendFilesystem),
		AttachmentDir:     getEnv("ATTACHMENT_DIR", filepath.Join(dataDir, "attachments")),
		MaxUploadSize:     getIntEnv("MAX_UPLOAD_SIZE", 20*1024*1024),

		RedisURL:      getEnv("REDIS_URL", ""),
		StatsCacheTTL: getDurationEnv("STATS_CACHE_TTL", time.Minute),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: getDurationEnv("JWT_ACCESS_EXPIRY", 8*time.Hour),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "incident-attachments"),
		MinIOUseSSL:    getBoolEnv("MINIO_USE_SSL", false),

		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:5173"),
		IntakeRateLimit: getIntEnv("INTAKE_RATE_LIMIT", 30),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.StorageBackend {
	case BackendJSON:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.AttachmentBackend {
	case BackendFilesystem, BackendMinIO:
	default:
		return fmt.Errorf("unknown ATTACHMENT_BACKEND %q", c.AttachmentBackend)
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
