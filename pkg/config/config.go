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
	Server      ServerConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Minio       MinioConfig
	Identity    IdentityConfig
	Gemini      GeminiConfig
	HuggingFace HuggingFaceConfig
	Renderer    RendererConfig
	Records     RecordsConfig
	RateLimit   RateLimitConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds PostgreSQL configuration for the report record store
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// MongoConfig holds MongoDB configuration for the report record store
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MinioConfig holds object storage configuration
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLExpiry time.Duration
}

// IdentityConfig holds the identity provider configuration
type IdentityConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GeminiConfig holds the conversational model configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HuggingFaceConfig holds the image captioning model configuration
type HuggingFaceConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// RendererConfig holds report rendering configuration
type RendererConfig struct {
	TemplateDir     string
	Template        string
	LocalFileAccess bool
	AllowScripts    bool
}

// RecordsConfig selects the report record store backend
type RecordsConfig struct {
	Backend string // "postgres" or "mongo"
}

// RateLimitConfig holds chat rate limiting configuration
type RateLimitConfig struct {
	ChatRequests int
	ChatWindow   time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "activmedica"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "activmedica"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			Bucket:    getEnv("MINIO_BUCKET", "reports"),
			URLExpiry: getEnvAsDuration("MINIO_URL_EXPIRY", 7*24*time.Hour),
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
			APIKey:  getEnv("IDENTITY_API_KEY", ""),
			Timeout: getEnvAsDuration("IDENTITY_TIMEOUT", 10*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-pro"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
		HuggingFace: HuggingFaceConfig{
			BaseURL:   getEnv("HF_BASE_URL", "https://api-inference.huggingface.co"),
			APIKey:    getEnv("HF_API_KEY", ""),
			Model:     getEnv("HF_CAPTION_MODEL", "activmedica/mri-caption"),
			MaxTokens: getEnvAsInt("HF_CAPTION_MAX_TOKENS", 50),
			Timeout:   getEnvAsDuration("HF_TIMEOUT", 30*time.Second),
		},
		Renderer: RendererConfig{
			TemplateDir:     getEnv("REPORT_TEMPLATE_DIR", "templates"),
			Template:        getEnv("REPORT_TEMPLATE", "report.html"),
			LocalFileAccess: getEnvAsBool("REPORT_LOCAL_FILE_ACCESS", true),
			AllowScripts:    getEnvAsBool("REPORT_ALLOW_SCRIPTS", true),
		},
		Records: RecordsConfig{
			Backend: getEnv("RECORDS_BACKEND", "postgres"),
		},
		RateLimit: RateLimitConfig{
			ChatRequests: getEnvAsInt("CHAT_RATE_LIMIT", 30),
			ChatWindow:   getEnvAsDuration("CHAT_RATE_WINDOW", time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "activmedica-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
