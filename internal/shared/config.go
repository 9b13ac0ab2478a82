// ============================================================================
// internal/shared/config.go
// Configuration management and environment variable helpers
// ============================================================================

package shared

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ============================================================================
// Configuration Structs
// ============================================================================

// Config holds the full server configuration
type Config struct {
	HTTPPort    string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error

	MongoDB  MongoConfig
	Security SecurityConfig
	Upload   UploadConfig
	Export   ExportConfig
	CORS     CORSConfig
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	JWTSecret          string
	JWTExpirationHours int
	BCryptCost         int // BCrypt hashing cost (10-12 recommended)
}

// UploadConfig holds mark-upload configuration
type UploadConfig struct {
	MaxBatchSize int    // Upper bound on records per upload batch
	AliasFile    string // Optional JSON file overriding the header alias table
}

// ExportConfig holds batch report-export configuration
type ExportConfig struct {
	Workers int // Bounded concurrency for per-student rendering
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

// ============================================================================
// Configuration Loading Functions
// ============================================================================

// LoadEnv loads environment variables from .env file
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Warning: %s file not found, using system environment variables", envFile)
		return err
	}

	log.Printf("Successfully loaded environment from %s", envFile)
	return nil
}

// LoadConfig loads server configuration from environment
func LoadConfig() (*Config, error) {
	config := &Config{
		HTTPPort:    GetEnv("HTTP_PORT", "8080"),
		Environment: GetEnv("ENVIRONMENT", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
	}

	// Load MongoDB configuration
	mongoURI := GetEnv("MONGO_URI", "")
	if mongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable is required")
	}

	mongoConfig := DefaultMongoConfig(mongoURI, GetEnv("MONGO_DB_NAME", "MarkRegister"))
	mongoConfig.ConnectTimeout = GetDurationEnv("MONGO_CONNECT_TIMEOUT", mongoConfig.ConnectTimeout)
	mongoConfig.MaxPoolSize = uint64(GetIntEnv("MONGO_MAX_POOL_SIZE", int(mongoConfig.MaxPoolSize)))
	mongoConfig.MinPoolSize = uint64(GetIntEnv("MONGO_MIN_POOL_SIZE", int(mongoConfig.MinPoolSize)))
	mongoConfig.MaxIdleTime = GetDurationEnv("MONGO_MAX_IDLE_TIME", mongoConfig.MaxIdleTime)
	config.MongoDB = *mongoConfig

	// Load security configuration
	config.Security = SecurityConfig{
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		JWTExpirationHours: GetIntEnv("JWT_EXPIRATION_HOURS", 24),
		BCryptCost:         GetIntEnv("BCRYPT_COST", 10),
	}
	if config.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	// Load upload/export configuration
	config.Upload = UploadConfig{
		MaxBatchSize: GetIntEnv("UPLOAD_MAX_BATCH_SIZE", 5000),
		AliasFile:    GetEnv("MARK_ALIAS_FILE", ""),
	}
	config.Export = ExportConfig{
		Workers: GetIntEnv("EXPORT_WORKERS", 4),
	}

	// Load CORS configuration
	config.CORS = CORSConfig{
		AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods:   GetStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
		AllowedHeaders:   GetStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"}),
		AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           GetIntEnv("CORS_MAX_AGE", 300),
	}

	return config, nil
}

// ValidateConfig validates server configuration
func ValidateConfig(config *Config) error {
	if config.HTTPPort == "" {
		return fmt.Errorf("HTTP port is required")
	}

	if config.MongoDB.URI == "" {
		return fmt.Errorf("MongoDB URI is required")
	}

	if config.MongoDB.Database == "" {
		return fmt.Errorf("MongoDB database name is required")
	}

	if config.Upload.MaxBatchSize <= 0 {
		return fmt.Errorf("upload max batch size must be positive")
	}

	if config.Export.Workers <= 0 {
		return fmt.Errorf("export worker count must be positive")
	}

	return nil
}

// ============================================================================
// Environment Variable Helper Functions
// ============================================================================

// GetEnv retrieves an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv retrieves an integer environment variable or returns a default value
func GetIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// GetBoolEnv retrieves a boolean environment variable or returns a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// GetDurationEnv retrieves a duration environment variable or returns a default value
// Supports format like "30s", "5m", "1h"
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s: %s, using default: %v", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// GetStringSliceEnv retrieves a comma-separated string list or returns a default value
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// ============================================================================
// Required Environment Variables Check
// ============================================================================

// CheckRequiredEnvVars checks if all required environment variables are set
func CheckRequiredEnvVars() error {
	required := []string{
		"MONGO_URI",
		"MONGO_DB_NAME",
		"JWT_SECRET",
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	return nil
}

// ============================================================================
// Configuration Display (for debugging)
// ============================================================================

// PrintConfig prints configuration (sanitized) for debugging
func PrintConfig(config *Config) {
	log.Println("=== Server Configuration ===")
	log.Printf("HTTP Port: %s", config.HTTPPort)
	log.Printf("Environment: %s", config.Environment)
	log.Printf("Log Level: %s", config.LogLevel)
	log.Println("=== MongoDB Configuration ===")
	log.Printf("Database: %s", config.MongoDB.Database)
	log.Printf("Max Pool Size: %d", config.MongoDB.MaxPoolSize)
	log.Printf("Min Pool Size: %d", config.MongoDB.MinPoolSize)
	log.Println("=== Upload Configuration ===")
	log.Printf("Max Batch Size: %d", config.Upload.MaxBatchSize)
	log.Printf("Alias File: %s", config.Upload.AliasFile)
	log.Printf("Export Workers: %d", config.Export.Workers)
	log.Println("=== Security Configuration ===")
	log.Printf("JWT Expiration: %d hours", config.Security.JWTExpirationHours)
	log.Printf("BCrypt Cost: %d", config.Security.BCryptCost)
	log.Println("=== CORS Configuration ===")
	log.Printf("Allowed Origins: %v", config.CORS.AllowedOrigins)
	log.Printf("Allow Credentials: %t", config.CORS.AllowCredentials)
	log.Println("============================")
}

// IsDevelopment checks if running in development environment
func IsDevelopment(config *Config) bool {
	return config.Environment == "development"
}

// IsProduction checks if running in production environment
func IsProduction(config *Config) bool {
	return config.Environment == "production"
}
