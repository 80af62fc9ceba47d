// ============================================================================
// backend/internal/shared/config.go
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

// EngineConfig holds everything the reconciliation engine needs to reach the
// upstream providers.
type EngineConfig struct {
	// Base URL of the provider API (roster, submissions, grades).
	ProviderBaseURL string

	// Bearer token attached to every provider call, if set.
	ProviderAuthToken string

	// Per-call timeout for provider requests. Exceeding it is treated the
	// same as a transport failure.
	ProviderTimeout time.Duration

	// Maximum number of in-flight provider calls during a reconciliation
	// fan-out. Zero means batched-but-unbounded.
	FanOutLimit int
}

// GatewayConfig holds gateway-specific configuration on top of the engine's.
type GatewayConfig struct {
	EngineConfig

	HTTPPort  string
	JWTSecret string

	CORS CORSConfig
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

// LoadEnv loads environment variables from a .env file.
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

// LoadEngineConfig loads engine configuration from the environment.
func LoadEngineConfig() (*EngineConfig, error) {
	baseURL := GetEnv("PROVIDER_BASE_URL", "")
	if baseURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL environment variable is required")
	}

	return &EngineConfig{
		ProviderBaseURL:   strings.TrimRight(baseURL, "/"),
		ProviderAuthToken: GetEnv("PROVIDER_AUTH_TOKEN", ""),
		ProviderTimeout:   GetDurationEnv("PROVIDER_TIMEOUT", 10*time.Second),
		FanOutLimit:       GetIntEnv("RECONCILE_FAN_OUT", 8),
	}, nil
}

// LoadGatewayConfig loads gateway configuration from the environment.
func LoadGatewayConfig() (*GatewayConfig, error) {
	engineConfig, err := LoadEngineConfig()
	if err != nil {
		return nil, err
	}

	config := &GatewayConfig{
		EngineConfig: *engineConfig,
		HTTPPort:     GetEnv("HTTP_PORT", "8080"),
		JWTSecret:    GetEnv("JWT_SECRET", ""),
	}

	config.CORS = CORSConfig{
		AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		AllowedMethods:   GetStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "OPTIONS"}),
		AllowedHeaders:   GetStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           GetIntEnv("CORS_MAX_AGE", 300),
	}

	return config, nil
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

// GetDurationEnv retrieves a duration environment variable or returns a default value.
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
// Configuration Validation
// ============================================================================

// ValidateEngineConfig validates engine configuration
func ValidateEngineConfig(config *EngineConfig) error {
	if config.ProviderBaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}

	if config.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}

	if config.FanOutLimit < 0 {
		return fmt.Errorf("fan-out limit must not be negative")
	}

	return nil
}

// ValidateGatewayConfig validates gateway configuration
func ValidateGatewayConfig(config *GatewayConfig) error {
	if err := ValidateEngineConfig(&config.EngineConfig); err != nil {
		return err
	}

	if config.HTTPPort == "" {
		return fmt.Errorf("HTTP port is required")
	}

	if config.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required for the gateway")
	}

	return nil
}

// ============================================================================
// Configuration Display (for debugging)
// ============================================================================

// PrintGatewayConfig prints configuration (sanitized) for debugging
func PrintGatewayConfig(config *GatewayConfig) {
	log.Println("=== Engine Configuration ===")
	log.Printf("Provider Base URL: %s", config.ProviderBaseURL)
	log.Printf("Provider Timeout: %v", config.ProviderTimeout)
	log.Printf("Reconcile Fan-Out: %d", config.FanOutLimit)
	log.Println("=== Gateway Configuration ===")
	log.Printf("HTTP Port: %s", config.HTTPPort)
	log.Printf("Allowed Origins: %v", config.CORS.AllowedOrigins)
	log.Printf("Allow Credentials: %t", config.CORS.AllowCredentials)
	log.Println("=============================")
}
