package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (login throttle counters)
	RedisAddr     string
	RedisPassword string

	// JWT
	JWTSecret         string
	AccessTokenExpiry time.Duration
	RefreshTokenDur   time.Duration

	// MFA
	TOTPIssuer string

	// Login throttle window (one login attempt per window per client IP)
	LoginThrottleWindow time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "citygate"),
		DBPassword: getEnv("DB_PASSWORD", "citygate"),
		DBName:     getEnv("DB_NAME", "citygate"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// MFA
		TOTPIssuer: getEnv("TOTP_ISSUER", "CityGate"),
	}

	config.AccessTokenExpiry = getDuration("ACCESS_TOKEN_EXPIRES_IN", 15*time.Minute)
	config.RefreshTokenDur = getDuration("REFRESH_TOKEN_EXPIRES_IN", 7*24*time.Hour)
	config.LoginThrottleWindow = getDuration("LOGIN_THROTTLE_WINDOW", 6*time.Second)

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a duration environment variable, falling back to
// the default when unset or malformed.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return dur
}
