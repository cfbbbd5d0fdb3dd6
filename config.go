package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/storefront/modules/api"
	"github.com/example/storefront/modules/user"
)

// Config is the process configuration read from the environment.
type Config struct {
	HTTPAddr        string
	DBPath          string
	DBDebug         bool
	RedisAddr       string
	CacheTTL        time.Duration
	JetStreamDir    string
	JWT             user.JWTConfig
	AdminEmail      string
	AdminPassword   string
	RateLimitMax    int
	RateLimitWindow time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

func loadConfig() Config {
	jwt := user.DefaultJWTConfig()
	jwt.SecretKey = getEnv("JWT_SECRET_KEY", jwt.SecretKey)
	jwt.Issuer = getEnv("JWT_ISSUER", jwt.Issuer)
	jwt.AccessTokenDuration = getEnvDuration("JWT_ACCESS_TTL", jwt.AccessTokenDuration)
	jwt.RefreshTokenDuration = getEnvDuration("JWT_REFRESH_TTL", jwt.RefreshTokenDuration)

	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":3000"),
		DBPath:          getEnv("DB_PATH", "storefront.db"),
		DBDebug:         getEnvBool("DB_DEBUG", false),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		JetStreamDir:    getEnv("JETSTREAM_DIR", "./data/jetstream"),
		JWT:             jwt,
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func (c Config) userConfig() user.Config {
	return user.Config{
		JWT:           c.JWT,
		AdminEmail:    c.AdminEmail,
		AdminPassword: c.AdminPassword,
	}
}

func (c Config) apiConfig() api.Config {
	return api.Config{
		Addr:            c.HTTPAddr,
		RateLimitMax:    c.RateLimitMax,
		RateLimitWindow: c.RateLimitWindow,
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
