package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string

	// Security
	AllowedOrigins []string

	// Auth
	JWTSecret    string
	TokenCookie  string
	TokenTTL     time.Duration // zero means tokens never expire
	CookieSecure bool

	// Storage
	MongoURI      string
	MongoDatabase string
	MongoMaxPool  int

	// Presence mirror
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PresenceTTL   time.Duration

	// Relay
	HeartbeatInterval time.Duration
	PongTimeout       time.Duration
	VerifyTimeout     time.Duration
	PersistTimeout    time.Duration
	MaxMessageSize    int

	// Rate Limiting
	RateLimitAPI rate.Limit
	RateLimitWS  rate.Limit

	// Logging
	LogLevel string
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:              "8080",
		AllowedOrigins:    []string{"http://localhost:8080", "http://localhost:3000", "http://localhost:5173"},
		TokenCookie:       domain.DefaultTokenCookie,
		CookieSecure:      true,
		MongoDatabase:     "pairchat",
		MongoMaxPool:      100,
		PresenceTTL:       10 * time.Minute,
		HeartbeatInterval: domain.HeartbeatInterval,
		PongTimeout:       domain.PongTimeout,
		VerifyTimeout:     domain.VerifyTimeout,
		PersistTimeout:    domain.PersistTimeout,
		MaxMessageSize:    domain.MaxMessageSize,
		RateLimitAPI:      domain.DefaultRateLimitAPI,
		RateLimitWS:       domain.DefaultRateLimitWS,
		LogLevel:          "info", // Options: debug, info, warn, error, silent
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	// Server
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Security
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	// CLIENT_URL is the single-origin form used by the frontend deployment
	if client := os.Getenv("CLIENT_URL"); client != "" {
		cfg.AllowedOrigins = appendUnique(cfg.AllowedOrigins, strings.TrimRight(client, "/"))
	}

	// Auth
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if name := os.Getenv("TOKEN_COOKIE"); name != "" {
		cfg.TokenCookie = name
	}
	if ttl := os.Getenv("TOKEN_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			cfg.TokenTTL = time.Duration(hours) * time.Hour
		}
	}
	if secure := os.Getenv("COOKIE_SECURE"); secure != "" {
		if val, err := strconv.ParseBool(secure); err == nil {
			cfg.CookieSecure = val
		}
	}

	// Storage
	cfg.MongoURI = os.Getenv("MONGO_URI")
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		cfg.MongoDatabase = db
	}
	cfg.MongoMaxPool = positiveInt("MONGO_MAX_POOL", cfg.MongoMaxPool)

	// Presence mirror
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if db := os.Getenv("REDIS_DB"); db != "" {
		if val, err := strconv.Atoi(db); err == nil && val >= 0 {
			cfg.RedisDB = val
		}
	}
	if ttl := positiveInt("PRESENCE_TTL_SECONDS", 0); ttl > 0 {
		cfg.PresenceTTL = time.Duration(ttl) * time.Second
	}

	// Relay
	cfg.HeartbeatInterval = millis("HEARTBEAT_INTERVAL_MS", cfg.HeartbeatInterval)
	cfg.PongTimeout = millis("PONG_TIMEOUT_MS", cfg.PongTimeout)
	cfg.VerifyTimeout = millis("VERIFY_TIMEOUT_MS", cfg.VerifyTimeout)
	cfg.PersistTimeout = millis("PERSIST_TIMEOUT_MS", cfg.PersistTimeout)
	cfg.MaxMessageSize = positiveInt("MAX_MESSAGE_SIZE", cfg.MaxMessageSize)

	// Rate Limiting
	if val := positiveInt("RATE_LIMIT_API", 0); val > 0 {
		cfg.RateLimitAPI = rate.Limit(val)
	}
	if val := positiveInt("RATE_LIMIT_WS", 0); val > 0 {
		cfg.RateLimitWS = rate.Limit(val)
	}

	// Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errMissing("JWT_SECRET")
	}
	if c.PongTimeout >= c.HeartbeatInterval {
		return errInvalid("PONG_TIMEOUT_MS must be shorter than HEARTBEAT_INTERVAL_MS")
	}
	return nil
}

// IsOriginAllowed checks if the origin is in the allowed list
func (c *Config) IsOriginAllowed(origin string) bool {
	// Empty origin is allowed (same-origin requests)
	if origin == "" {
		return true
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// parseOrigins parses comma-separated origins
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func positiveInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			return val
		}
	}
	return def
}

func millis(key string, def time.Duration) time.Duration {
	if ms := positiveInt(key, 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

// Global configuration instance
var AppConfig = LoadFromEnv()
