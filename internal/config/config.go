package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	StoreTimeout  time.Duration
	CatalogSource string

	// Provider selection
	SelectionMode          string
	OracleProvider         string
	OracleFallbackProvider string
	OracleTimeout          time.Duration
	OpenAIAPIKey           string
	OpenAIModel            string
	GeminiAPIKey           string
	GeminiModel            string
	BedrockModelID         string
	DecisionCacheTTL       time.Duration
	DecisionCacheSize      int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email
	EmailProvider   string
	SendGridAPIKey  string
	EmailFrom       string
	EmailFromName   string
	NotifyRecipient string
	NotifyTimeout   time.Duration

	// Identity
	SessionJWTSecret string
	SessionJWKSURL   string
	SessionIssuer    string
	SessionAudience  string
	AdminJWTSecret   string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Reminders
	ReminderLeadTime time.Duration
	ReminderTimezone string
}

// LoadDotEnv populates the process environment from a .env file when one
// exists. Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StoreTimeout:  getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		CatalogSource: getEnv("CATALOG_SOURCE", "data/providers.json"),

		SelectionMode:          strings.ToLower(strings.TrimSpace(getEnv("SELECTION_MODE", "heuristic"))),
		OracleProvider:         strings.ToLower(strings.TrimSpace(getEnv("ORACLE_PROVIDER", "openai"))),
		OracleFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("ORACLE_FALLBACK_PROVIDER", ""))),
		OracleTimeout:          getEnvAsDuration("ORACLE_TIMEOUT", 4*time.Second),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID:         getEnv("BEDROCK_MODEL_ID", ""),
		DecisionCacheTTL:       getEnvAsDuration("DECISION_CACHE_TTL", 5*time.Minute),
		DecisionCacheSize:      getEnvAsInt("DECISION_CACHE_SIZE", 512),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider:   strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:       getEnv("EMAIL_FROM", "noreply@example.com"),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "LifeMap"),
		NotifyRecipient: strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_RECIPIENT", "identity"))),
		NotifyTimeout:   getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),

		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
		SessionJWKSURL:   getEnv("SESSION_JWKS_URL", ""),
		SessionIssuer:    getEnv("SESSION_ISSUER", ""),
		SessionAudience:  getEnv("SESSION_AUDIENCE", ""),
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		ReminderLeadTime: getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),
		ReminderTimezone: getEnv("REMINDER_TIMEZONE", "Australia/Sydney"),
	}
}

// OracleEnabled reports whether bookings should consult the ranking oracle.
func (c *Config) OracleEnabled() bool {
	return c.SelectionMode == "oracle"
}

// SessionAuthEnabled reports whether an identity provider is configured. When
// it is not, requester identities in request bodies are taken at face value.
func (c *Config) SessionAuthEnabled() bool {
	return strings.TrimSpace(c.SessionJWTSecret) != "" || strings.TrimSpace(c.SessionJWKSURL) != ""
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
