package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/lifemap/lifemap-api/internal/config"
	httpmiddleware "github.com/lifemap/lifemap-api/internal/http/middleware"
	"github.com/lifemap/lifemap-api/internal/matching"
	"github.com/lifemap/lifemap-api/internal/reminders"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildDecisionCache prefers Redis so replicas share oracle decisions, and
// falls back to an in-process LRU.
func BuildDecisionCache(redisClient *redis.Client, cfg *appconfig.Config) matching.DecisionCache {
	ttl := matching.DefaultDecisionTTL
	size := 0
	if cfg != nil {
		if cfg.DecisionCacheTTL > 0 {
			ttl = cfg.DecisionCacheTTL
		}
		size = cfg.DecisionCacheSize
	}
	if redisClient != nil {
		return matching.NewRedisDecisionCache(redisClient, ttl)
	}
	return matching.NewLRUDecisionCache(size, ttl)
}

// BuildReminderDeduper returns the Redis claim store, or an in-memory one
// that only de-duplicates within this process.
func BuildReminderDeduper(redisClient *redis.Client) reminders.Deduper {
	if redisClient != nil {
		return reminders.NewRedisDeduper(redisClient)
	}
	return reminders.NewMemoryDeduper()
}

// BuildSessionVerifier returns nil when no identity provider is configured.
// A JWKS URL takes precedence over the shared secret.
func BuildSessionVerifier(cfg *appconfig.Config) (httpmiddleware.TokenVerifier, error) {
	if cfg == nil {
		return nil, nil
	}
	if url := strings.TrimSpace(cfg.SessionJWKSURL); url != "" {
		v, err := httpmiddleware.NewJWKSVerifier(httpmiddleware.JWKSConfig{
			JWKSURL:  url,
			Issuer:   cfg.SessionIssuer,
			Audience: cfg.SessionAudience,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: session verifier: %w", err)
		}
		return v, nil
	}
	if secret := strings.TrimSpace(cfg.SessionJWTSecret); secret != "" {
		return httpmiddleware.NewHMACVerifier(secret), nil
	}
	return nil, nil
}

// BuildRateLimiter returns nil when rate limiting is disabled with a
// non-positive RATE_LIMIT_RPS.
func BuildRateLimiter(cfg *appconfig.Config) *httpmiddleware.RateLimiter {
	if cfg == nil || cfg.RateLimitRPS <= 0 {
		return nil
	}
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// LoadReminderLocation resolves REMINDER_TIMEZONE, defaulting to UTC.
func LoadReminderLocation(cfg *appconfig.Config, logger *logging.Logger) *time.Location {
	if cfg == nil || strings.TrimSpace(cfg.ReminderTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(strings.TrimSpace(cfg.ReminderTimezone))
	if err != nil {
		if logger != nil {
			logger.Warn("unknown reminder timezone; using UTC", "timezone", cfg.ReminderTimezone, "error", err)
		}
		return time.UTC
	}
	return loc
}
