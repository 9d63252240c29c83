// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDBMaxConns() int
	GetDBMinConns() int
	GetDBConnectTimeout() time.Duration
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RateLimitConfig provides per-IP rate limit settings.
type RateLimitConfig interface {
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// WebhookConfig provides endpoints and credentials for the automation service.
type WebhookConfig interface {
	GetWebhookEditURL(category string) string
	GetWebhookStageURL(event string) string
	GetWebhookAuthToken() string
	GetWebhookSigningSecret() string
	GetWebhookTimeout() time.Duration
}

// CalendarConfig provides settings for the calendar-sync service.
type CalendarConfig interface {
	GetCalendarSyncURL() string
	GetCalendarSyncTimeout() time.Duration
	IsCalendarSyncEnabled() bool
}

// SchedulerConfig provides settings for the queued delivery worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	IsQueueEnabled() bool
}

// CacheConfig provides settings for the doctor-id cache.
type CacheConfig interface {
	GetRedisURL() string
	GetDoctorCacheTTL() time.Duration
}

// LookupRetryConfig provides the bounded retry policy for upstream lookups.
type LookupRetryConfig interface {
	GetLookupMaxAttempts() int
	GetLookupBackoffUnit() time.Duration
}

// AutomationConfig provides the shared secret for automation callbacks.
type AutomationConfig interface {
	GetAutomationSecret() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	DBMaxConns           int
	DBMinConns           int
	DBConnectTimeout     time.Duration
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	RateLimitRPS         float64
	RateLimitBurst       int
	WebhookEditURLs      map[string]string
	WebhookStageURLs     map[string]string
	WebhookAuthToken     string
	WebhookSigningSecret string
	WebhookTimeout       time.Duration
	CalendarSyncURL      string
	CalendarSyncTimeout  time.Duration
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	DoctorCacheTTL       time.Duration
	LookupMaxAttempts    int
	LookupBackoffUnit    time.Duration
	AutomationSecret     string
}

// stage-entry events with a dedicated endpoint
var stageEvents = []string{"diagnostico", "solucao", "solucao_etapa", "entregaveis"}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig
func (c *Config) GetDatabaseURL() string             { return c.DatabaseURL }
func (c *Config) GetDBMaxConns() int                 { return c.DBMaxConns }
func (c *Config) GetDBMinConns() int                 { return c.DBMinConns }
func (c *Config) GetDBConnectTimeout() time.Duration { return c.DBConnectTimeout }

// JWTConfig
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RateLimitConfig
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// WebhookConfig
func (c *Config) GetWebhookEditURL(category string) string {
	return c.WebhookEditURLs[strings.ToLower(category)]
}
func (c *Config) GetWebhookStageURL(event string) string {
	return c.WebhookStageURLs[strings.ToLower(event)]
}
func (c *Config) GetWebhookAuthToken() string      { return c.WebhookAuthToken }
func (c *Config) GetWebhookSigningSecret() string  { return c.WebhookSigningSecret }
func (c *Config) GetWebhookTimeout() time.Duration { return c.WebhookTimeout }

// CalendarConfig
func (c *Config) GetCalendarSyncURL() string            { return c.CalendarSyncURL }
func (c *Config) GetCalendarSyncTimeout() time.Duration { return c.CalendarSyncTimeout }
func (c *Config) IsCalendarSyncEnabled() bool           { return c.CalendarSyncURL != "" }

// SchedulerConfig / CacheConfig
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool        { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string        { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int         { return c.AsynqConcurrency }
func (c *Config) IsQueueEnabled() bool             { return c.RedisURL != "" }
func (c *Config) GetDoctorCacheTTL() time.Duration { return c.DoctorCacheTTL }

// LookupRetryConfig
func (c *Config) GetLookupMaxAttempts() int           { return c.LookupMaxAttempts }
func (c *Config) GetLookupBackoffUnit() time.Duration { return c.LookupBackoffUnit }

// AutomationConfig
func (c *Config) GetAutomationSecret() string { return c.AutomationSecret }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	editURLs := map[string]string{
		"anamnese":    getEnv("WEBHOOK_ANAMNESE_EDIT_URL", ""),
		"diagnostico": getEnv("WEBHOOK_DIAGNOSTICO_EDIT_URL", ""),
		"solucao":     getEnv("WEBHOOK_SOLUCAO_EDIT_URL", ""),
	}
	stageURLs := make(map[string]string, len(stageEvents))
	for _, event := range stageEvents {
		stageURLs[event] = getEnv("WEBHOOK_STAGE_"+strings.ToUpper(event)+"_URL", "")
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBMaxConns:           mustInt(getEnv("DB_MAX_CONNS", "10")),
		DBMinConns:           mustInt(getEnv("DB_MIN_CONNS", "2")),
		DBConnectTimeout:     mustDuration(getEnv("DB_CONNECT_TIMEOUT", "5s")),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:         mustFloat(getEnv("RATE_LIMIT_RPS", "10")),
		RateLimitBurst:       mustInt(getEnv("RATE_LIMIT_BURST", "20")),
		WebhookEditURLs:      editURLs,
		WebhookStageURLs:     stageURLs,
		WebhookAuthToken:     getEnv("WEBHOOK_AUTH_TOKEN", ""),
		WebhookSigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", ""),
		WebhookTimeout:       mustDuration(getEnv("WEBHOOK_TIMEOUT", "10s")),
		CalendarSyncURL:      getEnv("CALENDAR_SYNC_URL", ""),
		CalendarSyncTimeout:  mustDuration(getEnv("CALENDAR_SYNC_TIMEOUT", "8s")),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DoctorCacheTTL:       mustDuration(getEnv("DOCTOR_CACHE_TTL", "10m")),
		LookupMaxAttempts:    mustInt(getEnv("LOOKUP_MAX_ATTEMPTS", "3")),
		LookupBackoffUnit:    mustDuration(getEnv("LOOKUP_BACKOFF_UNIT", "1s")),
		AutomationSecret:     getEnv("AUTOMATION_SECRET", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.LookupMaxAttempts < 1 {
		return nil, fmt.Errorf("LOOKUP_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
