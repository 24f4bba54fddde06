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
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetTriggerRatePerMinute() int
}

// SchedulerConfig provides settings for the asynq worker and client.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// DispatcherConfig provides settings for the lead dispatch tick.
type DispatcherConfig interface {
	GetDispatchInterval() time.Duration
	GetDispatchWorkers() int
	GetLeadClaimLease() time.Duration
	GetStaleSweepInterval() time.Duration
	GetPhoneDefaultRegion() string
}

// EnrichmentConfig provides settings for the generative enrichment service.
type EnrichmentConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotBaseURL() string
	GetEnrichmentModel() string
	GetEnrichmentTimeout() time.Duration
	IsEnrichmentEnabled() bool
}

// VerificationConfig provides settings for the email deliverability service.
type VerificationConfig interface {
	GetEmailVerifyAPIURL() string
	GetEmailVerifyAPIKey() string
	GetEmailVerifyTimeout() time.Duration
	IsEmailVerifyEnabled() bool
}

// ProxyHealthConfig provides proxy pool classification and probing settings.
type ProxyHealthConfig interface {
	GetProxyHealthyThreshold() float64
	GetProxyDegradedThreshold() float64
	GetProxyTopPerformers() int
	GetProxyPoolFile() string
	GetProxyHealCheckInterval() time.Duration
	GetProxyHealCheckTimeout() time.Duration
	GetProxyHealCheckURL() string
	GetProxyHealCheckWorkers() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	TriggerRatePerMinute   int
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	DispatchInterval       time.Duration
	DispatchWorkers        int
	LeadClaimLease         time.Duration
	StaleSweepInterval     time.Duration
	PhoneDefaultRegion     string
	MoonshotAPIKey         string
	MoonshotBaseURL        string
	EnrichmentModel        string
	EnrichmentTimeout      time.Duration
	EmailVerifyAPIURL      string
	EmailVerifyAPIKey      string
	EmailVerifyTimeout     time.Duration
	ProxyHealthyThreshold  float64
	ProxyDegradedThreshold float64
	ProxyTopPerformers     int
	ProxyPoolFile          string
	ProxyHealCheckInterval time.Duration
	ProxyHealCheckTimeout  time.Duration
	ProxyHealCheckURL      string
	ProxyHealCheckWorkers  int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string           { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool         { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string      { return c.CORSOrigins }
func (c *Config) GetTriggerRatePerMinute() int { return c.TriggerRatePerMinute }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// DispatcherConfig implementation
func (c *Config) GetDispatchInterval() time.Duration   { return c.DispatchInterval }
func (c *Config) GetDispatchWorkers() int              { return c.DispatchWorkers }
func (c *Config) GetLeadClaimLease() time.Duration     { return c.LeadClaimLease }
func (c *Config) GetStaleSweepInterval() time.Duration { return c.StaleSweepInterval }
func (c *Config) GetPhoneDefaultRegion() string        { return c.PhoneDefaultRegion }

// EnrichmentConfig implementation
func (c *Config) GetMoonshotAPIKey() string           { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotBaseURL() string          { return c.MoonshotBaseURL }
func (c *Config) GetEnrichmentModel() string          { return c.EnrichmentModel }
func (c *Config) GetEnrichmentTimeout() time.Duration { return c.EnrichmentTimeout }
func (c *Config) IsEnrichmentEnabled() bool           { return c.MoonshotAPIKey != "" }

// VerificationConfig implementation
func (c *Config) GetEmailVerifyAPIURL() string          { return c.EmailVerifyAPIURL }
func (c *Config) GetEmailVerifyAPIKey() string          { return c.EmailVerifyAPIKey }
func (c *Config) GetEmailVerifyTimeout() time.Duration { return c.EmailVerifyTimeout }
func (c *Config) IsEmailVerifyEnabled() bool           { return c.EmailVerifyAPIURL != "" }

// ProxyHealthConfig implementation
func (c *Config) GetProxyHealthyThreshold() float64        { return c.ProxyHealthyThreshold }
func (c *Config) GetProxyDegradedThreshold() float64       { return c.ProxyDegradedThreshold }
func (c *Config) GetProxyTopPerformers() int               { return c.ProxyTopPerformers }
func (c *Config) GetProxyPoolFile() string                 { return c.ProxyPoolFile }
func (c *Config) GetProxyHealCheckInterval() time.Duration { return c.ProxyHealCheckInterval }
func (c *Config) GetProxyHealCheckTimeout() time.Duration  { return c.ProxyHealCheckTimeout }
func (c *Config) GetProxyHealCheckURL() string             { return c.ProxyHealCheckURL }
func (c *Config) GetProxyHealCheckWorkers() int            { return c.ProxyHealCheckWorkers }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		TriggerRatePerMinute:   mustInt(getEnv("TRIGGER_RATE_PER_MINUTE", "30")),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DispatchInterval:       mustDuration(getEnv("DISPATCH_INTERVAL", "1m")),
		DispatchWorkers:        mustInt(getEnv("DISPATCH_WORKERS", "8")),
		LeadClaimLease:         mustDuration(getEnv("LEAD_CLAIM_LEASE", "15m")),
		StaleSweepInterval:     mustDuration(getEnv("STALE_SWEEP_INTERVAL", "5m")),
		PhoneDefaultRegion:     strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "US")),
		MoonshotAPIKey:         getEnv("MOONSHOT_API_KEY", ""),
		MoonshotBaseURL:        getEnv("MOONSHOT_BASE_URL", "https://api.moonshot.ai/v1"),
		EnrichmentModel:        getEnv("ENRICHMENT_MODEL", "kimi-k2-turbo-preview"),
		EnrichmentTimeout:      mustDuration(getEnv("ENRICHMENT_TIMEOUT", "30s")),
		EmailVerifyAPIURL:      getEnv("EMAIL_VERIFY_API_URL", ""),
		EmailVerifyAPIKey:      getEnv("EMAIL_VERIFY_API_KEY", ""),
		EmailVerifyTimeout:     mustDuration(getEnv("EMAIL_VERIFY_TIMEOUT", "300s")),
		ProxyHealthyThreshold:  mustFloat(getEnv("PROXY_HEALTHY_THRESHOLD", "0.80")),
		ProxyDegradedThreshold: mustFloat(getEnv("PROXY_DEGRADED_THRESHOLD", "0.60")),
		ProxyTopPerformers:     mustInt(getEnv("PROXY_TOP_PERFORMERS", "3")),
		ProxyPoolFile:          getEnv("PROXY_POOL_FILE", ""),
		ProxyHealCheckInterval: mustDuration(getEnv("PROXY_HEAL_CHECK_INTERVAL", "10m")),
		ProxyHealCheckTimeout:  mustDuration(getEnv("PROXY_HEAL_CHECK_TIMEOUT", "15s")),
		ProxyHealCheckURL:      getEnv("PROXY_HEAL_CHECK_URL", "https://www.gstatic.com/generate_204"),
		ProxyHealCheckWorkers:  mustInt(getEnv("PROXY_HEAL_CHECK_WORKERS", "10")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ProxyDegradedThreshold < 0 || c.ProxyHealthyThreshold > 1 {
		return fmt.Errorf("proxy thresholds must be within [0, 1]")
	}
	if c.ProxyDegradedThreshold > c.ProxyHealthyThreshold {
		return fmt.Errorf("PROXY_DEGRADED_THRESHOLD cannot exceed PROXY_HEALTHY_THRESHOLD")
	}
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL must be a positive duration")
	}
	if c.LeadClaimLease > 0 && c.LeadClaimLease <= c.EnrichmentTimeout+c.EmailVerifyTimeout {
		return fmt.Errorf("LEAD_CLAIM_LEASE must exceed ENRICHMENT_TIMEOUT + EMAIL_VERIFY_TIMEOUT")
	}
	return nil
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
