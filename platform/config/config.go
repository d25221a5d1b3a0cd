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
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// LockConfig provides settings for the conversation advisory lock.
type LockConfig interface {
	GetRedisURL() string
	GetConversationLockTTL() time.Duration
}

// AIConfig provides settings for the AI completion provider.
type AIConfig interface {
	GetAIBaseURL() string
	GetAIAPIKey() string
	GetAIModel() string
	GetAITimeout() time.Duration
	IsAIEnabled() bool
}

// TranscriptionConfig provides settings for the speech-to-text provider.
type TranscriptionConfig interface {
	GetSTTBaseURL() string
	GetSTTAPIKey() string
	GetSTTModel() string
	GetSTTTimeout() time.Duration
	IsTranscriptionEnabled() bool
}

// MediaArchiveConfig provides settings for MinIO media archival.
type MediaArchiveConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMediaArchiveBucket() string
	IsMediaArchiveEnabled() bool
}

// SMTPConfig provides settings for handoff alert email.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromName() string
	GetSMTPFromAddress() string
	IsSMTPEnabled() bool
}

// FunnelConfig provides tunables for the conversation pipeline.
type FunnelConfig interface {
	GetPresentationPause() time.Duration
	GetFollowUpDelay() time.Duration
	GetOutboundRatePerMinute() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Credentials are the default provider credentials applied to tenants that
// have not stored their own. Resolved once at startup and passed by value;
// nothing outside Load reads the environment.
type Credentials struct {
	GatewayAccountSID string
	GatewayAuthToken  string
	GatewayFrom       string
	BridgeURL         string
	BridgeAPIKey      string
	BridgeDeviceID    string
}

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RedisURL              string
	AsynqQueueName        string
	AsynqConcurrency      int
	CORSAllowAll          bool
	CORSOrigins           []string
	ConversationLockTTL   time.Duration
	PresentationPause     time.Duration
	FollowUpDelay         time.Duration
	OutboundRatePerMinute int

	DefaultCredentials Credentials
	GatewayBaseURL     string

	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	STTBaseURL string
	STTAPIKey  string
	STTModel   string
	STTTimeout time.Duration

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MediaArchiveBucket string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromName    string
	SMTPFromAddress string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// LockConfig implementation
func (c *Config) GetConversationLockTTL() time.Duration { return c.ConversationLockTTL }

// AIConfig implementation
func (c *Config) GetAIBaseURL() string        { return c.AIBaseURL }
func (c *Config) GetAIAPIKey() string         { return c.AIAPIKey }
func (c *Config) GetAIModel() string          { return c.AIModel }
func (c *Config) GetAITimeout() time.Duration { return c.AITimeout }
func (c *Config) IsAIEnabled() bool           { return c.AIAPIKey != "" }

// TranscriptionConfig implementation
func (c *Config) GetSTTBaseURL() string        { return c.STTBaseURL }
func (c *Config) GetSTTAPIKey() string         { return c.STTAPIKey }
func (c *Config) GetSTTModel() string          { return c.STTModel }
func (c *Config) GetSTTTimeout() time.Duration { return c.STTTimeout }
func (c *Config) IsTranscriptionEnabled() bool { return c.STTBaseURL != "" && c.STTAPIKey != "" }

// MediaArchiveConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMediaArchiveBucket() string { return c.MediaArchiveBucket }
func (c *Config) IsMediaArchiveEnabled() bool   { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromName() string    { return c.SMTPFromName }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) IsSMTPEnabled() bool        { return c.SMTPHost != "" && c.SMTPFromAddress != "" }

// FunnelConfig implementation
func (c *Config) GetPresentationPause() time.Duration { return c.PresentationPause }
func (c *Config) GetFollowUpDelay() time.Duration     { return c.FollowUpDelay }
func (c *Config) GetOutboundRatePerMinute() int       { return c.OutboundRatePerMinute }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		ConversationLockTTL:   mustDuration(getEnv("CONVERSATION_LOCK_TTL", "30s")),
		PresentationPause:     mustDuration(getEnv("PRESENTATION_PAUSE", "1s")),
		FollowUpDelay:         mustDuration(getEnv("FOLLOWUP_DELAY", "6h")),
		OutboundRatePerMinute: mustInt(getEnv("OUTBOUND_RATE_PER_MINUTE", "30")),

		DefaultCredentials: Credentials{
			GatewayAccountSID: getEnv("GATEWAY_ACCOUNT_SID", ""),
			GatewayAuthToken:  getEnv("GATEWAY_AUTH_TOKEN", ""),
			GatewayFrom:       getEnv("GATEWAY_FROM", ""),
			BridgeURL:         getEnv("BRIDGE_URL", ""),
			BridgeAPIKey:      getEnv("BRIDGE_API_KEY", ""),
			BridgeDeviceID:    getEnv("BRIDGE_DEVICE_ID", ""),
		},
		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", "https://api.twilio.com/2010-04-01"),

		AIBaseURL: getEnv("AI_BASE_URL", "https://api.moonshot.ai/v1"),
		AIAPIKey:  getEnv("AI_API_KEY", ""),
		AIModel:   getEnv("AI_MODEL", "kimi-k2-turbo-preview"),
		AITimeout: mustDuration(getEnv("AI_TIMEOUT", "20s")),

		STTBaseURL: getEnv("STT_BASE_URL", ""),
		STTAPIKey:  getEnv("STT_API_KEY", ""),
		STTModel:   getEnv("STT_MODEL", "whisper-1"),
		STTTimeout: mustDuration(getEnv("STT_TIMEOUT", "30s")),

		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MediaArchiveBucket: getEnv("MINIO_BUCKET_MEDIA_ARCHIVE", "media-archive"),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFromName:    getEnv("SMTP_FROM_NAME", "ImobZap"),
		SMTPFromAddress: getEnv("SMTP_FROM_ADDRESS", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.ConversationLockTTL < time.Second {
		return nil, fmt.Errorf("CONVERSATION_LOCK_TTL must be at least 1s")
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
	result, err := strconv.Atoi(value)
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
