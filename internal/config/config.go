// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BotToken            string `mapstructure:"bot_token"`
	AdminChatID         int64  `mapstructure:"admin_chat_id"`
	RPCURL              string `mapstructure:"rpc_url"`
	DatabaseURL         string `mapstructure:"database_url"`
	HeliusAPIKey        string `mapstructure:"helius_api_key"`
	HeliusBaseURL       string `mapstructure:"helius_base_url"`
	WebhookID           string `mapstructure:"webhook_id"`
	WebhookCallbackURL  string `mapstructure:"webhook_callback_url"`
	RedisURL            string `mapstructure:"redis_url"`
	MetricsAddr         string `mapstructure:"metrics_addr"`
	TxLimit             int    `mapstructure:"tx_limit"`
	AnalyzerConcurrency int    `mapstructure:"analyzer_concurrency"`
	LockTTLMs           int    `mapstructure:"lock_ttl_ms"`
	AuditLogPath        string `mapstructure:"audit_log_path"`
	DebugLogging        bool   `mapstructure:"debug_logging"`
}

const (
	DefaultRPCURL              = "https://api.mainnet-beta.solana.com"
	DefaultHeliusBaseURL       = "https://api.helius.xyz/v0"
	DefaultWebhookCallbackURL  = "https://web-production-79a3.up.railway.app/"
	DefaultMetricsAddr         = ":9090"
	DefaultTxLimit             = 75
	DefaultAnalyzerConcurrency = 1
	DefaultLockTTLMs           = 30000
	DefaultAuditLogPath        = "logs/registrations.csv"

	maxTxLimit = 1000
)

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"bot_token":            "BOT_TOKEN",
	"admin_chat_id":        "ADMIN_CHAT_ID",
	"rpc_url":              "QUICKNODEURL",
	"database_url":         "DATABASE_URL",
	"helius_api_key":       "HELIUS_API_KEY",
	"helius_base_url":      "HELIUS_BASE_URL",
	"webhook_id":           "WEBHOOK_ID",
	"webhook_callback_url": "WEBHOOK_CALLBACK_URL",
	"redis_url":            "REDIS_URL",
	"metrics_addr":         "METRICS_ADDR",
	"tx_limit":             "TX_LIMIT",
	"analyzer_concurrency": "ANALYZER_CONCURRENCY",
	"lock_ttl_ms":          "LOCK_TTL_MS",
	"audit_log_path":       "AUDIT_LOG_PATH",
	"debug_logging":        "DEBUG_LOGGING",
}

// LoadConfig reads the optional config file at path, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_url":              DefaultRPCURL,
		"helius_base_url":      DefaultHeliusBaseURL,
		"webhook_callback_url": DefaultWebhookCallbackURL,
		"metrics_addr":         DefaultMetricsAddr,
		"tx_limit":             DefaultTxLimit,
		"analyzer_concurrency": DefaultAnalyzerConcurrency,
		"lock_ttl_ms":          DefaultLockTTLMs,
		"audit_log_path":       DefaultAuditLogPath,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := loadEnvironmentVariables(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

// LockTTL returns the webhook lock TTL.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMs) * time.Millisecond
}

// ValidateBot checks the settings only the chat front end needs.
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return errors.New("missing bot_token (BOT_TOKEN)")
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("missing database_url (DATABASE_URL)")
	}
	if cfg.HeliusAPIKey == "" {
		return errors.New("missing helius_api_key (HELIUS_API_KEY)")
	}
	if cfg.WebhookID == "" {
		return errors.New("missing webhook_id (WEBHOOK_ID)")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid RPC URL: %w", err)
	}
	if err := validateURLWithCache(cfg.HeliusBaseURL, "http"); err != nil {
		return fmt.Errorf("invalid Helius base URL: %w", err)
	}
	if err := validateURLWithCache(cfg.WebhookCallbackURL, "https"); err != nil {
		return errors.New("webhook callback URL must use HTTPS")
	}
	if cfg.RedisURL != "" {
		if err := validateURLWithCache(cfg.RedisURL, "redis"); err != nil {
			return fmt.Errorf("invalid Redis URL: %w", err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TxLimit < 1 || cfg.TxLimit > maxTxLimit {
		return fmt.Errorf("invalid tx_limit: must be between 1 and %d", maxTxLimit)
	}
	if cfg.AnalyzerConcurrency < 1 {
		return errors.New("invalid analyzer_concurrency")
	}
	if cfg.LockTTLMs <= 0 {
		return errors.New("invalid lock_ttl_ms")
	}
	return nil
}

var urlCache sync.Map

// validateURLWithCache checks scheme prefix and host. "http" accepts https,
// "redis" accepts rediss.
func validateURLWithCache(rawURL string, protocol string) error {
	cacheKey := protocol + "|" + rawURL
	if _, ok := urlCache.Load(cacheKey); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	if parsed.Host == "" {
		return errors.New("URL has no host")
	}
	urlCache.Store(cacheKey, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}
