package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the notification engine.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Email        EmailConfig        `yaml:"email"`
	SMS          SMSConfig          `yaml:"sms"`
	Chat         ChatConfig         `yaml:"chat"`
	Business     BusinessConfig     `yaml:"business"`
	Advisor      AdvisorConfig      `yaml:"advisor"`
	Fallback     FallbackConfig     `yaml:"fallback"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings for the contact
// and message-history stores.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds the Redis settings for the per-contact delivery lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// EmailConfig holds AWS SES credentials for the email channel adapter.
type EmailConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
	Enabled   bool   `yaml:"enabled"`
}

// SMSConfig holds the SMS gateway settings.
type SMSConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	BaseURL        string `yaml:"base_url"`
	FromNumber     string `yaml:"from_number"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration.
func (c SMSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChatConfig holds the chat-app push API settings.
type ChatConfig struct {
	AccessToken    string `yaml:"access_token"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration.
func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BusinessConfig holds the business-messaging API settings. The gateway is
// Twilio-compatible: the sender address is a messaging-service number.
type BusinessConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	BaseURL        string `yaml:"base_url"`
	FromNumber     string `yaml:"from_number"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration.
func (c BusinessConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AdvisorConfig holds the optional Bedrock-backed decision advisor
// settings. The engine is fully functional with the advisor disabled.
type AdvisorConfig struct {
	Enabled bool   `yaml:"enabled"`
	ModelID string `yaml:"model_id"`
	Region  string `yaml:"region"`
}

// FallbackConfig holds the delivery retry/backoff policy defaults.
type FallbackConfig struct {
	MaxRetries         int      `yaml:"max_retries"`
	RetryDelayMs       int      `yaml:"retry_delay_ms"`
	BatchPauseMs       int      `yaml:"batch_pause_ms"`
	SendTimeoutSeconds int      `yaml:"send_timeout_seconds"`
	Order              []string `yaml:"order"`
	UseOptimization    *bool    `yaml:"use_optimization"`
	LogAllAttempts     *bool    `yaml:"log_all_attempts"`
}

// Optimize reports whether the recommendation order feeds candidate
// ordering. Defaults to true.
func (c FallbackConfig) Optimize() bool {
	return c.UseOptimization == nil || *c.UseOptimization
}

// LogAll reports whether ineligible-candidate skips are recorded as
// attempts. Defaults to true.
func (c FallbackConfig) LogAll() bool {
	return c.LogAllAttempts == nil || *c.LogAllAttempts
}

// RetryDelay returns the base retry delay as a duration.
func (c FallbackConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// BatchPause returns the inter-request courtesy delay for batch delivery.
func (c FallbackConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

// SendTimeout returns the per-attempt adapter deadline.
func (c FallbackConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// OptimizationConfig holds the history window sizes for scoring and
// send-time prediction.
type OptimizationConfig struct {
	HistoryWindow int `yaml:"history_window"`
	EngagedSample int `yaml:"engaged_sample"`
}

// LoggingConfig holds log level and PII redaction settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "us-east-1"
	}
	if cfg.SMS.TimeoutSeconds == 0 {
		cfg.SMS.TimeoutSeconds = 30
	}
	if cfg.Chat.TimeoutSeconds == 0 {
		cfg.Chat.TimeoutSeconds = 30
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.line.me/v2/bot"
	}
	if cfg.Business.TimeoutSeconds == 0 {
		cfg.Business.TimeoutSeconds = 30
	}
	if cfg.Advisor.ModelID == "" {
		cfg.Advisor.ModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Advisor.Region == "" {
		cfg.Advisor.Region = cfg.Email.Region
	}
	if cfg.Fallback.MaxRetries == 0 {
		cfg.Fallback.MaxRetries = 2
	}
	if cfg.Fallback.RetryDelayMs == 0 {
		cfg.Fallback.RetryDelayMs = 1000
	}
	if cfg.Fallback.BatchPauseMs == 0 {
		cfg.Fallback.BatchPauseMs = 100
	}
	if cfg.Fallback.SendTimeoutSeconds == 0 {
		cfg.Fallback.SendTimeoutSeconds = 30
	}
	if len(cfg.Fallback.Order) == 0 {
		cfg.Fallback.Order = []string{"chat", "business", "sms", "email"}
	}
	if cfg.Optimization.HistoryWindow == 0 {
		cfg.Optimization.HistoryWindow = 100
	}
	if cfg.Optimization.EngagedSample == 0 {
		cfg.Optimization.EngagedSample = 50
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if v := os.Getenv("SMS_ACCOUNT_SID"); v != "" {
		cfg.SMS.AccountSID = v
	}
	if v := os.Getenv("SMS_AUTH_TOKEN"); v != "" {
		cfg.SMS.AuthToken = v
	}
	if v := os.Getenv("CHAT_ACCESS_TOKEN"); v != "" {
		cfg.Chat.AccessToken = v
	}
	if v := os.Getenv("BUSINESS_ACCOUNT_SID"); v != "" {
		cfg.Business.AccountSID = v
	}
	if v := os.Getenv("BUSINESS_AUTH_TOKEN"); v != "" {
		cfg.Business.AuthToken = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Advisor.ModelID = v
	}

	return cfg, nil
}
