package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token       string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminChatID int64  `yaml:"admin_chat_id" envconfig:"TELEGRAM_ADMIN_CHAT_ID"`
	RunMode     string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RedisConfig holds connection settings for the session store.
type RedisConfig struct {
	Addr      string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password  string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" envconfig:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`
}

// GatewayConfig describes the backend commerce API endpoints and client limits.
type GatewayConfig struct {
	AuthToken      string `yaml:"auth_token" envconfig:"GATEWAY_AUTH_TOKEN"`
	IdentityURL    string `yaml:"identity_url" envconfig:"GATEWAY_IDENTITY_URL"`
	OrderNumberURL string `yaml:"order_number_url" envconfig:"GATEWAY_ORDER_NUMBER_URL"`
	OrderSerialURL string `yaml:"order_serial_url" envconfig:"GATEWAY_ORDER_SERIAL_URL"`
	OrdersURL      string `yaml:"orders_url" envconfig:"GATEWAY_ORDERS_URL"`
	ComplaintURL   string `yaml:"complaint_url" envconfig:"GATEWAY_COMPLAINT_URL"`
	RepairURL      string `yaml:"repair_url" envconfig:"GATEWAY_REPAIR_URL"`
	RatingURL      string `yaml:"rating_url" envconfig:"GATEWAY_RATING_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"GATEWAY_TIMEOUT_SECONDS"`
	Retries        int    `yaml:"retries" envconfig:"GATEWAY_RETRIES"`
}

// DialogConfig carries the externally supplied dialogue policy parameters.
// None of these are hardcoded in the engine; defaults match the production
// deployment and can be overridden per environment.
type DialogConfig struct {
	// AuthFailureThreshold is the number of consecutive failed identity
	// attempts after which the session is blocked.
	AuthFailureThreshold int `yaml:"auth_failure_threshold" envconfig:"DIALOG_AUTH_FAILURE_THRESHOLD"`
	// LookupRetryCap bounds "not found" retries while awaiting an order query.
	LookupRetryCap int `yaml:"lookup_retry_cap" envconfig:"DIALOG_LOOKUP_RETRY_CAP"`
	// WriteAttempts bounds the optimistic-concurrency retry loop of the engine.
	WriteAttempts int `yaml:"write_attempts" envconfig:"DIALOG_WRITE_ATTEMPTS"`
	// SessionTTLMinutes expires anonymous sessions after inactivity.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" envconfig:"DIALOG_SESSION_TTL_MINUTES"`
	// AuthSessionTTLMinutes expires authenticated sessions after inactivity.
	AuthSessionTTLMinutes int `yaml:"auth_session_ttl_minutes" envconfig:"DIALOG_AUTH_SESSION_TTL_MINUTES"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds settings for transport-level rate limiting.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

// JournalConfig holds Postgres connection settings for the submission journal.
type JournalConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram    TelegramConfig  `yaml:"telegram"`
	Webhook     WebhookConfig   `yaml:"webhook"`
	Logging     LoggingConfig   `yaml:"logging"`
	Redis       RedisConfig     `yaml:"redis"`
	Gateway     GatewayConfig   `yaml:"gateway"`
	Dialog      DialogConfig    `yaml:"dialog"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Journal     JournalConfig   `yaml:"journal"`
	Maintenance bool            `yaml:"maintenance" envconfig:"MAINTENANCE_MODE"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if strings.TrimSpace(cfg.Redis.KeyPrefix) == "" {
		cfg.Redis.KeyPrefix = "bot:session:"
	}

	if cfg.Gateway.TimeoutSeconds <= 0 {
		cfg.Gateway.TimeoutSeconds = 30
	}
	if cfg.Gateway.Retries <= 0 {
		cfg.Gateway.Retries = 3
	}

	if cfg.Dialog.AuthFailureThreshold <= 0 {
		cfg.Dialog.AuthFailureThreshold = 3
	}
	if cfg.Dialog.LookupRetryCap <= 0 {
		cfg.Dialog.LookupRetryCap = 3
	}
	if cfg.Dialog.WriteAttempts <= 0 {
		cfg.Dialog.WriteAttempts = 3
	}
	if cfg.Dialog.SessionTTLMinutes <= 0 {
		cfg.Dialog.SessionTTLMinutes = 30
	}
	if cfg.Dialog.AuthSessionTTLMinutes <= 0 {
		cfg.Dialog.AuthSessionTTLMinutes = 60
	}

	return nil
}
