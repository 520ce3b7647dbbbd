package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "github.com/mangadesu/premiumbot/core/database"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
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
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// AdminConfig declares who may confirm or reject orders.
//
// TelegramIDs is the chat-channel allow-list checked against the sender of
// inline decision buttons. APIKeys is the out-of-band credential allow-list
// for the external admin application.
type AdminConfig struct {
	TelegramIDs []int64  `yaml:"telegram_ids" envconfig:"ADMIN_TELEGRAM_IDS"`
	APIKeys     []string `yaml:"api_keys" envconfig:"ADMIN_API_KEYS"`
}

// OrdersConfig carries the purchase-flow policy knobs.
//
// AmountTolerance is the allowed shortfall (minor currency units) between the
// claimed and required payment amount; it trades revenue against fraud and is
// therefore an explicit setting, never an inline constant.
type OrdersConfig struct {
	MinSubscriberIDLen    int   `yaml:"min_subscriber_id_len" envconfig:"ORDERS_MIN_SUBSCRIBER_ID_LEN"`
	AmountTolerance       int64 `yaml:"amount_tolerance" envconfig:"ORDERS_AMOUNT_TOLERANCE"`
	SessionTimeoutMinutes int   `yaml:"session_timeout_minutes" envconfig:"ORDERS_SESSION_TIMEOUT_MINUTES"`
}

// PackageConfig describes one purchasable plan.
type PackageConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	PriceLabel   string `yaml:"price_label"`
	PriceAmount  int64  `yaml:"price_amount"`
	ValidityDays int    `yaml:"validity_days"`
}

// PaymentConfig points at the QRIS payment instructions sent to buyers.
// FileID is the Telegram-cached photo; URL is the fallback.
type PaymentConfig struct {
	QRISFileID string `yaml:"qris_file_id" envconfig:"PAYMENT_QRIS_FILE_ID"`
	QRISURL    string `yaml:"qris_url" envconfig:"PAYMENT_QRIS_URL"`
}

// AdminAPIConfig configures the external admin-application HTTP listener.
type AdminAPIConfig struct {
	Listen string `yaml:"listen" envconfig:"ADMIN_API_LISTEN"`
	Port   int    `yaml:"port" envconfig:"ADMIN_API_PORT"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the application configuration.
type Config struct {
	Telegram  TelegramConfig      `yaml:"telegram"`
	Webhook   WebhookConfig       `yaml:"webhook"`
	Logging   LoggingConfig       `yaml:"logging"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Database  coredatabase.Config `yaml:"database"`
	Admin     AdminConfig         `yaml:"admin"`
	AdminAPI  AdminAPIConfig      `yaml:"admin_api"`
	Orders    OrdersConfig        `yaml:"orders"`
	Payment   PaymentConfig       `yaml:"payment"`
	Packages  []PackageConfig     `yaml:"packages"`
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

// DefaultPackages mirrors the plans sold since launch; used when the config
// file declares none.
func DefaultPackages() []PackageConfig {
	return []PackageConfig{
		{ID: "1", Name: "Paket 7 Hari", PriceLabel: "Rp 5.000", PriceAmount: 5000, ValidityDays: 7},
		{ID: "2", Name: "Paket 30 Hari", PriceLabel: "Rp 15.000", PriceAmount: 15000, ValidityDays: 30},
	}
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

	if len(cfg.Admin.TelegramIDs) == 0 && len(cfg.Admin.APIKeys) == 0 {
		return fmt.Errorf("at least one admin identity is required (admin.telegram_ids or admin.api_keys)")
	}

	if cfg.Orders.MinSubscriberIDLen <= 0 {
		cfg.Orders.MinSubscriberIDLen = 10
	}
	if cfg.Orders.AmountTolerance < 0 {
		return fmt.Errorf("orders.amount_tolerance must be >= 0")
	}
	if cfg.Orders.SessionTimeoutMinutes <= 0 {
		cfg.Orders.SessionTimeoutMinutes = 30
	}

	if len(cfg.Packages) == 0 {
		cfg.Packages = DefaultPackages()
	}
	seen := make(map[string]struct{}, len(cfg.Packages))
	for _, p := range cfg.Packages {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("package id must not be empty")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate package id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.PriceAmount <= 0 {
			return fmt.Errorf("package %q: price_amount must be > 0", p.ID)
		}
		if p.ValidityDays <= 0 {
			return fmt.Errorf("package %q: validity_days must be > 0", p.ID)
		}
	}

	if cfg.AdminAPI.Listen == "" {
		cfg.AdminAPI.Listen = "0.0.0.0"
	}
	if cfg.AdminAPI.Port == 0 {
		cfg.AdminAPI.Port = 8090
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
