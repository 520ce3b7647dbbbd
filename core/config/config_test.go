package config

import (
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc", RunMode: "longpoll"},
		Admin:    AdminConfig{TelegramIDs: []int64{111}},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := baseConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Orders.MinSubscriberIDLen != 10 {
		t.Fatalf("MinSubscriberIDLen = %d", cfg.Orders.MinSubscriberIDLen)
	}
	if cfg.Orders.SessionTimeoutMinutes != 30 {
		t.Fatalf("SessionTimeoutMinutes = %d", cfg.Orders.SessionTimeoutMinutes)
	}
	if len(cfg.Packages) != 2 {
		t.Fatalf("expected default packages, got %d", len(cfg.Packages))
	}
	if cfg.AdminAPI.Port != 8090 {
		t.Fatalf("AdminAPI.Port = %d", cfg.AdminAPI.Port)
	}
}

func TestNormalizeRunModeAlias(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("RunMode = %q", cfg.Telegram.RunMode)
	}
}

func TestNormalizeRequiresAdminIdentity(t *testing.T) {
	cfg := baseConfig()
	cfg.Admin = AdminConfig{}
	err := Normalize(cfg)
	if err == nil || !strings.Contains(err.Error(), "admin") {
		t.Fatalf("expected admin identity error, got %v", err)
	}
}

func TestNormalizeRejectsBadPackage(t *testing.T) {
	cfg := baseConfig()
	cfg.Packages = []PackageConfig{
		{ID: "1", Name: "A", PriceAmount: 5000, ValidityDays: 7},
		{ID: "1", Name: "B", PriceAmount: 9000, ValidityDays: 30},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected duplicate package id error")
	}

	cfg = baseConfig()
	cfg.Packages = []PackageConfig{{ID: "1", Name: "A", PriceAmount: 0, ValidityDays: 7}}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected price_amount error")
	}
}

func TestNormalizeWebhookRequiresURL(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected webhook.url error")
	}
}
