package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/hrflow",
		JWTSecret:          "secret",
		TokenTTL:           time.Hour,
		RunSeed:            true,
		SeedAdminPassword:  "Admin123!",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
		EmailProvider:      EmailProviderNone,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresSMTPHost(t *testing.T) {
	cfg := validConfig()
	cfg.EmailProvider = EmailProviderSMTP
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when smtp host missing")
	}
	cfg.SMTPHost = "smtp.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsShortSecretInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected short secret to be rejected in production")
	}
}

func TestValidateRejectsUnknownEmailProvider(t *testing.T) {
	cfg := validConfig()
	cfg.EmailProvider = "pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown provider to be rejected")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("DIRECTORY_REFRESH_INTERVAL", "90s")
	t.Setenv("EMAIL_PROVIDER", " SES ")

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %q", cfg.Addr)
	}
	if cfg.DirectoryRefreshInterval != 90*time.Second {
		t.Fatalf("expected 90s refresh interval, got %v", cfg.DirectoryRefreshInterval)
	}
	if cfg.EmailProvider != EmailProviderSES {
		t.Fatalf("expected ses provider, got %q", cfg.EmailProvider)
	}
}
