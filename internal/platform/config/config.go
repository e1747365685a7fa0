package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EmailProviderNone = "none"
	EmailProviderSMTP = "smtp"
	EmailProviderSES  = "ses"
)

type Config struct {
	Addr                     string
	Environment              string
	DatabaseURL              string
	JWTSecret                string
	DataEncryptionKey        string
	MFAIssuer                string
	TokenTTL                 time.Duration
	RunMigrations            bool
	MigrationsDir            string
	RunSeed                  bool
	SeedAdminCode            string
	SeedAdminName            string
	SeedAdminEmail           string
	SeedAdminPassword        string
	MaxBodyBytes             int64
	RateLimitPerMinute       int
	DirectoryRefreshInterval time.Duration
	EmailProvider            string
	EmailFrom                string
	SMTPHost                 string
	SMTPPort                 int
	SMTPUser                 string
	SMTPPassword             string
	AWSRegion                string
	AWSEndpoint              string
	EventsQueueURL           string
	OTELEndpoint             string
	LogPretty                bool
	MetricsEnabled           bool
}

// Load reads configuration from the environment, after merging an optional
// .env file in the working directory.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("DATA_ENCRYPTION_KEY", "")
	v.SetDefault("MFA_ISSUER", "hrflow")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("RUN_SEED", true)
	v.SetDefault("SEED_ADMIN_CODE", "ADMIN")
	v.SetDefault("SEED_ADMIN_NAME", "Super Admin")
	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("DIRECTORY_REFRESH_INTERVAL", "5m")
	v.SetDefault("EMAIL_PROVIDER", EmailProviderNone)
	v.SetDefault("EMAIL_FROM", "no-reply@example.com")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "")
	v.SetDefault("EVENTS_QUEUE_URL", "")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("METRICS_ENABLED", true)
	v.AutomaticEnv()

	return Config{
		Addr:                     v.GetString("APP_ADDR"),
		Environment:              v.GetString("APP_ENV"),
		DatabaseURL:              v.GetString("DATABASE_URL"),
		JWTSecret:                v.GetString("JWT_SECRET"),
		DataEncryptionKey:        v.GetString("DATA_ENCRYPTION_KEY"),
		MFAIssuer:                v.GetString("MFA_ISSUER"),
		TokenTTL:                 v.GetDuration("TOKEN_TTL"),
		RunMigrations:            v.GetBool("RUN_MIGRATIONS"),
		MigrationsDir:            v.GetString("MIGRATIONS_DIR"),
		RunSeed:                  v.GetBool("RUN_SEED"),
		SeedAdminCode:            v.GetString("SEED_ADMIN_CODE"),
		SeedAdminName:            v.GetString("SEED_ADMIN_NAME"),
		SeedAdminEmail:           v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:        v.GetString("SEED_ADMIN_PASSWORD"),
		MaxBodyBytes:             v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute:       v.GetInt("RATE_LIMIT_PER_MINUTE"),
		DirectoryRefreshInterval: v.GetDuration("DIRECTORY_REFRESH_INTERVAL"),
		EmailProvider:            strings.ToLower(strings.TrimSpace(v.GetString("EMAIL_PROVIDER"))),
		EmailFrom:                v.GetString("EMAIL_FROM"),
		SMTPHost:                 v.GetString("SMTP_HOST"),
		SMTPPort:                 v.GetInt("SMTP_PORT"),
		SMTPUser:                 v.GetString("SMTP_USER"),
		SMTPPassword:             v.GetString("SMTP_PASSWORD"),
		AWSRegion:                v.GetString("AWS_REGION"),
		AWSEndpoint:              v.GetString("AWS_ENDPOINT"),
		EventsQueueURL:           v.GetString("EVENTS_QUEUE_URL"),
		OTELEndpoint:             v.GetString("OTEL_ENDPOINT"),
		LogPretty:                v.GetBool("LOG_PRETTY"),
		MetricsEnabled:           v.GetBool("METRICS_ENABLED"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	switch c.EmailProvider {
	case EmailProviderNone, "":
	case EmailProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST must be set when EMAIL_PROVIDER is smtp")
		}
	case EmailProviderSES:
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION must be set when EMAIL_PROVIDER is ses")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of none, smtp, ses")
	}
	return nil
}
