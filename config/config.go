package config

import (
	"fmt"
	"strings"
	"time"

	"go-contact-backend/pkg/email"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"5000"`
	Mode           string   `env:"GIN_MODE" envDefault:"debug"`
	FrontendOrigin string   `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:3000"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	OwnerEmail     string   `env:"OWNER_EMAIL"`
	// SMTP relay
	SMTPHost         string        `env:"SMTP_HOST"`
	SMTPPort         int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser         string        `env:"SMTP_USER"`
	SMTPPass         string        `env:"SMTP_PASS"`
	SMTPSSL          bool          `env:"SMTP_SSL" envDefault:"false"`
	SMTPInsecureTLS  bool          `env:"SMTP_TLS_INSECURE" envDefault:"false"` // local relays with self-signed certs
	SMTPVerifyStrict bool          `env:"SMTP_VERIFY_STRICT" envDefault:"false"`
	SMTPTimeout      time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"` // a stalled relay fails the send
	// Outbound sender identity
	FromName  string `env:"FROM_NAME"`
	FromEmail string `env:"FROM_EMAIL"`
	// Gateway limits
	BodyLimitBytes  int64         `env:"BODY_LIMIT_BYTES" envDefault:"10240"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"20"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	// Optional Redis for a rate limit shared between instances
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	// Observability
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string `env:"LOG_FILE"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.FrontendOrigin = strings.TrimRight(cfg.FrontendOrigin, "/")

	switch cfg.Mode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", cfg.Mode)
	}

	if cfg.BodyLimitBytes <= 0 {
		return nil, fmt.Errorf("BODY_LIMIT_BYTES must be positive, got %d", cfg.BodyLimitBytes)
	}
	if cfg.SMTPTimeout <= 0 {
		return nil, fmt.Errorf("SMTP_TIMEOUT must be positive, got %s", cfg.SMTPTimeout)
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d per %s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	return cfg, nil
}

// Missing lists the unset mail settings. They are not fatal: the server still
// starts and the affected sends fail.
func (c *Config) Missing() []string {
	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	check("OWNER_EMAIL", c.OwnerEmail)
	check("SMTP_HOST", c.SMTPHost)
	check("SMTP_USER", c.SMTPUser)
	check("SMTP_PASS", c.SMTPPass)
	check("FROM_NAME", c.FromName)
	check("FROM_EMAIL", c.FromEmail)
	return missing
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Mode == "release"
}

// SMTP returns the relay settings for the mail dispatcher.
func (c *Config) SMTP() email.SMTPConfig {
	return email.SMTPConfig{
		Host:               c.SMTPHost,
		Port:               c.SMTPPort,
		Username:           c.SMTPUser,
		Password:           c.SMTPPass,
		SSL:                c.SMTPSSL,
		InsecureSkipVerify: c.SMTPInsecureTLS,
		Timeout:            c.SMTPTimeout,
	}
}

// Sender returns the identity both contact emails are sent from.
func (c *Config) Sender() email.Address {
	return email.Address{Name: c.FromName, Address: c.FromEmail}
}
