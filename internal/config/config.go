package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	OAuth       OAuthConfig
	Email       EmailConfig
	Stripe      StripeConfig
	RateLimit   RateLimitConfig
	Tracing     TracingConfig
	Jobs        JobsConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
}

type AuthConfig struct {
	SessionSecret string
	SessionExpiry time.Duration
	CookieName    string
	CookieSecure  bool
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
}

type EmailConfig struct {
	Enabled      bool
	Provider     string
	ResendAPIKey string
	From         string
	ContactTo    string
}

type StripeConfig struct {
	ClientID       string
	SecretKey      string
	PublishableKey string
	APIBaseURL     string
	ConnectBaseURL string
}

type RateLimitConfig struct {
	PublicPerMinute        int
	AuthenticatedPerMinute int
	LoginPerMinute         int
	TrustedProxyCIDRs      []string
}

type TracingConfig struct {
	Enabled    bool
	Exporter   string
	Endpoint   string
	SampleRate float64
}

type JobsConfig struct {
	RetryEmail      int
	RetryPlacements int
	ReminderAfter   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// minSessionSecret is the shortest secret accepted outside development.
const minSessionSecret = 32

func Load() (Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8000),
			BaseURL: strings.TrimRight(getEnv("SERVER_BASE_URL", "http://localhost:8000"), "/"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdle:        getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		},
		Auth: AuthConfig{
			SessionSecret: getEnv("SESSION_SECRET", ""),
			SessionExpiry: time.Duration(getEnvInt("SESSION_EXPIRY_HOURS", 24*14)) * time.Hour,
			CookieName:    getEnv("SESSION_COOKIE_NAME", "ifeis_session"),
			CookieSecure:  getEnvBool("SESSION_COOKIE_SECURE", env == "production"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
			Provider:     getEnv("EMAIL_PROVIDER", "log"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "iFeis <noreply@ifeis.net>"),
			ContactTo:    getEnv("EMAIL_CONTACT_TO", "hello@ifeis.net"),
		},
		Stripe: StripeConfig{
			ClientID:       getEnv("STRIPE_CLIENT_ID", ""),
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			APIBaseURL:     getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			ConnectBaseURL: getEnv("STRIPE_CONNECT_BASE_URL", "https://connect.stripe.com"),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:        getEnvInt("RATE_LIMIT_PUBLIC", 120),
			AuthenticatedPerMinute: getEnvInt("RATE_LIMIT_AUTHENTICATED", 600),
			LoginPerMinute:         getEnvInt("RATE_LIMIT_LOGIN", 10),
			TrustedProxyCIDRs:      getEnvList("RATE_LIMIT_TRUSTED_PROXIES"),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Exporter:   getEnv("TRACING_EXPORTER", "none"),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4317"),
			SampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Jobs: JobsConfig{
			RetryEmail:      getEnvInt("JOB_RETRY_EMAIL", 5),
			RetryPlacements: getEnvInt("JOB_RETRY_PLACEMENTS", 3),
			ReminderAfter:   time.Duration(getEnvInt("INVITE_REMINDER_AFTER_HOURS", 24*7)) * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: env,
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if env != "development" && env != "test" && len(cfg.Auth.SessionSecret) < minSessionSecret {
		return Config{}, fmt.Errorf("SESSION_SECRET must be at least %d bytes in %s", minSessionSecret, env)
	}
	if cfg.Email.Enabled && cfg.Email.Provider == "resend" && cfg.Email.ResendAPIKey == "" {
		return Config{}, fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
	}
	return cfg, nil
}

// IsDevelopment reports whether development-only routes may be mounted.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
