package config

import (
	"net"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	// AdminAddr serves metrics and the unredacted audit history with no
	// authentication. It must only be reachable on a private interface.
	AdminAddr string `env:"ADMIN_ADDR" envDefault:"127.0.0.1:9091"`

	// Empty URLs select the in-memory stores.
	PostgresURL string `env:"POSTGRES_URL"`
	RedisURL    string `env:"REDIS_URL"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionCookie string        `env:"SESSION_COOKIE" envDefault:"portal_session"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`

	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	OTPBypass         bool          `env:"OTP_BYPASS" envDefault:"false"`
	OTPDevCode        string        `env:"OTP_DEV_CODE" envDefault:"111111"`
	OTPTTL            time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" envDefault:"60s"`

	UnifonicBaseURL string `env:"UNIFONIC_BASE_URL" envDefault:"https://el.cloud.unifonic.com"`
	UnifonicAPIKey  string `env:"UNIFONIC_API_KEY"`
	UnifonicSender  string `env:"UNIFONIC_SENDER" envDefault:"OTP"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"service-requests"`

	WALPath        string        `env:"AUDIT_WAL_PATH" envDefault:"./data/audit-spool"`
	WALSegmentSize int64         `env:"AUDIT_WAL_SEGMENT_SIZE_BYTES" envDefault:"10485760"`   // 10MB
	WALMaxDiskSize int64         `env:"AUDIT_WAL_MAX_DISK_SIZE_BYTES" envDefault:"104857600"` // 100MB
	ReplayInterval time.Duration `env:"AUDIT_REPLAY_INTERVAL" envDefault:"15s"`

	LookupRateLimit float64 `env:"LOOKUP_RATE_LIMIT" envDefault:"2"`
	LookupRateBurst int     `env:"LOOKUP_RATE_BURST" envDefault:"10"`

	ReferencePrefix string        `env:"REFERENCE_PREFIX" envDefault:"UW"`
	UserCacheTTL    time.Duration `env:"USER_CACHE_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AdminIsPrivate reports whether AdminAddr binds only to a loopback or
// private-network address.
func (c *Config) AdminIsPrivate() bool {
	host, _, err := net.SplitHostPort(c.AdminAddr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}
