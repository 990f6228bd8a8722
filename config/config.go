package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"ENV"`
	DBURL        string `mapstructure:"DB_URL"`
	RedisAddress string `mapstructure:"REDIS_URL"`
	SymmetricKey string `mapstructure:"SYMMETRIC_KEY"`
	APIKey       string `mapstructure:"API_KEY"`

	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisMaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	PushProvider          string        `mapstructure:"PUSH_PROVIDER"`
	ExpoPushURL           string        `mapstructure:"EXPO_PUSH_URL"`
	PushTimeout           time.Duration `mapstructure:"PUSH_TIMEOUT"`
	FanoutConcurrency     int           `mapstructure:"FANOUT_CONCURRENCY"`
	SOSRecordWithoutToken bool          `mapstructure:"SOS_RECORD_WITHOUT_TOKEN"`
	ScheduleCacheTTL      time.Duration `mapstructure:"SCHEDULE_CACHE_TTL"`

	LockTTL        time.Duration `mapstructure:"LOCK_TTL"`
	LockRetries    int           `mapstructure:"LOCK_RETRIES"`
	LockRetryDelay time.Duration `mapstructure:"LOCK_RETRY_DELAY"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
}

var envKeys = []string{
	"PORT", "ENV", "DB_URL", "REDIS_URL", "SYMMETRIC_KEY", "API_KEY",
	"REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_MAX_RETRIES",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"PUSH_PROVIDER", "EXPO_PUSH_URL", "PUSH_TIMEOUT", "FANOUT_CONCURRENCY", "SOS_RECORD_WITHOUT_TOKEN", "SCHEDULE_CACHE_TTL",
	"LOCK_TTL", "LOCK_RETRIES", "LOCK_RETRY_DELAY",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
}

// Load reads configuration from an optional .env file and the process
// environment. DB_URL, REDIS_URL and SYMMETRIC_KEY are required.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8930")
	v.SetDefault("ENV", "production")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "30s")
	v.SetDefault("REDIS_READ_TIMEOUT", "10s")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:8081")
	v.SetDefault("RATE_LIMIT_RPS", 15)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("PUSH_PROVIDER", "expo")
	v.SetDefault("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("PUSH_TIMEOUT", "5s")
	v.SetDefault("FANOUT_CONCURRENCY", 8)
	v.SetDefault("SOS_RECORD_WITHOUT_TOKEN", false)
	v.SetDefault("SCHEDULE_CACHE_TTL", "10m")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_RETRIES", 3)
	v.SetDefault("LOCK_RETRY_DELAY", "200ms")
	v.SetDefault("SMTP_PORT", 587)

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env file is fine; the environment alone is enough.
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The default decode hook splits on commas without trimming.
	cfg.CORSOrigins = splitAndTrim(v.GetString("CORS_ORIGINS"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	missing := make([]string, 0, 3)
	if c.DBURL == "" {
		missing = append(missing, "DB_URL")
	}
	if c.RedisAddress == "" {
		missing = append(missing, "REDIS_URL")
	}
	if c.SymmetricKey == "" {
		missing = append(missing, "SYMMETRIC_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(c.SymmetricKey) != 32 {
		return fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(c.SymmetricKey))
	}
	if c.PushProvider != "expo" && c.PushProvider != "log" {
		return fmt.Errorf("PUSH_PROVIDER must be expo or log, got %q", c.PushProvider)
	}
	if c.FanoutConcurrency <= 0 {
		return fmt.Errorf("FANOUT_CONCURRENCY must be positive, got %d", c.FanoutConcurrency)
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// SMTPEnabled reports whether outgoing email is configured.
func (c *AppConfig) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != ""
}

// GetAPIKey returns the optional static API key from the config
func (c *AppConfig) GetAPIKey() string {
	return c.APIKey
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
