package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App           AppSettings           `mapstructure:"app"`
	Postgres      PostgresSettings      `mapstructure:"postgres"`
	Redis         RedisSettings         `mapstructure:"redis"`
	Kafka         KafkaSettings         `mapstructure:"kafka"`
	Session       SessionSettings       `mapstructure:"session"`
	Bcrypt        BcryptSettings        `mapstructure:"bcrypt"`
	TwoFactor     TwoFactorSettings     `mapstructure:"two_factor"`
	PasswordReset PasswordResetSettings `mapstructure:"password_reset"`
	RateLimit     RateLimitSettings     `mapstructure:"rate_limit"`
	Telemetry     TelemetrySettings     `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name               string   `mapstructure:"name"`
	Env                string   `mapstructure:"env"`
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	LockPrefix string `mapstructure:"lock_prefix"`
}

// KafkaSettings configures the Kafka producers
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings configures server-side session records and their cookie.
// CookieSecure forces the Secure attribute on; production always gets it
// regardless of this flag.
type SessionSettings struct {
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// BcryptSettings configures the credential hashing work factor
type BcryptSettings struct {
	Cost int `mapstructure:"cost"`
}

// TwoFactorSettings configures verification code issuance and checking.
type TwoFactorSettings struct {
	TTL         time.Duration `mapstructure:"ttl"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	CodeLength  int           `mapstructure:"code_length"`
}

// PasswordResetSettings configures reset token issuance. The token TTL and
// the per-user rate-limit window are independent knobs even though they
// currently share a default.
type PasswordResetSettings struct {
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	TokenBytes      int           `mapstructure:"token_bytes"`
	MinPasswordLen  int           `mapstructure:"min_password_len"`
	MaxPasswordLen  int           `mapstructure:"max_password_len"`
}

// RateLimitSettings configures the IP-scoped sliding windows applied at the
// HTTP boundary, on top of the domain-level cooldowns.
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

type TelemetrySettings struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.lock_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.ttl",
		"session.cookie_name",
		"session.cookie_secure",
		"session.key_prefix",
		"bcrypt.cost",
		"two_factor.ttl",
		"two_factor.cooldown",
		"two_factor.max_attempts",
		"two_factor.code_length",
		"password_reset.token_ttl",
		"password_reset.rate_limit_window",
		"password_reset.token_bytes",
		"password_reset.min_password_len",
		"password_reset.max_password_len",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"telemetry.metrics_enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "chatty-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_allowed_origins", []string{})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "chatty")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.lock_prefix", "auth:lock")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "auth")

	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_name", "chatty_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.key_prefix", "auth:session")

	v.SetDefault("bcrypt.cost", 12)

	v.SetDefault("two_factor.ttl", "5m")
	v.SetDefault("two_factor.cooldown", "1m")
	v.SetDefault("two_factor.max_attempts", 5)
	v.SetDefault("two_factor.code_length", 6)

	v.SetDefault("password_reset.token_ttl", "2m")
	v.SetDefault("password_reset.rate_limit_window", "2m")
	v.SetDefault("password_reset.token_bytes", 20)
	v.SetDefault("password_reset.min_password_len", 8)
	v.SetDefault("password_reset.max_password_len", 50)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.password_reset_max_attempts", 5)

	v.SetDefault("telemetry.metrics_enabled", true)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
