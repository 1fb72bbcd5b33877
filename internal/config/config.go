package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OTP      OTPConfig      `mapstructure:"otp"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig enables cross-instance real-time delivery
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// SMTPConfig holds outgoing mail configuration
type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// SMSConfig holds the SMS gateway configuration
type SMSConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	SenderID string        `mapstructure:"sender_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// OTPConfig holds batch OTP settings
type OTPConfig struct {
	Validity    time.Duration `mapstructure:"validity"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// RealtimeConfig holds SSE settings
type RealtimeConfig struct {
	MaxConnsPerUser int           `mapstructure:"max_conns_per_user"`
	BufferSize      int           `mapstructure:"buffer_size"`
	Keepalive       time.Duration `mapstructure:"keepalive"`
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	OTPSweepInterval time.Duration `mapstructure:"otp_sweep_interval"`
	RelayBackoff     time.Duration `mapstructure:"relay_backoff"`
	DispatcherDrain  time.Duration `mapstructure:"dispatcher_drain"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env (if present), then the YAML file at configPath (if given),
// then environment overrides prefixed BATCHPAY_.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BATCHPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind env vars: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.path", "data/batchpay.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "batchpay:realtime")

	// SMTP defaults
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_address", "payments@localhost")
	v.SetDefault("smtp.from_name", "Expense Payments")

	// SMS defaults
	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.url", "")
	v.SetDefault("sms.api_key", "")
	v.SetDefault("sms.sender_id", "")
	v.SetDefault("sms.timeout", 10*time.Second)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "expense-batchpay")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	// OTP defaults
	v.SetDefault("otp.validity", 5*time.Minute)
	v.SetDefault("otp.max_attempts", 3)

	// Realtime defaults
	v.SetDefault("realtime.max_conns_per_user", 5)
	v.SetDefault("realtime.buffer_size", 64)
	v.SetDefault("realtime.keepalive", 30*time.Second)

	// Worker defaults
	v.SetDefault("worker.otp_sweep_interval", time.Minute)
	v.SetDefault("worker.relay_backoff", 2*time.Second)
	v.SetDefault("worker.dispatcher_drain", 10*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds unprefixed names for secrets
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"auth.jwt_secret": {"BATCHPAY_AUTH_JWT_SECRET", "JWT_SECRET"},
		"smtp.password":   {"BATCHPAY_SMTP_PASSWORD", "SMTP_PASSWORD"},
		"sms.api_key":     {"BATCHPAY_SMS_API_KEY", "SMS_API_KEY"},
		"redis.password":  {"BATCHPAY_REDIS_PASSWORD", "REDIS_PASSWORD"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if c.SMTP.FromAddress == "" {
		return fmt.Errorf("smtp.from_address is required")
	}
	if c.SMS.Enabled && c.SMS.URL == "" {
		return fmt.Errorf("sms.url is required when sms is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.OTP.Validity <= 0 {
		return fmt.Errorf("otp.validity must be positive")
	}
	if c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("otp.max_attempts must be positive")
	}

	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger.level must be one of debug, info, warn, error")
	}

	return nil
}
