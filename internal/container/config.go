// Package container provides dependency injection and lifecycle management
// for the batch payment system following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis fan-out for real-time events across instances
	Redis RedisConfig

	// Outgoing mail
	SMTP SMTPConfig

	// SMS gateway
	SMS SMSConfig

	// Bearer token settings
	Auth AuthConfig

	// Batch OTP settings
	OTP OTPConfig

	// Real-time stream settings
	Realtime RealtimeConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// AutoMigrate applies embedded migrations on start
	AutoMigrate bool
}

// RedisConfig holds Redis settings. Disabled means in-process delivery only.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
}

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMSConfig holds SMS gateway settings.
type SMSConfig struct {
	Enabled  bool
	URL      string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// OTPConfig holds credential lifetime settings.
type OTPConfig struct {
	Validity    time.Duration
	MaxAttempts int
}

// RealtimeConfig holds SSE hub settings.
type RealtimeConfig struct {
	MaxConnsPerUser int
	BufferSize      int
	Keepalive       time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration

	// Mode is the gin mode (debug, release, test)
	Mode string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// OTPSweepInterval is how often expired credentials are deleted
	OTPSweepInterval time.Duration

	// RelayBackoff is the wait before resubscribing to Redis
	RelayBackoff time.Duration

	// DispatcherDrain bounds how long Close waits for in-flight events
	DispatcherDrain time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/batchpay.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "batchpay:realtime",
		},
		SMTP: SMTPConfig{
			Host:        "localhost",
			Port:        587,
			FromAddress: "payments@localhost",
			FromName:    "Expense Payments",
		},
		SMS: SMSConfig{
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "expense-batchpay",
			TokenTTL: 12 * time.Hour,
		},
		OTP: OTPConfig{
			Validity:    5 * time.Minute,
			MaxAttempts: 3,
		},
		Realtime: RealtimeConfig{
			MaxConnsPerUser: 5,
			BufferSize:      64,
			Keepalive:       30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Mode:            "release",
		},
		Worker: WorkerConfig{
			OTPSweepInterval: time.Minute,
			RelayBackoff:     2 * time.Second,
			DispatcherDrain:  10 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if c.SMS.Enabled && c.SMS.URL == "" {
		return fmt.Errorf("sms.url is required when sms is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("otp.max_attempts must be positive")
	}
	return nil
}
