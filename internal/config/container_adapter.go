package config

import (
	"github.com/garyjia/expense-batchpay/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Redis: container.RedisConfig{
			Enabled:  c.Redis.Enabled,
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Channel:  c.Redis.Channel,
		},
		SMTP: container.SMTPConfig{
			Host:        c.SMTP.Host,
			Port:        c.SMTP.Port,
			Username:    c.SMTP.Username,
			Password:    c.SMTP.Password,
			FromAddress: c.SMTP.FromAddress,
			FromName:    c.SMTP.FromName,
		},
		SMS: container.SMSConfig{
			Enabled:  c.SMS.Enabled,
			URL:      c.SMS.URL,
			APIKey:   c.SMS.APIKey,
			SenderID: c.SMS.SenderID,
			Timeout:  c.SMS.Timeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		OTP: container.OTPConfig{
			Validity:    c.OTP.Validity,
			MaxAttempts: c.OTP.MaxAttempts,
		},
		Realtime: container.RealtimeConfig{
			MaxConnsPerUser: c.Realtime.MaxConnsPerUser,
			BufferSize:      c.Realtime.BufferSize,
			Keepalive:       c.Realtime.Keepalive,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			Mode:            c.Server.Mode,
		},
		Worker: container.WorkerConfig{
			OTPSweepInterval: c.Worker.OTPSweepInterval,
			RelayBackoff:     c.Worker.RelayBackoff,
			DispatcherDrain:  c.Worker.DispatcherDrain,
		},
	}
}
