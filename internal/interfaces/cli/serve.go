package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/config"
	"github.com/garyjia/expense-batchpay/internal/container"
	httpapi "github.com/garyjia/expense-batchpay/internal/interfaces/http"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, real-time stream and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := initEnv()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting expense batch payment service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	httpLogger := &zapLogger{logger: logger.Named("http")}
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Mode:            cfg.Server.Mode,
		StreamKeepalive: cfg.Realtime.Keepalive,
	}, httpapi.ServerDeps{
		BatchPayments: c.Services().BatchPayment,
		Tokens:        c.Tokens(),
		Users:         c.Repositories().User,
		Hub:           c.Hub(),
		Health: func(ctx context.Context) (bool, interface{}) {
			status := c.Health(ctx)
			return status.Overall, status.Components
		},
		Logger: httpLogger,
	})

	// Start blocks until ctx is cancelled; open SSE streams end when the
	// container shuts the hub down.
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Server exited successfully")
	return nil
}

// zapLogger adapts zap.Logger to the http.Logger interface
type zapLogger struct {
	logger *zap.Logger
}

func (l *zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, keysAndValues...)
}
