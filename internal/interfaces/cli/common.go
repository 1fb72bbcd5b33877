// Package cli provides the cobra commands of the batch payment server.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/config"
	"github.com/garyjia/expense-batchpay/pkg/database"
	"github.com/garyjia/expense-batchpay/pkg/utils"
)

// DefaultConfigPath is used when --config is not given
const DefaultConfigPath = "configs/config.yaml"

var configPath string

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "batchpay",
		Short:         "Expense batch payment service",
		Long:          `Batch settlement of approved expenses with OTP confirmation, notifications and a real-time stream.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "Path to config file")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSweepCommand(),
		newTokenCommand(),
	)

	return root
}

// initEnv loads configuration and builds the logger
func initEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "batchpay",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger, nil
}

// openDatabase opens the configured database without migrating it
func openDatabase(cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	return database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
}
