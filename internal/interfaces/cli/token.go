package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/expense-batchpay/internal/infrastructure/auth"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/persistence/repository"
)

func newTokenCommand() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue a bearer token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := initEnv()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := repository.NewUserRepository(db.DB, logger).GetByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
			if user == nil {
				return fmt.Errorf("user %d not found", userID)
			}

			token, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Generate(user)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "ID of the user the token identifies")
	cmd.MarkFlagRequired("user-id")

	return cmd
}
