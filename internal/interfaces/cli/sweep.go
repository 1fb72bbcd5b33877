package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/expense-batchpay/internal/infrastructure/persistence/repository"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-otps",
		Short: "Delete expired batch OTPs once and exit",
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

			otpRepo := repository.NewOTPRepository(db.DB, logger)
			removed, err := otpRepo.DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired OTP(s)\n", removed)
			return nil
		},
	}
}
