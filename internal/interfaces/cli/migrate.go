package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/expense-batchpay/migrations"
	"github.com/garyjia/expense-batchpay/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied migrations",
			RunE:  runMigrateStatus,
		},
	)

	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
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

	applied, err := database.NewMigrator(db, logger).Run(migrations.FS)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
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

	applied, err := database.NewMigrator(db, logger).Applied()
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "No migrations applied")
		return nil
	}
	for _, m := range applied {
		fmt.Fprintf(out, "%03d  %-30s  %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
