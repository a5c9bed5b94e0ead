// internal/cli/migrate.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/isuramakingshifts/Wallets-Manager/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		st, err := postgres.NewStorage(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.RunMigrations()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
