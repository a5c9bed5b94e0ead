// internal/cli/add.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isuramakingshifts/Wallets-Manager/internal/registration"
)

var addCmd = &cobra.Command{
	Use:   "add <address> <name> <category>",
	Short: "Register one wallet",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			return runAdd(cmd, app, args[0], args[1], args[2])
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, app *App, address, name, category string) error {
	out := cmd.OutOrStdout()
	progress := registration.WithProgress(func(p registration.Progress) {
		if p.Status == registration.ProgressStarted {
			fmt.Fprintf(out, "%s...\n", p.Stage)
		}
	})

	result, err := app.Orchestrator.Register(cmd.Context(), address, name, category, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Registered %s (%s / %s): %d token accounts, %d recent transactions, webhook monitors %d addresses\n",
		result.Wallet, result.Name, result.Category,
		len(result.Summary), result.Summary.TotalTransactions(), result.MonitoredCount)
	return nil
}
