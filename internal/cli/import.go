// internal/cli/import.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isuramakingshifts/Wallets-Manager/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Register every wallet listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := importer.LoadFile(args[0])
		if err != nil {
			return err
		}
		return withApp(func(app *App) error {
			return runImport(cmd, app, entries)
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, app *App, entries []importer.Entry) error {
	report, err := importer.New(app.Orchestrator, app.Logger).Run(cmd.Context(), entries)
	out := cmd.OutOrStdout()
	if report != nil {
		for _, o := range report.Failed() {
			fmt.Fprintf(out, "FAILED %s (%s): %v\n", o.Entry.Address, o.Entry.Name, o.Err)
		}
		fmt.Fprintf(out, "Imported %d of %d wallets\n", report.Succeeded(), len(entries))
	}
	if err != nil {
		return err
	}
	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d wallets failed to register", failed)
	}
	return nil
}
