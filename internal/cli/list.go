// internal/cli/list.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isuramakingshifts/Wallets-Manager/internal/export"
)

var (
	listCategory  string
	listFormat    string
	listOutputDir string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show registered wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(listFormat)
		if err != nil {
			return err
		}
		return withApp(func(app *App) error {
			return runList(cmd, app, listOptions{
				category:  listCategory,
				format:    format,
				outputDir: listOutputDir,
			})
		})
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "only wallets of this category")
	listCmd.Flags().StringVar(&listFormat, "format", string(export.FormatTable), "output format: table, csv or json")
	listCmd.Flags().StringVar(&listOutputDir, "output-dir", "", "write a timestamped csv/json file here instead of stdout")
	rootCmd.AddCommand(listCmd)
}

type listOptions struct {
	category  string
	format    export.Format
	outputDir string
}

func runList(cmd *cobra.Command, app *App, opts listOptions) error {
	wallets, err := app.Storage.ListWallets(cmd.Context(), opts.category)
	if err != nil {
		return err
	}

	exporter := export.NewWalletExporter(app.Logger)
	if opts.outputDir == "" {
		return exporter.Write(cmd.OutOrStdout(), wallets, opts.format)
	}

	path, err := exporter.ExportToFile(wallets, export.ExportOptions{
		Format:    opts.format,
		Category:  opts.category,
		OutputDir: opts.outputDir,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
