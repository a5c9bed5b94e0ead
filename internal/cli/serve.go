// internal/cli/serve.go
package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/isuramakingshifts/Wallets-Manager/internal/bot"
	"github.com/isuramakingshifts/Wallets-Manager/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the metrics endpoint",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}

	telegram, err := bot.NewTelegramBot(cfg.BotToken, cfg.AdminChatID, app.Orchestrator, app.Storage, log)
	if err != nil {
		_ = app.Close()
		return err
	}

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, app.Registry, log)
	}

	return bot.NewRunner(telegram, metricsServer, app.Bus, app.Shutdown, log).Run(ctx)
}
