// internal/cli/root.go
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isuramakingshifts/Wallets-Manager/internal/config"
	"github.com/isuramakingshifts/Wallets-Manager/internal/logger"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "walletbot",
	Short: "Solana wallet registration service",
	Long: `walletbot registers Solana wallets: it counts recent activity of every
token account, adds the wallet to a Helius webhook and stores it in PostgreSQL.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "optional config file; environment variables override it")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// setup loads .env, the configuration and the console logger.
func setup() (*config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.CreatePrettyLogger(isDebug || cfg.DebugLogging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withApp runs fn against a wired App and closes it afterwards.
func withApp(fn func(app *App) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}
	runErr := fn(app)
	if err := app.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
