package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliChat is the selection slot used by the command line.
const cliChat int64 = 0

var (
	// Global flags
	verbose bool

	logger      *zap.Logger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "meal-planner",
	Short: "Browse meals, plan the week and build shopping lists",
	Long: `meal-planner talks to the meals REST API.

It lists and edits meals, generates daily menus and weekly plans, and
aggregates ingredients of the selected meals into a shopping list.
Favorites, the weekly plan and the session live in DATA_DIR.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		application, err = app.New(cfg, logger)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(); err != nil {
				logger.Warn("failed to close application", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		mealsCmd,
		favCmd,
		favoritesCmd,
		randomCmd,
		weekCmd,
		planCmd,
		selectCmd,
		unselectCmd,
		selectionCmd,
		clearCmd,
		shopCmd,
		historyCmd,
		clipCmd,
		loginCmd,
		registerCmd,
		logoutCmd,
		usageCmd,
		cleanupCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", app.Describe(err))
		if logger != nil {
			logger.Debug("command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}
