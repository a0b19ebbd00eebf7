package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dimitrije/linkshelf-api/internal/config"
	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/logging"
	"github.com/spf13/cobra"
)

// env is what every subcommand needs once the root command has run.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
}

var app env

var rootCmd = &cobra.Command{
	Use:   "linkshelf-admin",
	Short: "Operational tasks for the linkshelf sync server",
	Long: `Operational tasks for the linkshelf sync server.

Configuration is read from the environment (and .env) exactly as the
server reads it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, _ := logging.New(cfg.Log)

		db, err := database.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		app = env{cfg: cfg, logger: logger, db: db}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.db != nil {
			app.db.Close()
		}
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
