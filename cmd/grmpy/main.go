// Command grmpy simulates and estimates generalized Roy models.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/grmpy-go/internal/config"
	"github.com/danielpatrickdp/grmpy-go/internal/logging"
	"github.com/danielpatrickdp/grmpy-go/internal/store"
)

var version = "0.1.0-dev"

// #region main
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.FromEnv()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "grmpy",
		Short: "Simulate and estimate generalized Roy models",
		Long: `grmpy draws synthetic samples from a generalized Roy model and recovers
its parameters by maximum likelihood.

Datasets and estimation runs are kept in a SQLite database so that
estimate can pick up what simulate produced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("db", cfg.DBPath, "SQLite database path (GRMPY_DB)")
	rootCmd.PersistentFlags().String("log-level", cfg.LogLevel, "Log level: info, debug or trace (GRMPY_LOG_LEVEL)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newEstimateCmd(),
		newDebugCmd(),
		newRandomSpecCmd(),
		newRunsCmd(),
		newServeCmd(cfg),
	)
	return rootCmd
}

// #endregion main

// #region helpers
// loggerFor builds the command logger. Logs go to stderr so stdout only
// carries results.
func loggerFor(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.NewLogger(level, cmd.ErrOrStderr())
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dbPath, err)
	}
	return st, nil
}

// #endregion helpers
