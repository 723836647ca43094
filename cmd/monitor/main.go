package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/dialogbot/internal/app"
	"github.com/timmy/dialogbot/internal/config"
	"github.com/timmy/dialogbot/internal/logger"
)

func main() {
	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Drift monitoring and embedding visualization for stored conversations",
		Long: `monitor runs maintenance tasks against the conversation store.

It checks the corpus for embedding drift against the saved baseline and
renders 2D projections of the stored embeddings.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (defaults to CONFIG_PATH or ./configs/config.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newDriftCmd(),
		newVisualizeCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// openApp loads configuration and wires the application for one command run.
func openApp(cmd *cobra.Command) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(cmd.Context(), cfg, logger.GetDefault().WithField(logger.FieldComponent, "monitor"))
}

func printResult(cmd *cobra.Command, v any, text string) {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
}
