package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/timmy/dialogbot/internal/logger"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run drift checks periodically until interrupted",
		Long: `Run a drift check immediately and then once per interval until SIGINT or SIGTERM.

Failed checks are logged and recorded in the check history; the loop keeps running.

Examples:
  monitor watch --interval 30m
  monitor watch --interval 1h --threshold 0.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("interval") {
				interval = a.Config.Drift.WatchInterval
			}
			if interval <= 0 {
				return errors.New("interval must be positive")
			}

			var threshold *float64
			if cmd.Flags().Changed("threshold") {
				v, _ := cmd.Flags().GetFloat64("threshold")
				threshold = &v
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := a.Logger.WithField("interval", interval.String())
			log.Info("Watching for drift")
			watch(ctx, interval, func(ctx context.Context) {
				check, err := a.Monitor.CheckDrift(ctx, threshold)
				if err != nil {
					return
				}
				if check.BaselineUpdated {
					printResult(cmd, check, formatCheck(check))
				}
			})
			log.Info("Watch stopped")
			return nil
		},
	}
	cmd.Flags().Duration("interval", time.Hour, "Time between checks (default from config)")
	cmd.Flags().Float64("threshold", 0, "Similarity threshold in [-1, 1] (default from config)")
	return cmd
}

// watch runs check now and on every tick until ctx is done.
func watch(ctx context.Context, interval time.Duration, check func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		check(logger.SetComponent(ctx, "watch"))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
		}
	}
}
