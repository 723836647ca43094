package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timmy/dialogbot/internal/domain"
)

func newDriftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Run one drift check against the saved baseline",
		Long: `Compare the mean embedding of the current corpus with the saved baseline.

The first check on an empty slot initializes the baseline. A check whose
similarity falls below the threshold reports drift and replaces the baseline.

Examples:
  monitor drift                    # Use the configured threshold
  monitor drift --threshold 0.9    # Override the threshold`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var threshold *float64
			if cmd.Flags().Changed("threshold") {
				v, _ := cmd.Flags().GetFloat64("threshold")
				threshold = &v
			}

			check, err := a.Monitor.CheckDrift(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			printResult(cmd, check, formatCheck(check))
			return nil
		},
	}
	cmd.Flags().Float64("threshold", 0, "Similarity threshold in [-1, 1] (default from config)")
	return cmd
}

func formatCheck(check *domain.DriftCheck) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s\n", check.Status)
	if check.Similarity != nil {
		fmt.Fprintf(&b, "similarity: %.4f (threshold %.4f)\n", *check.Similarity, check.Threshold)
	}
	fmt.Fprintf(&b, "corpus: %d embeddings", check.CorpusSize)
	if check.BaselineUpdated {
		b.WriteString("\nbaseline updated")
	}
	return b.String()
}
