package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/service"
)

func newVisualizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Render a 2D projection of the stored embeddings",
		Long: `Project every stored embedding to 2D and publish embedding_<method>.png.

Examples:
  monitor visualize                  # Render both tsne and pca
  monitor visualize --method pca     # Render one method`,
		RunE: func(cmd *cobra.Command, args []string) error {
			methods := reduce.Methods
			if name, _ := cmd.Flags().GetString("method"); name != "" {
				m, err := reduce.ParseMethod(name)
				if err != nil {
					return err
				}
				methods = []reduce.Method{m}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results := make([]service.RenderResult, 0, len(methods))
			lines := make([]string, 0, len(methods))
			for _, m := range methods {
				res, err := a.Visualizations.Render(cmd.Context(), m)
				if err != nil {
					return fmt.Errorf("render %s: %w", m, err)
				}
				results = append(results, *res)
				lines = append(lines, fmt.Sprintf("%s: %d points -> %s", res.Method, res.Points, res.URL))
			}
			printResult(cmd, results, strings.Join(lines, "\n"))
			return nil
		},
	}
	cmd.Flags().String("method", "", "Reduction method: tsne or pca (default both)")
	return cmd
}
