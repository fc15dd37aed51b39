package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/store"
)

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent benchmark runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(config.DatabasePath())
			if err != nil {
				return fmt.Errorf("failed to open results store: %w", err)
			}
			defer func() {
				if cerr := st.Close(); cerr != nil {
					slog.Warn("failed to close results store", "error", cerr)
				}
			}()

			runs, err := st.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No benchmark runs recorded yet.")
				return nil
			}

			fmt.Printf("%-5s %-30s %-12s %-10s %-8s %s\n",
				"ID", "Model", "Version", "Score", "Status", "Started")
			for _, run := range runs {
				score := "-"
				if run.Score != nil {
					score = fmt.Sprintf("%.1f", *run.Score)
				}
				status := "running"
				if run.Completed() {
					status = "done"
				}
				version := run.BenchmarkVersion
				if run.IsDraftTest {
					version += "*"
				}
				fmt.Printf("%-5d %-30s %-12s %-10s %-8s %s\n",
					run.ID, run.Model, version, score, status,
					run.StartedAt.Local().Format("2006-01-02 15:04"))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}
