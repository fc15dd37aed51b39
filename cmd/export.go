package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/store"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a completed run as a validated JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			st, err := store.Open(config.DatabasePath())
			if err != nil {
				return fmt.Errorf("failed to open results store: %w", err)
			}
			defer func() {
				if cerr := st.Close(); cerr != nil {
					slog.Warn("failed to close results store", "error", cerr)
				}
			}()

			path := output
			if path == "" {
				path = filepath.Join(config.ExportsDir(), fmt.Sprintf("run-%d.json", runID))
			}
			if err := writeExport(st, runID, path); err != nil {
				return err
			}

			fmt.Printf("Export written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output file (default: exports directory)")

	return cmd
}
