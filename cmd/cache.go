package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/platform"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local question cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [version]",
		Short: "Clear cached questions for one version, or everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) == 1 {
				version = args[0]
			}

			cache := platform.NewQuestionCache(config.CacheDir())
			if err := cache.Clear(version); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}

			if version == "" {
				fmt.Println("Question cache cleared.")
			} else {
				fmt.Printf("Cache cleared for version %s.\n", version)
			}
			return nil
		},
	}

	cmd.AddCommand(clearCmd)
	return cmd
}
