package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/platform"
)

func newVersionsCmd() *cobra.Command {
	var (
		drafts  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List available benchmark versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cache := platform.NewQuestionCache(config.CacheDir())

			// Draft listings are never cached, so the catalog stays
			// consistent for everyone reading it without the flag.
			var list *platform.VersionList
			if !refresh && !drafts {
				list = cache.VersionList()
			}
			if list == nil {
				client := platform.NewClient(cfg.Platform.APIKey, cfg.Platform.URL)
				defer client.Close()

				fetched, err := client.ListVersions(cmd.Context(), drafts)
				if err != nil {
					return fmt.Errorf("failed to fetch versions: %w", err)
				}
				list = fetched
				if !drafts {
					if err := cache.StoreVersionList(list); err != nil {
						slog.Warn("failed to cache version list", "error", err)
					}
				}
			}

			if len(list.Versions) == 0 {
				fmt.Println("No benchmark versions available.")
				return nil
			}

			fmt.Printf("%-12s %-12s %-10s %s\n", "Version", "Status", "Questions", "")
			for _, v := range list.Versions {
				marker := ""
				if v.IsCurrent {
					marker = "(current)"
				}
				fmt.Printf("%-12s %-12s %-10d %s\n",
					v.SemanticVersion, v.Status, v.QuestionCount, marker)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&drafts, "drafts", false, "Include draft versions")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cached catalog")

	return cmd
}
