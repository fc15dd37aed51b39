package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/credobench/runner/internal/backend"
	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/platform"
)

func newConfigCmd() *cobra.Command {
	var (
		backendName    string
		apiKey         string
		baseURL        string
		platformURL    string
		platformKey    string
		defaultBackend string
		judgeModel     string
		judgeBackend   string
		check          bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the runner configuration",
		Long: `Show the current configuration, or update parts of it via flags.

API keys can also come from OPENAI_API_KEY, OPENROUTER_API_KEY and
ANTHROPIC_API_KEY; a key in the config file takes precedence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			changed := false
			if apiKey != "" || baseURL != "" {
				if backendName == "" {
					return fmt.Errorf("--backend is required when setting --api-key or --base-url")
				}
				known := false
				for _, name := range backend.Known() {
					if name == backendName {
						known = true
						break
					}
				}
				if !known {
					return fmt.Errorf("unknown backend %q (known: %s)", backendName, strings.Join(backend.Known(), ", "))
				}
				b := cfg.BackendConfig(backendName)
				if apiKey != "" {
					b.APIKey = apiKey
				}
				if baseURL != "" {
					b.BaseURL = baseURL
				}
				cfg.SetBackendConfig(backendName, b)
				changed = true
			}
			if platformURL != "" {
				cfg.Platform.URL = platformURL
				changed = true
			}
			if platformKey != "" {
				cfg.Platform.APIKey = platformKey
				changed = true
			}
			if defaultBackend != "" {
				cfg.Defaults.Backend = defaultBackend
				changed = true
			}
			if judgeModel != "" {
				cfg.Defaults.JudgeModel = judgeModel
				changed = true
			}
			if judgeBackend != "" {
				cfg.Defaults.JudgeBackend = judgeBackend
				changed = true
			}

			if changed {
				if err := cfg.Save(); err != nil {
					return err
				}
				fmt.Println("Configuration saved.")
				return nil
			}

			if check {
				client := platform.NewClient(cfg.Platform.APIKey, cfg.Platform.URL)
				defer client.Close()

				info, err := client.UserInfo(cmd.Context())
				if err != nil {
					return fmt.Errorf("platform API key check failed: %w", err)
				}
				fmt.Printf("Platform key valid: %s <%s> (%s)\n", info.Name, info.Email, info.Role)
				return nil
			}

			printConfig(cfg)
			return nil
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "", "Backend to configure")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for --backend")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL override for --backend")
	cmd.Flags().StringVar(&platformURL, "platform-url", "", "Benchmark platform URL")
	cmd.Flags().StringVar(&platformKey, "platform-key", "", "Benchmark platform API key")
	cmd.Flags().StringVar(&defaultBackend, "default-backend", "", "Backend used when run omits --backend")
	cmd.Flags().StringVar(&judgeModel, "judge-model", "", "Default judge model")
	cmd.Flags().StringVar(&judgeBackend, "judge-backend", "", "Default judge backend")
	cmd.Flags().BoolVar(&check, "check", false, "Verify the platform API key against the platform")

	return cmd
}

func printConfig(cfg *config.Config) {
	fmt.Printf("Config file: %s\n\n", config.Dir()+"/config.yaml")

	fmt.Println("Backends:")
	for _, name := range backend.Known() {
		b := cfg.ResolveBackend(name)
		key := "unset"
		if b.APIKey != "" {
			key = "set"
		}
		if backend.IsLocal(name) {
			key = "not required"
		}
		line := fmt.Sprintf("  %-12s api key: %s", name, key)
		if b.BaseURL != "" {
			line += fmt.Sprintf(", base url: %s", b.BaseURL)
		}
		fmt.Println(line)
	}

	fmt.Println("\nDefaults:")
	fmt.Printf("  backend:       %s\n", cfg.Defaults.Backend)
	fmt.Printf("  judge model:   %s\n", cfg.Defaults.JudgeModel)
	judgeBackend := cfg.Defaults.JudgeBackend
	if judgeBackend == "" {
		judgeBackend = "(auto)"
	}
	fmt.Printf("  judge backend: %s\n", judgeBackend)

	fmt.Println("\nPlatform:")
	fmt.Printf("  url:     %s\n", cfg.Platform.URL)
	key := "unset"
	if cfg.Platform.APIKey != "" {
		key = "set"
	}
	fmt.Printf("  api key: %s\n", key)
}
