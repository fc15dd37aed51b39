package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/export"
	"github.com/credobench/runner/internal/platform"
	"github.com/credobench/runner/internal/runner"
	"github.com/credobench/runner/internal/store"
)

func newRunCmd() *cobra.Command {
	var (
		model        string
		backendName  string
		version      string
		judgeModel   string
		judgeBackend string
		resume       bool
		draft        bool
		output       string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark against a model",
		Long: `Execute the benchmark by sending every question to a model, judging
each response, and recording the judged results locally.

Questions are asked tier by tier in a fixed order. A run interrupted
partway can be picked up with --resume, which skips every question that
already has a recorded response.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				return fmt.Errorf("--model is required")
			}

			cfg := config.Load()
			if backendName == "" {
				backendName = cfg.Defaults.Backend
			}
			if judgeBackend == "" {
				judgeBackend = cfg.JudgeBackendFor(backendName)
			}
			if judgeModel == "" {
				judgeModel = cfg.Defaults.JudgeModel
			}

			modelClient, err := newBackendClient(cfg, backendName, timeout)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := modelClient.Close(); cerr != nil {
					slog.Warn("failed to close model backend", "error", cerr)
				}
			}()

			judgeClient := modelClient
			if judgeBackend != backendName {
				judgeClient, err = newBackendClient(cfg, judgeBackend, timeout)
				if err != nil {
					return err
				}
				defer func() {
					if cerr := judgeClient.Close(); cerr != nil {
						slog.Warn("failed to close judge backend", "error", cerr)
					}
				}()
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

			platformClient := platform.NewClient(cfg.Platform.APIKey, cfg.Platform.URL)
			defer platformClient.Close()
			cache := platform.NewQuestionCache(config.CacheDir())

			r := runner.New(platformClient, cache, st)
			r.SetPhaseFunc(func(p runner.Phase) {
				switch p {
				case runner.PhaseFetchingQuestions:
					fmt.Println("Fetching benchmark questions...")
				case runner.PhaseResuming:
					fmt.Println("Resuming previous run...")
				case runner.PhaseScoring:
					fmt.Printf("\nScoring...\n")
				}
			})
			r.SetProgressFunc(func(tier, idx, total int) {
				fmt.Printf("\r  [tier %d] question %d/%d...", tier, idx, total)
			})

			fmt.Printf("Model: %s (%s)\n", model, backendName)
			fmt.Printf("Judge: %s (%s)\n", judgeModel, judgeBackend)
			fmt.Println()

			result, err := r.Run(cmd.Context(), runner.Options{
				Model:            model,
				Backend:          backendName,
				BenchmarkVersion: version,
				JudgeModel:       judgeModel,
				JudgeBackend:     judgeBackend,
				Resume:           resume,
				Draft:            draft,
				ModelClient:      modelClient,
				JudgeClient:      judgeClient,
				CallTimeout:      timeout,
			})
			if err != nil {
				return err
			}

			printResult(result)

			if output != "" {
				if err := writeExport(st, result.RunID, output); err != nil {
					return err
				}
				fmt.Printf("\nExport written to %s\n", output)
			}

			slog.Info("benchmark run complete", "run_id", result.RunID, "score", result.Score)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model identifier to test (required)")
	cmd.Flags().StringVar(&backendName, "backend", "", "Backend serving the model (default: from config)")
	cmd.Flags().StringVar(&version, "version", "", "Benchmark version to run (default: current published version)")
	cmd.Flags().StringVar(&judgeModel, "judge-model", "", "Model used as judge (default: from config)")
	cmd.Flags().StringVar(&judgeBackend, "judge-backend", "", "Backend serving the judge model (default: auto-detected)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume the newest incomplete run for this model and version")
	cmd.Flags().BoolVar(&draft, "draft", false, "Allow draft benchmark versions (results are flagged and never cached)")
	cmd.Flags().StringVar(&output, "output", "", "Write the export document for the completed run to this file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Timeout per model or judge call (e.g. 90s, 5m). 0 uses the backend default")

	return cmd
}

func printResult(result *runner.Result) {
	fmt.Printf("\n\nBenchmark complete.\n")
	fmt.Printf("  Run ID: %d\n", result.RunID)
	fmt.Printf("  Version: %s", result.BenchmarkVersion)
	if result.IsDraft {
		fmt.Printf(" (draft)")
	}
	fmt.Println()
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
	fmt.Printf("  Questions: %d", result.TotalQuestions)
	if result.SkippedOnResume > 0 {
		fmt.Printf(" (%d answered before resume)", result.SkippedOnResume)
	}
	fmt.Println()

	fmt.Printf("\n  %-6s %-9s %-12s %-8s %-8s %s\n",
		"Tier", "Accepted", "Compromised", "Refused", "Score", "Weighted")
	for tier := 1; tier <= 3; tier++ {
		tally := result.Tallies[tier]
		raw := result.TierScores[tier]
		weight := result.Weights.ForTier(tier)
		fmt.Printf("  %-6d %-9d %-12d %-8d %-8.1f %.1f\n",
			tier, tally.Accepted, tally.Compromised, tally.Refused, raw, raw*weight)
	}
	fmt.Printf("\n  Final score: %.1f\n", result.Score)
}

func writeExport(st *store.Store, runID int64, path string) error {
	doc, err := export.Build(st, runID, rootCmd.Version)
	if err != nil {
		return fmt.Errorf("failed to build export: %w", err)
	}
	// Validation is advisory; the document is written either way.
	if findings := export.Validate(doc); len(findings) > 0 {
		fmt.Fprintln(os.Stderr, "Export validation findings:")
		for _, f := range findings {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
	}
	data, err := doc.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
