package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lumen/app"
	"lumen/domain/stage"
	"lumen/internal/config"
	"lumen/internal/errors"
	"lumen/internal/logging"
	"lumen/internal/testkit"
)

// env is the configuration and logger shared by every subcommand
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "lumen",
		Short:         "Nighttime light vs. anxiety prevalence analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return errors.WithCode(errors.CodeConfigInvalid, err)
			}
			e.cfg = cfg
			e.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		newStageCmd(e),
		newRunCmd(e),
		newStagesCmd(),
		newDemoDataCmd(e),
	)
	return rootCmd
}

func newStageCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stage [name]",
		Short: "Run a single pipeline stage",
		Long: `Run one stage reading and writing the configured paths.

Example: lumen stage anxiety`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := stage.ParseStageName(args[0])
			if err != nil {
				return errors.WithCode(errors.CodeInvalidInput, err)
			}
			registry := app.NewRegistry(e.cfg, e.logger.With(zap.String("stage", string(name))))
			if err := registry.Run(cmd.Context(), name, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("stage %s failed [%s]: %w", name, errors.GetCode(err), err)
			}
			return nil
		},
	}
}

func newRunCmd(e *env) *cobra.Command {
	var (
		clean     bool
		policy    string
		inProcess bool
		only      []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline stages in order",
		Long: `Run every stage in the fixed order, each as its own process unless --in-process is set.

The failure policy decides whether a failed stage stops the run (halt) or the remaining
stages are still attempted (continue). The exit status is non-zero if any stage failed.

Example: lumen run --clean --policy halt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("clean") {
				e.cfg.Pipeline.CleanOutputs = clean
			}
			if cmd.Flags().Changed("policy") {
				e.cfg.Pipeline.FailurePolicy = config.FailurePolicy(strings.ToLower(policy))
				if err := e.cfg.Validate(); err != nil {
					return err
				}
			}

			plan, err := planFor(only)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.cfg.Pipeline.CleanOutputs {
				fmt.Fprintln(out, "Cleaning output directories...")
				if err := app.CleanOutputs(e.cfg.OutputDirs(), e.cfg.Paths.RawDir); err != nil {
					return err
				}
			}

			var executor app.Executor
			if inProcess {
				executor = app.NewInProcessExecutor(app.NewRegistry(e.cfg, e.logger))
			} else {
				pe, err := app.NewProcessExecutor()
				if err != nil {
					return err
				}
				executor = pe
			}

			result, err := app.NewRunner(executor, e.cfg.Pipeline.FailurePolicy, out, e.logger).Run(cmd.Context(), plan)
			if err != nil {
				return err
			}
			app.PrintSummary(out, result)

			if !result.Success() {
				return fmt.Errorf("pipeline run %s incomplete: failed %v, %d pending",
					result.RunID, result.FailedStages(), result.Overall.Pending)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "Empty output directories before the first stage")
	cmd.Flags().StringVar(&policy, "policy", "", "Failure policy: continue|halt (default from FAILURE_POLICY)")
	cmd.Flags().BoolVar(&inProcess, "in-process", false, "Run stages inside this process instead of subprocesses")
	cmd.Flags().StringSliceVar(&only, "stages", nil, "Comma separated subset of stages, in execution order")

	return cmd
}

func planFor(names []string) (*stage.StagePlan, error) {
	if len(names) == 0 {
		return stage.NewStagePlan(stage.DefaultOrder), nil
	}
	stages := make([]stage.StageName, 0, len(names))
	for _, n := range names {
		name, err := stage.ParseStageName(strings.TrimSpace(n))
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
		stages = append(stages, name)
	}
	return stage.NewStagePlan(stages), nil
}

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the pipeline stages",
		// skip configuration loading
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			inDefault := make(map[stage.StageName]bool, len(stage.DefaultOrder))
			for _, name := range stage.DefaultOrder {
				inDefault[name] = true
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"#", "Stage", "Description"})
			for i, name := range stage.DefaultOrder {
				table.Append([]string{fmt.Sprint(i + 1), string(name), stage.Descriptions[name]})
			}
			for name, desc := range stage.Descriptions {
				if !inDefault[name] {
					table.Append([]string{"-", string(name), desc})
				}
			}
			table.Render()
			return nil
		},
	}
}

func newDemoDataCmd(e *env) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "demo-data",
		Short: "Write synthetic raw anxiety and nightlight files",
		Long: `Generate seeded synthetic raw inputs at the configured raw paths so the pipeline
can run offline.

Example: lumen demo-data --seed 7 && lumen run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultRawDataConfig()
			cfg.Seed = seed
			cfg.PrevalenceName = e.cfg.Dataset.PrevalenceAliases[0]

			if err := testkit.NewRawDataGenerator(cfg).WriteRaw(e.cfg.Paths); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nWrote %s\n", e.cfg.Paths.RawAnxiety, e.cfg.Paths.RawNightlight)
			e.logger.Info("demo data written", zap.Int64("seed", seed), zap.String("dir", e.cfg.Paths.RawDir))
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the generator")
	return cmd
}
