// Package app sequences the pipeline stages and reports their outcome.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"lumen/domain/stage"
	"lumen/internal/config"
	"lumen/internal/errors"
)

var (
	runningColor = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	pendingColor = color.New(color.FgYellow)
)

// Runner executes a stage plan one stage at a time
type Runner struct {
	executor Executor
	policy   config.FailurePolicy
	out      io.Writer
	logger   *zap.Logger
}

// NewRunner creates a runner
func NewRunner(executor Executor, policy config.FailurePolicy, out io.Writer, logger *zap.Logger) *Runner {
	return &Runner{executor: executor, policy: policy, out: out, logger: logger}
}

// Run executes the plan in order. Under the halt policy the first failure stops the
// run and the remaining stages stay PENDING; under continue every stage is attempted.
// The returned error covers only an invalid plan; stage failures are in the result.
func (r *Runner) Run(ctx context.Context, plan *stage.StagePlan) (*stage.PipelineResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	result := stage.NewPipelineResult(uuid.NewString(), plan)
	log := r.logger.With(zap.String("run_id", result.RunID))
	log.Info("pipeline started", zap.Int("stages", len(plan.Stages)), zap.String("policy", string(r.policy)))

	for i, name := range plan.Stages {
		if ctx.Err() != nil {
			log.Warn("pipeline cancelled", zap.String("next_stage", string(name)))
			break
		}

		if err := result.Transition(i, stage.StateRunning); err != nil {
			return nil, errors.WithCode(errors.CodeInternalError, err)
		}
		runningColor.Fprintf(r.out, "[%d/%d] Running %s: %s\n", i+1, len(plan.Stages), name, stage.Descriptions[name])

		res := &result.Results[i]
		res.StartedAt = time.Now()
		output, err := r.executor.Execute(ctx, name)
		res.Duration = time.Since(res.StartedAt)
		res.Output = output
		if output != "" {
			fmt.Fprint(r.out, indent(output))
		}

		if err != nil {
			res.Error = err.Error()
			if terr := result.Transition(i, stage.StateFailed); terr != nil {
				return nil, errors.WithCode(errors.CodeInternalError, terr)
			}
			errorColor.Fprintf(r.out, "FAILED %s (%s): %v\n", name, res.Duration.Round(time.Millisecond), err)
			log.Error("stage failed", zap.String("stage", string(name)), zap.Duration("took", res.Duration), zap.Error(err))

			if r.policy == config.PolicyHalt {
				pendingColor.Fprintf(r.out, "Halting: %d stage(s) not run.\n", len(plan.Stages)-i-1)
				break
			}
			continue
		}

		if terr := result.Transition(i, stage.StateSucceeded); terr != nil {
			return nil, errors.WithCode(errors.CodeInternalError, terr)
		}
		successColor.Fprintf(r.out, "OK %s (%s)\n", name, res.Duration.Round(time.Millisecond))
		log.Info("stage succeeded", zap.String("stage", string(name)), zap.Duration("took", res.Duration))
	}

	log.Info("pipeline finished",
		zap.Int("succeeded", result.Overall.Successful),
		zap.Int("failed", result.Overall.Failed),
		zap.Int("pending", result.Overall.Pending),
		zap.Duration("took", result.Overall.TotalDuration))
	return result, nil
}

// PrintSummary renders one row per stage with its final state
func PrintSummary(w io.Writer, result *stage.PipelineResult) {
	fmt.Fprintf(w, "\nRun %s\n", result.RunID)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Stage", "State", "Duration", "Error"})
	for _, res := range result.Results {
		duration := ""
		if res.State.Terminal() {
			duration = res.Duration.Round(time.Millisecond).String()
		}
		table.Append([]string{string(res.StageName), string(res.State), duration, firstLine(res.Error)})
	}
	table.Render()

	s := result.Overall
	line := fmt.Sprintf("%d succeeded, %d failed, %d pending", s.Successful, s.Failed, s.Pending)
	if result.Success() {
		successColor.Fprintln(w, line)
		return
	}
	errorColor.Fprintln(w, line)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
