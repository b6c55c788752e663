package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seiforesti/govflow/internal/core"
	"github.com/seiforesti/govflow/internal/engine"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file>",
	Short: "Execute a workflow",
	Long: `Validate, plan, and execute a workflow.

Steps dispatch to registered handlers. Step types without a handler fail
with STEP_NOT_IMPLEMENTED; use --simulate to run every step against a
built-in handler that sleeps briefly and echoes its config, which is
useful for exercising a workflow's structure before handlers exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runSimulate bool
	runTimeout  time.Duration
	runOutput   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Run steps against built-in simulation handlers")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall execution timeout (overrides the workflow file)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "text", "Output format (text, json)")
}

func runRun(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nreceived interrupt, stopping...")
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	m, def, err := loadWorkflow(args[0])
	if err != nil {
		return err
	}
	ec, err := executionContext(m, cfg)
	if err != nil {
		return err
	}
	if runTimeout > 0 {
		ec.Timeout = runTimeout
	}

	registry := engine.NewHandlerRegistry()
	if runSimulate {
		registerSimulationHandlers(registry)
	}

	executor := engine.NewExecutor(registry, logger).WithPlanner(newPlanner(cfg))
	if !cfg.Engine.ResourceSampling {
		executor = executor.WithSampler(engine.NopSampler{})
	}

	exec, execErr := executor.Execute(ctx, def, ec)

	if w := reportWriter(); w != nil {
		if p, err := w.WriteExecution(exec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: writing report: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "report written to %s\n", p)
		}
	}

	if runOutput == "json" {
		if err := printJSON(exec); err != nil {
			return err
		}
	} else {
		printExecution(exec, executor.Collector())
	}

	return execErr
}

func printExecution(exec *core.WorkflowExecution, collector *engine.MetricsCollector) {
	fmt.Printf("Execution %s (workflow %s): %s\n", exec.ID, exec.WorkflowID, exec.Status)
	fmt.Printf("  duration: %s  batches: %d  completed: %d  failed: %d  retries: %d\n",
		exec.Duration().Round(time.Millisecond),
		exec.Metrics.BatchesRun,
		exec.Metrics.StepsCompleted,
		exec.Metrics.StepsFailed,
		exec.Metrics.RetriesTotal,
	)
	if exec.Error != "" {
		fmt.Printf("  error: %s\n", exec.Error)
	}
	for _, rec := range collector.AllStepMetrics() {
		status := "ok"
		if !rec.Success {
			status = "failed: " + rec.ErrorMsg
		}
		fmt.Printf("  step %s (%s): %s in %s", rec.StepID, rec.Type, status, rec.Duration.Round(time.Millisecond))
		if rec.Retries > 0 {
			fmt.Printf(" after %d retries", rec.Retries)
		}
		fmt.Println()
	}
}

// registerSimulationHandlers installs a handler for every known step type
// that sleeps a short randomized interval and echoes the step config.
func registerSimulationHandlers(registry *engine.HandlerRegistry) {
	for _, t := range core.StepTypes() {
		// Register only fails on unknown types or nil handlers.
		_ = registry.Register(t, simulateStep)
	}
}

func simulateStep(ctx context.Context, step *core.WorkflowStep, inputs map[string]any, _ *core.ExecutionContext, log *engine.StepLogger) (map[string]any, error) {
	delay := time.Duration(50+rand.Intn(150)) * time.Millisecond
	log.Infof("simulating %s step for %s", step.Type, delay)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string]any{
		"simulated": true,
		"step_type": string(step.Type),
		"config":    step.Config,
		"inputs":    len(inputs),
	}, nil
}
