package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/seiforesti/govflow/internal/core"
	"github.com/seiforesti/govflow/internal/engine"
	"github.com/seiforesti/govflow/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Validate a workflow definition",
	Long: `Validate a workflow definition without executing it.

Checks structure (IDs, names, step types), dependencies (missing
references, cycles), and per-step configuration, and reports complexity
and performance estimates alongside optimization suggestions.

Exit code is non-zero when the workflow has critical errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	validateOutput string
	validateWatch  bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "text", "Output format (text, json)")
	validateCmd.Flags().BoolVarP(&validateWatch, "watch", "w", false, "Re-validate whenever the file changes")
}

func runValidate(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	validator := engine.NewValidator(newPlanner(cfg))
	path := args[0]

	if !validateWatch {
		return validateOnce(validator, path)
	}
	return watchValidate(validator, logger, path)
}

// validateOnce validates the file and prints the report. A workflow with
// critical errors yields a non-nil error so the process exits non-zero.
func validateOnce(validator *engine.Validator, path string) error {
	_, def, err := loadWorkflow(path)
	if err != nil {
		return err
	}

	rep := validator.Validate(def)

	if w := reportWriter(); w != nil {
		if p, err := w.WriteValidation(def.ID, rep); err != nil {
			fmt.Fprintf(os.Stderr, "warning: writing report: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "report written to %s\n", p)
		}
	}

	if validateOutput == "json" {
		if err := printJSON(rep); err != nil {
			return err
		}
	} else {
		printValidationReport(def, rep)
	}

	if !rep.Valid {
		return fmt.Errorf("workflow %s has %d critical error(s)", def.ID, len(rep.CriticalErrors()))
	}
	return nil
}

// watchValidate re-validates the file on every write until interrupted.
func watchValidate(validator *engine.Validator, logger *logging.Logger, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save and
	// the watch on the old inode would go stale.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := validateOnce(validator, path); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Fprintf(os.Stderr, "watching %s for changes...\n", path)

	target := filepath.Clean(path)
	var debounce <-chan time.Time
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Editors fire bursts of events per save; coalesce them.
			debounce = time.After(200 * time.Millisecond)
		case <-debounce:
			debounce = nil
			fmt.Fprintf(os.Stderr, "\n%s changed, re-validating\n", path)
			if err := validateOnce(validator, path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nstopping watch")
			return nil
		}
	}
}

func printValidationReport(def *core.WorkflowDefinition, rep *core.ValidationReport) {
	status := "VALID"
	if !rep.Valid {
		status = "INVALID"
	}
	fmt.Printf("Workflow %s (%s): %s\n", def.ID, def.Name, status)
	fmt.Printf("  steps: %d  cyclomatic complexity: %d  nesting depth: %d\n",
		rep.Complexity.StepCount, rep.Complexity.CyclomaticComplexity, rep.Complexity.NestingDepth)
	fmt.Printf("  estimated: %.0fs sequential, %s planned (speedup %.2fx)\n",
		rep.Performance.Parallelization.SequentialSeconds,
		rep.Performance.EstimatedDuration,
		rep.Performance.Parallelization.SpeedupEstimateX)

	for _, e := range rep.Errors {
		loc := ""
		if e.StepID != "" {
			loc = fmt.Sprintf(" [%s]", e.StepID)
		}
		fmt.Printf("  %s %s%s: %s\n", e.Severity, e.Code, loc, e.Message)
		if e.SuggestedFix != "" {
			fmt.Printf("    fix: %s\n", e.SuggestedFix)
		}
	}
	for _, w := range rep.Warnings {
		fmt.Printf("  warning %s [%s]: %s\n", w.Code, w.StepID, w.Message)
	}
	for _, s := range rep.Suggestions {
		fmt.Printf("  suggestion (%s, ~%.0f%% improvement): %s\n", s.Type, s.EstimatedImprovement, s.Description)
	}
}
