package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/seiforesti/govflow/internal/config"
	"github.com/seiforesti/govflow/internal/core"
	"github.com/seiforesti/govflow/internal/engine"
	"github.com/seiforesti/govflow/internal/logging"
	"github.com/seiforesti/govflow/internal/manifest"
	"github.com/seiforesti/govflow/internal/report"
)

// loadConfig loads the unified configuration. Each load gets a fresh viper
// carrying the CLI flag bindings: viper has no way to unset an explicit
// config file, so reusing the shared instance would leak one call's
// --config path into every later load.
func loadConfig() (*config.Config, error) {
	v := viper.New()
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("report_dir", flags.Lookup("report-dir"))

	loader := config.NewLoaderWithViper(v)
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// newPlanner builds a planner with any configured per-type estimates applied.
func newPlanner(cfg *config.Config) *engine.Planner {
	p := engine.NewPlanner()
	if est := cfg.Engine.TypedStepEstimates(); len(est) > 0 {
		p = p.WithEstimates(est)
	}
	return p
}

// loadWorkflow reads a workflow file and converts it to a definition.
func loadWorkflow(path string) (*manifest.Manifest, *core.WorkflowDefinition, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}
	def, err := m.Definition()
	if err != nil {
		return nil, nil, err
	}
	return m, def, nil
}

// executionContext builds the run context from the manifest, applying the
// configured retry defaults when the manifest does not set its own, and the
// configured parallelism cap when the manifest does not constrain it.
func executionContext(m *manifest.Manifest, cfg *config.Config) (*core.ExecutionContext, error) {
	ec, err := m.ExecutionContext()
	if err != nil {
		return nil, err
	}
	if !m.HasRetryPolicy() {
		ec.Retry = cfg.Retry.RetryPolicy()
	}
	if ec.Environment.Constraints.MaxParallelSteps == 0 {
		ec.Environment.Constraints.MaxParallelSteps = cfg.Engine.MaxParallelSteps
	}
	return ec, nil
}

// reportWriter returns a writer when --report-dir is set, nil otherwise.
func reportWriter() *report.Writer {
	dir := viper.GetString("report_dir")
	if dir == "" {
		return nil
	}
	return report.NewWriter(dir)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
