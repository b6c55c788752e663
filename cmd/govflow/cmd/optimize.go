package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seiforesti/govflow/internal/engine"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <workflow-file>",
	Short: "Analyze a workflow for optimization opportunities",
	Long: `Analyze a workflow definition and report optimization strategies.

The analysis is advisory: the workflow file is never modified. Improvement
percentages are derived from planner estimates; dimensions the planner
cannot quantify surface as recommendations without numbers.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

var (
	optPerformance bool
	optCost        bool
	optReliability bool
	optResources   bool
	optOutput      string
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().BoolVar(&optPerformance, "performance", true, "Analyze parallelization opportunities")
	optimizeCmd.Flags().BoolVar(&optCost, "cost", true, "Analyze redundant work (duplicate scan targets)")
	optimizeCmd.Flags().BoolVar(&optReliability, "reliability", true, "Analyze retry coverage")
	optimizeCmd.Flags().BoolVar(&optResources, "resources", true, "Analyze resource allocation")
	optimizeCmd.Flags().StringVarP(&optOutput, "output", "o", "text", "Output format (text, json)")
}

func runOptimize(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, def, err := loadWorkflow(args[0])
	if err != nil {
		return err
	}

	goals := engine.OptimizationGoals{
		Performance:        optPerformance,
		Cost:               optCost,
		Reliability:        optReliability,
		ResourceEfficiency: optResources,
	}

	optimizer := engine.NewOptimizer(newPlanner(cfg))
	result, err := optimizer.Optimize(def, goals)
	if err != nil {
		return err
	}

	if w := reportWriter(); w != nil {
		if p, err := w.WriteOptimization(result); err != nil {
			fmt.Printf("warning: writing report: %v\n", err)
		} else {
			fmt.Printf("report written to %s\n", p)
		}
	}

	if optOutput == "json" {
		return printJSON(result)
	}

	fmt.Printf("Workflow %s: %d strategies applied\n", result.WorkflowID, len(result.Applied))
	for _, s := range result.Applied {
		fmt.Printf("  %s: %s", s.Type, s.Description)
		if s.EstimatedImprovement > 0 {
			fmt.Printf(" (~%.0f%% improvement)", s.EstimatedImprovement)
		}
		fmt.Println()
	}
	imp := result.Improvements
	if imp.PerformanceGainPct > 0 {
		fmt.Printf("  projected performance gain: %.1f%%\n", imp.PerformanceGainPct)
	}
	for _, r := range result.Recommendations {
		fmt.Printf("  recommendation: %s\n", r)
	}
	return nil
}
