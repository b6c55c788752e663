package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <workflow-file>",
	Short: "Show the execution plan for a workflow",
	Long: `Build and display the execution plan without running anything.

The plan groups steps into batches: every step in a batch depends only on
steps from earlier batches, so batch members can run in parallel. The
critical path is the dependency chain with the longest cumulative
estimated duration.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanCmd,
}

var planOutput string

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planOutput, "output", "o", "text", "Output format (text, json)")
}

func runPlanCmd(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, def, err := loadWorkflow(args[0])
	if err != nil {
		return err
	}

	plan, err := newPlanner(cfg).BuildPlan(def)
	if err != nil {
		return err
	}

	if planOutput == "json" {
		return printJSON(plan)
	}

	fmt.Printf("Workflow %s: %d steps in %d batches, estimated %s\n",
		plan.WorkflowID, plan.TotalSteps, len(plan.Batches), plan.EstimatedDuration)
	for _, batch := range plan.Batches {
		ids := make([]string, len(batch.StepIDs))
		for i, id := range batch.StepIDs {
			ids[i] = string(id)
		}
		fmt.Printf("  batch %d (%s): %s\n", batch.ID, batch.EstimatedDuration, strings.Join(ids, ", "))
	}
	crit := make([]string, len(plan.CriticalPath))
	for i, id := range plan.CriticalPath {
		crit[i] = string(id)
	}
	fmt.Printf("  critical path: %s\n", strings.Join(crit, " -> "))
	return nil
}
