package engine

import (
	"reflect"
	"testing"

	"github.com/seiforesti/govflow/internal/core"
)

func step(id core.StepID, deps ...core.StepID) core.WorkflowStep {
	s := core.NewStep(id, string(id), core.StepTypeCustom)
	if len(deps) > 0 {
		s = s.WithDependsOn(deps...)
	}
	return *s
}

func TestBuildDependencyGraph(t *testing.T) {
	steps := []core.WorkflowStep{
		step("a"),
		step("b", "a"),
		step("c", "a", "b"),
	}

	graph := BuildDependencyGraph(steps)

	if len(graph) != 3 {
		t.Fatalf("graph size = %d, want 3", len(graph))
	}
	if len(graph["a"]) != 0 {
		t.Errorf("deps(a) = %v, want none", graph["a"])
	}
	if !reflect.DeepEqual(graph["c"], []core.StepID{"a", "b"}) {
		t.Errorf("deps(c) = %v, want [a b]", graph["c"])
	}
}

func TestBuildDependencyGraph_DanglingReference(t *testing.T) {
	steps := []core.WorkflowStep{
		step("a", "ghost"),
	}

	graph := BuildDependencyGraph(steps)

	// Unresolvable references are preserved, not dropped.
	if !reflect.DeepEqual(graph["a"], []core.StepID{"ghost"}) {
		t.Errorf("deps(a) = %v, want [ghost]", graph["a"])
	}
}

func TestDependencyGraph_Dependents(t *testing.T) {
	graph := BuildDependencyGraph([]core.WorkflowStep{
		step("a"),
		step("b", "a"),
		step("c", "a"),
	})

	reverse := graph.Dependents()

	dependents := reverse["a"]
	if len(dependents) != 2 {
		t.Fatalf("dependents(a) = %v, want 2 entries", dependents)
	}
	seen := map[core.StepID]bool{}
	for _, id := range dependents {
		seen[id] = true
	}
	if !seen["b"] || !seen["c"] {
		t.Errorf("dependents(a) = %v, want b and c", dependents)
	}
	if len(reverse["b"]) != 0 {
		t.Errorf("dependents(b) = %v, want none", reverse["b"])
	}
}

func TestDetectCycles_Acyclic(t *testing.T) {
	graph := BuildDependencyGraph([]core.WorkflowStep{
		step("a"),
		step("b", "a"),
		step("c", "b"),
	})

	if cycles := DetectCycles(graph); len(cycles) != 0 {
		t.Errorf("DetectCycles() = %v, want none", cycles)
	}
}

func TestDetectCycles_TwoStepCycle(t *testing.T) {
	graph := BuildDependencyGraph([]core.WorkflowStep{
		step("x", "y"),
		step("y", "x"),
	})

	cycles := DetectCycles(graph)
	if len(cycles) != 1 {
		t.Fatalf("DetectCycles() found %d cycles, want 1", len(cycles))
	}

	cycle := cycles[0]
	if len(cycle) != 3 {
		t.Fatalf("cycle = %v, want closed path of length 3", cycle)
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle = %v, want first == last", cycle)
	}
}

func TestDetectCycles_SelfCycle(t *testing.T) {
	graph := BuildDependencyGraph([]core.WorkflowStep{
		step("a", "a"),
	})

	cycles := DetectCycles(graph)
	if len(cycles) != 1 {
		t.Fatalf("DetectCycles() found %d cycles, want 1", len(cycles))
	}
	if !reflect.DeepEqual(cycles[0], []core.StepID{"a", "a"}) {
		t.Errorf("cycle = %v, want [a a]", cycles[0])
	}
}

func TestDetectCycles_DisjointCycles(t *testing.T) {
	graph := BuildDependencyGraph([]core.WorkflowStep{
		step("a", "b"),
		step("b", "a"),
		step("c", "d"),
		step("d", "c"),
		step("e"),
	})

	cycles := DetectCycles(graph)
	if len(cycles) != 2 {
		t.Fatalf("DetectCycles() found %d cycles, want 2", len(cycles))
	}
}

func TestDetectCycles_Deterministic(t *testing.T) {
	steps := []core.WorkflowStep{
		step("m", "n"),
		step("n", "m"),
		step("p", "q"),
		step("q", "p"),
	}

	first := DetectCycles(BuildDependencyGraph(steps))
	for i := 0; i < 10; i++ {
		again := DetectCycles(BuildDependencyGraph(steps))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("DetectCycles() not deterministic: %v vs %v", first, again)
		}
	}
}

func TestDetectCycles_IgnoresDanglingReferences(t *testing.T) {
	graph := BuildDependencyGraph([]core.WorkflowStep{
		step("a", "ghost"),
		step("b", "a"),
	})

	if cycles := DetectCycles(graph); len(cycles) != 0 {
		t.Errorf("DetectCycles() = %v, want none", cycles)
	}
}
