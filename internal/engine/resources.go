package engine

import (
	"os"

	"github.com/seiforesti/govflow/internal/core"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceSampler measures resource consumption around step execution.
type ResourceSampler interface {
	Sample() core.ResourceUsage
}

// NewProcessSampler samples the engine's own process via gopsutil. Handlers
// run in-process, so per-step snapshots approximate what each step consumed.
// Falls back to a no-op sampler when process introspection is unavailable.
func NewProcessSampler() ResourceSampler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return NopSampler{}
	}
	return &processSampler{proc: proc}
}

type processSampler struct {
	proc *process.Process
}

func (s *processSampler) Sample() core.ResourceUsage {
	var usage core.ResourceUsage
	if cpu, err := s.proc.CPUPercent(); err == nil {
		usage.CPUPercent = cpu
	}
	if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
		usage.MemoryBytes = mem.RSS
	}
	if io, err := s.proc.IOCounters(); err == nil && io != nil {
		usage.IOOps = io.ReadCount + io.WriteCount
	}
	if conns, err := s.proc.Connections(); err == nil {
		usage.DBConnections = len(conns)
	}
	return usage
}

// NopSampler reports zero usage. Used in tests and on platforms without
// process introspection.
type NopSampler struct{}

// Sample implements ResourceSampler.
func (NopSampler) Sample() core.ResourceUsage {
	return core.ResourceUsage{}
}
