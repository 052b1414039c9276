package cgs

import "fmt"

// Default memory limits.
const (
	// DefaultMemoryBudget is the default budget (256 MB).
	DefaultMemoryBudget = 256 * 1024 * 1024

	// MinMemoryBudget is the smallest budget New accepts (16 MB).
	// Smaller values fall back to DefaultMemoryBudget.
	MinMemoryBudget = 16 * 1024 * 1024
)

// MemoryStats contains memory usage statistics for a System.
type MemoryStats struct {
	// Budget is the memory budget in bytes.
	Budget uint64

	// CPUBytes is the size of all texture mirrors, vertex streams and index
	// lists.
	CPUBytes uint64

	// GPUBytes is the size of GPU storage created for textures, counting
	// every mip level, plus uploaded mesh buffers.
	GPUBytes uint64

	// Textures is the number of live textures.
	Textures int

	// Meshes is the number of live meshes.
	Meshes int

	// Utilization is CPUBytes as a fraction of Budget (may exceed 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB cpu, %d MB gpu, %d textures, %d meshes]",
		s.Utilization*100,
		s.CPUBytes/(1024*1024),
		s.Budget/(1024*1024),
		s.GPUBytes/(1024*1024),
		s.Textures,
		s.Meshes)
}

// MemoryStats returns current memory usage.
func (s *System) MemoryStats() MemoryStats {
	st := MemoryStats{
		Budget:   s.opts.budget,
		Textures: len(s.textures),
		Meshes:   len(s.meshes),
	}
	for _, t := range s.textures {
		st.GPUBytes += t.gpuBytes()
	}
	for _, m := range s.meshes {
		st.GPUBytes += m.gpuBytes
	}
	st.CPUBytes = s.cpuBytes
	if st.Budget > 0 {
		st.Utilization = float64(st.CPUBytes) / float64(st.Budget)
	}
	return st
}

// checkBudget warns once per crossing when CPU memory exceeds the budget.
// It reads the running total; only a crossing walks every resource for the
// full stats. Nothing is freed: deletion is always explicit.
func (s *System) checkBudget() {
	over := s.cpuBytes > s.opts.budget
	if over && !s.overBudget {
		s.logger().Warn("cgs: memory budget exceeded", "stats", s.MemoryStats().String())
	}
	s.overBudget = over
}
