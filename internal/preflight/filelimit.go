package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the descriptor limit floor. The engine holds
// the status file, SQLite databases, index snapshots, and every upload
// being extracted open at once under concurrent ingestion.
const MinFileDescriptors = 1024

// CheckFileDescriptors verifies the soft RLIMIT_NOFILE is high enough
// for concurrent document ingestion.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusFail
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}

	result.Status = StatusPass
	return result
}
