// Package preflight provides system validation checks run before the
// indexing engine starts, and on demand via the doctor command.
//
// The package validates:
//   - Disk space availability (minimum 100MB)
//   - Memory availability (minimum 1GB)
//   - Write permissions in the data directory
//   - File descriptor limits (minimum 1024)
//   - Embedder reachability and OCR binary presence
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, dataDir, embedder, extractor)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
