// Package errors provides structured error handling for docindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, local stores)
//   - 3XX: Network errors (embedding service, remote stores)
//   - 4XX: Validation errors
//   - 5XX: Internal errors (pipeline stages)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound     = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid      = "ERR_102_CONFIG_INVALID"
	ErrCodeDataDirUnavailable = "ERR_103_DATA_DIR_UNAVAILABLE"

	// IO errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileEmpty     = "ERR_202_FILE_EMPTY"
	ErrCodeFileTooLarge  = "ERR_203_FILE_TOO_LARGE"
	ErrCodeStatusCorrupt = "ERR_204_STATUS_CORRUPT"
	ErrCodeStoreCorrupt  = "ERR_205_STORE_CORRUPT"
	ErrCodeStoreIO       = "ERR_206_STORE_IO"

	// Network errors (300-399)
	ErrCodeEmbedTimeout     = "ERR_301_EMBED_TIMEOUT"
	ErrCodeEmbedUnavailable = "ERR_302_EMBED_UNAVAILABLE"
	ErrCodeStoreUnavailable = "ERR_303_STORE_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeUnsupportedFormat = "ERR_403_UNSUPPORTED_FORMAT"
	ErrCodeProtectedDocument = "ERR_404_PROTECTED_DOCUMENT"
	ErrCodeInvalidPath       = "ERR_405_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeNoTextExtracted = "ERR_504_NO_TEXT_EXTRACTED"
	ErrCodeNoChunks        = "ERR_505_NO_CHUNKS"
	ErrCodeIndexFailed     = "ERR_506_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_FILE_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors
	if code == ErrCodeDataDirUnavailable {
		return SeverityFatal
	}

	// Retryable errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// These map to transient ingestion failures: network hiccups, store I/O,
// and chunking oddities that a later attempt may resolve. Codes for empty,
// unreadable, protected, or unsupported files are never retryable.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedTimeout, ErrCodeEmbedUnavailable, ErrCodeStoreUnavailable,
		ErrCodeStoreIO, ErrCodeEmbeddingFailed, ErrCodeNoChunks, ErrCodeIndexFailed:
		return true
	default:
		return false
	}
}
