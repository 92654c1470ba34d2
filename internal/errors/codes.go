// Package errors provides the coded error type used across edumate.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and file errors
//   - 3XX: Embedding provider errors
//   - 4XX: Document and input errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates invalid configuration or parameters.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates persisted-state and disk errors.
	CategoryStorage Category = "STORAGE"
	// CategoryEmbedding indicates embedding provider failures.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryDocument indicates source document problems.
	CategoryDocument Category = "DOCUMENT"
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
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeChunkParams    = "ERR_102_CHUNK_PARAMS"
	ErrCodeConfigNotFound = "ERR_103_CONFIG_NOT_FOUND"

	// Storage errors (200-299)
	ErrCodeStorage           = "ERR_201_STORAGE"
	ErrCodeCorruptIndex      = "ERR_202_CORRUPT_INDEX"
	ErrCodeDimensionMismatch = "ERR_203_DIMENSION_MISMATCH"
	ErrCodeStoreLocked       = "ERR_204_STORE_LOCKED"

	// Embedding errors (300-399)
	ErrCodeEmbeddingFailed      = "ERR_301_EMBEDDING_FAILED"
	ErrCodeEmbeddingUnavailable = "ERR_302_EMBEDDING_UNAVAILABLE"

	// Document errors (400-499)
	ErrCodeExtractionFailed  = "ERR_401_EXTRACTION_FAILED"
	ErrCodeUnsupportedFormat = "ERR_402_UNSUPPORTED_FORMAT"
	ErrCodeInvalidMetadata   = "ERR_403_INVALID_METADATA"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryEmbedding
	case '4':
		return CategoryDocument
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeChunkParams, ErrCodeConfigInvalid, ErrCodeDimensionMismatch:
		return SeverityFatal
	case ErrCodeExtractionFailed, ErrCodeUnsupportedFormat, ErrCodeCorruptIndex:
		// Skipped file or rebuilt store; the run continues.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeEmbeddingUnavailable, ErrCodeStoreLocked:
		return true
	default:
		return false
	}
}
