package errors

import (
	"errors"
	"fmt"
)

// EduError is the structured error type for edumate.
// It carries a stable code plus enough context for logging and CLI display.
type EduError struct {
	// Code is the unique error code (e.g., "ERR_401_EXTRACTION_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrExtraction        = &EduError{Code: ErrCodeExtractionFailed}
	ErrUnsupportedFormat = &EduError{Code: ErrCodeUnsupportedFormat}
	ErrEmbedding         = &EduError{Code: ErrCodeEmbeddingFailed}
	ErrStorage           = &EduError{Code: ErrCodeStorage}
	ErrCorruptIndex      = &EduError{Code: ErrCodeCorruptIndex}
	ErrConfig            = &EduError{Code: ErrCodeConfigInvalid}
)

// Error implements the error interface.
func (e *EduError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EduError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an EduError of the same kind.
// Storage codes all match ErrStorage and chunk parameter errors match ErrConfig,
// so callers can branch on the taxonomy without knowing every code.
func (e *EduError) Is(target error) bool {
	t, ok := target.(*EduError)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	switch t.Code {
	case ErrCodeStorage:
		return e.Category == CategoryStorage && e.Code != ErrCodeStoreLocked
	case ErrCodeConfigInvalid:
		return e.Category == CategoryConfig
	case ErrCodeEmbeddingFailed:
		return e.Category == CategoryEmbedding
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *EduError) WithDetail(key, value string) *EduError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *EduError) WithSuggestion(suggestion string) *EduError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EduError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *EduError {
	return &EduError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EduError from an existing error.
func Wrap(code string, err error) *EduError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates an invalid-configuration error.
func ConfigError(message string, cause error) *EduError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ExtractionError reports a source file that yielded no usable text.
func ExtractionError(path string, cause error) *EduError {
	return New(ErrCodeExtractionFailed, fmt.Sprintf("no usable text extracted from %s", path), cause).
		WithDetail("path", path)
}

// UnsupportedFormatError reports a file type no extractor handles.
func UnsupportedFormatError(path, ext string) *EduError {
	return New(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported document format %q", ext), nil).
		WithDetail("path", path)
}

// EmbeddingError wraps an embedding provider failure.
func EmbeddingError(message string, cause error) *EduError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// StorageError wraps a persistence failure.
func StorageError(message string, cause error) *EduError {
	return New(ErrCodeStorage, message, cause)
}

// CorruptIndexError reports unreadable or inconsistent persisted artifacts.
func CorruptIndexError(message string, cause error) *EduError {
	return New(ErrCodeCorruptIndex, message, cause).
		WithSuggestion("run 'edumate clear' then 'edumate scan' to rebuild the store")
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ee *EduError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ee *EduError
	if errors.As(err, &ee) {
		return ee.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an EduError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ee *EduError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// GetSuggestion returns the user-facing suggestion, if any.
func GetSuggestion(err error) string {
	var ee *EduError
	if errors.As(err, &ee) {
		return ee.Suggestion
	}
	return ""
}
