package errors

import (
	stderrors "errors"
	"fmt"
)

// RuleError is the structured error type for rulesmith.
// It carries enough context to log it, render it on the CLI and map it to an exit code.
type RuleError struct {
	// Code is the unique error code (e.g., "ERR_402_MALFORMED_MARKER").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Input, etc.).
	Category Category

	// Severity is the error severity level.
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

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RuleError) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is works against the sentinel-like values below.
func (e *RuleError) Is(target error) bool {
	if t, ok := target.(*RuleError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RuleError) WithDetail(key, value string) *RuleError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *RuleError) WithSuggestion(suggestion string) *RuleError {
	e.Suggestion = suggestion
	return e
}

// New creates a new RuleError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RuleError {
	return &RuleError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RuleError from an existing error.
func Wrap(code string, err error) *RuleError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RuleError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a write-related error.
func IOError(message string, cause error) *RuleError {
	return New(ErrCodeWriteFailed, message, cause)
}

// MalformedRecord reports a catalog record that cannot be parsed or validated.
func MalformedRecord(path, reason string, cause error) *RuleError {
	return New(ErrCodeMalformedRecord, fmt.Sprintf("malformed catalog record %s: %s", path, reason), cause).
		WithDetail("path", path).
		WithSuggestion("Fix the record header or remove the file from the catalog")
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *RuleError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RuleError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first RuleError in err's chain.
func As(err error) (*RuleError, bool) {
	var re *RuleError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if re, ok := As(err); ok {
		return re.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if re, ok := As(err); ok {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a RuleError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if re, ok := As(err); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RuleError anywhere in the chain.
func GetCategory(err error) Category {
	if re, ok := As(err); ok {
		return re.Category
	}
	return ""
}
