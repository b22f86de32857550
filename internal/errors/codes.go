// Package errors provides structured error handling for rulesmith.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, link, lock)
//   - 4XX: Input errors (catalog records, markers, answers)
//   - 5XX: Internal errors
//   - 6XX: Consistency errors (registry vs. filesystem)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, link and lock errors.
	CategoryIO Category = "IO"
	// CategoryInput indicates malformed catalog records, target files or answers.
	CategoryInput Category = "INPUT"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryConsistency indicates divergence between recorded and actual state.
	CategoryConsistency Category = "CONSISTENCY"
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
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeWriteFailed    = "ERR_203_WRITE_FAILED"
	ErrCodeLinkFailed     = "ERR_204_LINK_FAILED"
	ErrCodeLocked         = "ERR_205_LOCKED"

	// Input errors (400-499)
	ErrCodeMalformedRecord = "ERR_401_MALFORMED_RECORD"
	ErrCodeMalformedMarker = "ERR_402_MALFORMED_MARKER"
	ErrCodeInvalidInput    = "ERR_403_INVALID_INPUT"
	ErrCodeCatalogInvalid  = "ERR_404_CATALOG_INVALID"
	ErrCodeUnknownID       = "ERR_405_UNKNOWN_ID"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"

	// Consistency errors (600-699)
	ErrCodeInconsistentState = "ERR_601_INCONSISTENT_STATE"
	ErrCodeDestDiverged      = "ERR_602_DEST_DIVERGED"
	ErrCodePartialFailure    = "ERR_603_PARTIAL_FAILURE"
	ErrCodeNotConfigured     = "ERR_604_NOT_CONFIGURED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryInput
	case '6':
		return CategoryConsistency
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeMalformedRecord, ErrCodeMalformedMarker, ErrCodeCatalogInvalid:
		return SeverityFatal
	}

	if categoryFromCode(code) == CategoryConsistency {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	return code == ErrCodeLocked
}
