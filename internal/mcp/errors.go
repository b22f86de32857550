// Package mcp exposes rulesmith over the Model Context Protocol so an
// assistant host can inspect a project's configuration and preview a
// selection without changing anything.
package mcp

import (
	"context"
	"errors"
	"fmt"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

// Custom MCP error codes for rulesmith.
const (
	// ErrCodeNotConfigured indicates the project has no registry record.
	ErrCodeNotConfigured = -32001

	// ErrCodeMalformedTarget indicates the guidance file has broken markers.
	ErrCodeMalformedTarget = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeUnknownID indicates a catalog id that does not exist.
	ErrCodeUnknownID = -32004

	// ErrCodeCatalogInvalid indicates the catalog could not be loaded.
	ErrCodeCatalogInvalid = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	// RuleError first: a marker error wrapped with a path still carries one.
	if re, ok := rserrors.As(err); ok {
		return mapRuleError(re)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapRuleError converts a RuleError to an MCPError.
func mapRuleError(re *rserrors.RuleError) *MCPError {
	message := re.Message
	if re.Suggestion != "" {
		message = fmt.Sprintf("%s %s", re.Message, re.Suggestion)
	}

	switch re.Code {
	case rserrors.ErrCodeNotConfigured:
		return &MCPError{Code: ErrCodeNotConfigured, Message: message}
	case rserrors.ErrCodeMalformedMarker:
		return &MCPError{Code: ErrCodeMalformedTarget, Message: message}
	case rserrors.ErrCodeUnknownID:
		return &MCPError{Code: ErrCodeUnknownID, Message: message}
	case rserrors.ErrCodeCatalogInvalid, rserrors.ErrCodeMalformedRecord:
		return &MCPError{Code: ErrCodeCatalogInvalid, Message: message}
	}

	switch re.Category {
	case rserrors.CategoryInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
