package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/region"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not configured", rserrors.New(rserrors.ErrCodeNotConfigured, "not configured", nil), ErrCodeNotConfigured},
		{"marker error through a path wrap", fmt.Errorf("CLAUDE.md: %w", &region.MarkerError{Line: 3, Label: "RULES", Reason: "unterminated"}), ErrCodeMalformedTarget},
		{"unknown id", rserrors.New(rserrors.ErrCodeUnknownID, "no such rule", nil), ErrCodeUnknownID},
		{"malformed record", rserrors.MalformedRecord("principles/x.md", "bad weight", nil), ErrCodeCatalogInvalid},
		{"invalid input", rserrors.ValidationError("bad answer", nil), ErrCodeInvalidParams},
		{"io error", rserrors.IOError("disk", errors.New("full")), ErrCodeInternalError},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound},
		{"already mapped", NewInvalidParamsError("x"), ErrCodeInvalidParams},
		{"anything else", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := rserrors.New(rserrors.ErrCodeNotConfigured, "/p is not configured", nil).
		WithSuggestion("Run `rulesmith init` first")

	got := MapError(err)

	assert.Equal(t, "/p is not configured Run `rulesmith init` first", got.Message)
	assert.Contains(t, got.Error(), "MCP error -32001")
}
