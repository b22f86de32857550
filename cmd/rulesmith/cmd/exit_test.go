package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/region"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"cancelled", prefs.ErrCancelled, ExitCancelled},
		{"wrapped cancel", fmt.Errorf("init: %w", prefs.ErrCancelled), ExitCancelled},
		{"inconsistent", rserrors.New(rserrors.ErrCodeInconsistentState, "x", nil), ExitPartial},
		{"diverged", rserrors.New(rserrors.ErrCodeDestDiverged, "x", nil), ExitPartial},
		{"partial", rserrors.New(rserrors.ErrCodePartialFailure, "x", nil), ExitPartial},
		{"malformed marker", fmt.Errorf("CLAUDE.md: %w", &region.MarkerError{Line: 3, Reason: "unterminated"}), ExitMalformedTarget},
		{"not configured", rserrors.New(rserrors.ErrCodeNotConfigured, "x", nil), ExitFatal},
		{"config", rserrors.ConfigError("bad", nil), ExitFatal},
		{"plain", errors.New("boom"), ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestPrintError(t *testing.T) {
	t.Run("cancellation is one line", func(t *testing.T) {
		var buf bytes.Buffer
		PrintError(&buf, prefs.ErrCancelled)
		assert.Equal(t, "Cancelled; nothing was written.\n", buf.String())
	})

	t.Run("rule errors carry their code", func(t *testing.T) {
		var buf bytes.Buffer
		PrintError(&buf, rserrors.New(rserrors.ErrCodeNotConfigured, "project is not configured", nil))
		assert.Contains(t, buf.String(), "project is not configured")
		assert.Contains(t, buf.String(), rserrors.ErrCodeNotConfigured)
	})
}
