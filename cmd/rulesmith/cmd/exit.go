package cmd

import (
	"errors"
	"fmt"
	"io"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
)

// Process exit codes.
const (
	ExitOK              = 0
	ExitCancelled       = 1
	ExitPartial         = 2
	ExitMalformedTarget = 3
	ExitFatal           = 4
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, prefs.ErrCancelled) {
		return ExitCancelled
	}
	switch rserrors.GetCode(err) {
	case rserrors.ErrCodeInconsistentState, rserrors.ErrCodeDestDiverged, rserrors.ErrCodePartialFailure:
		return ExitPartial
	case rserrors.ErrCodeMalformedMarker:
		return ExitMalformedTarget
	default:
		return ExitFatal
	}
}

// PrintError writes err for a terminal. Cancellation is not an error and
// gets a single line.
func PrintError(w io.Writer, err error) {
	if errors.Is(err, prefs.ErrCancelled) {
		_, _ = fmt.Fprintln(w, "Cancelled; nothing was written.")
		return
	}
	_, _ = fmt.Fprint(w, rserrors.FormatForCLI(err))
}
