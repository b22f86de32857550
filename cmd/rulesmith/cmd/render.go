package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/engine"
	"github.com/Aman-CERP/rulesmith/internal/ui"
)

// reportFlags are shared by the commands that produce a run report.
type reportFlags struct {
	dryRun  bool
	json    bool
	verbose bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show what would change without writing anything")
	cmd.Flags().BoolVar(&f.json, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Show the guidance diff and every link change")
}

// finishRun prints r and returns runErr. Errors raised before the pipeline
// produced anything are returned without a report.
func finishRun(cmd *cobra.Command, f reportFlags, r *engine.Report, runErr error) error {
	if r == nil || (runErr != nil && ExitCode(runErr) != ExitPartial) {
		return runErr
	}

	renderer := ui.NewReportRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithNoColor(noColor),
		ui.WithVerbose(f.verbose)))
	if f.json {
		if err := renderer.RenderJSON(r); err != nil {
			return err
		}
		return runErr
	}
	renderer.Render(r)
	return runErr
}
