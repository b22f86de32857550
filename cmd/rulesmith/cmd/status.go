package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var (
		jsonOutput bool
		history    int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the project's configuration state",
		Long: `Display what rulesmith knows about the current project without changing
anything:
  - Registry state and the stored selection
  - Managed regions found in the guidance file
  - Health of every linked artifact
  - Whether the catalog changed since the last run
  - Recent runs from the journal

A guidance file with malformed markers is reported and exits with code 3.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if history < 0 {
				return fmt.Errorf("--history must not be negative, got %d", history)
			}
			return runStatus(cmd, jsonOutput, history)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&history, "history", 5, "Number of recent runs to show")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool, history int) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	st, statusErr := e.engine.Status(cmd.Context(), e.root, history)
	if st == nil {
		return statusErr
	}

	out := cmd.OutOrStdout()
	renderer := ui.NewStatusRenderer(out, ui.NewConfig(out, ui.WithNoColor(noColor)).NoColor)
	if jsonOutput {
		if err := renderer.RenderJSON(st); err != nil {
			return err
		}
		return statusErr
	}
	if err := renderer.Render(st); err != nil {
		return err
	}
	return statusErr
}
