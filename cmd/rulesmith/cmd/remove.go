package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/engine"
)

func newRemoveCmd() *cobra.Command {
	var (
		flags reportFlags
		strip bool
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Unlink distributed artifacts and forget the project",
		Long: `Remove every artifact rulesmith linked into the project and delete the
project's registry record. Files edited since they were linked are left in
place and reported.

The guidance file is kept as is unless --strip is given, in which case the
managed regions are removed and the user's own text is preserved. A file
left with nothing but rulesmith content is deleted.`,
		Example: `  # Unlink artifacts, keep the guidance file
  rulesmith remove

  # Also remove the managed regions
  rulesmith remove --strip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := e.engine.Remove(cmd.Context(), e.root, engine.RemoveOptions{
				Strip:  strip,
				DryRun: flags.dryRun,
			})
			return finishRun(cmd, flags, r, err)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&strip, "strip", false, "Also remove the managed regions from the guidance file")

	return cmd
}
