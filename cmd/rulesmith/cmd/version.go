package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/pkg/version"
)

// versionInfo is the --json payload: build info plus the catalog in use.
type versionInfo struct {
	version.BuildInfo
	CatalogVersion string `json:"catalog_version,omitempty"`
	CatalogPath    string `json:"catalog_path,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	var shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the rulesmith and catalog versions",
		Long: `Print the rulesmith build (version, commit, build date, Go version) and the
version of the rule catalog it would synthesize from. The catalog line is
omitted when the catalog cannot be loaded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if shortOutput {
				_, err := fmt.Fprintln(out, version.Short())
				return err
			}

			info := versionInfo{BuildInfo: version.GetInfo()}
			cfg := loadConfigOrDefault()
			if cat, err := catalog.Load(cmd.Context(), cfg.Catalog.Path); err == nil {
				info.CatalogVersion = cat.Version()
				info.CatalogPath = cfg.Catalog.Path
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			if _, err := fmt.Fprintln(out, version.String()); err != nil {
				return err
			}
			if info.CatalogVersion != "" {
				_, err := fmt.Fprintf(out, "catalog %s (%s)\n", info.CatalogVersion, info.CatalogPath)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}
