package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/output"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the rule catalog",
		Long: `Inspect the catalog configured by catalog.path: list its rules and
artifacts, show a single record, or search titles and bodies.`,
		Example: `  # List security rules
  rulesmith catalog list --category security

  # List skills only
  rulesmith catalog list --kind skill

  # Show one record
  rulesmith catalog show sec-001

  # Full-text search
  rulesmith catalog search "sql injection"`,
	}

	cmd.AddCommand(newCatalogListCmd())
	cmd.AddCommand(newCatalogShowCmd())
	cmd.AddCommand(newCatalogSearchCmd())

	return cmd
}

// loadCatalog loads the configured catalog.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	e, err := openEnv()
	if err != nil {
		return nil, err
	}
	defer e.Close()
	return e.engine.Catalog(cmd.Context())
}

func newCatalogListCmd() *cobra.Command {
	var (
		kind       string
		category   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules and artifacts",
		Long: `List catalog records as a table. --kind selects rules or one artifact
kind; --category keeps rules in that category and artifacts tagged with it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != "" && kind != "rule" && !catalog.Kind(kind).Valid() {
				return rserrors.ValidationError(fmt.Sprintf("unknown kind %q (want rule, command, skill or agent)", kind), nil)
			}
			if category != "" && !catalog.Category(category).Valid() {
				return rserrors.ValidationError(fmt.Sprintf("unknown category %q", category), nil)
			}

			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			rows := catalogRows(cat, kind, catalog.Category(category))

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			out := output.New(cmd.OutOrStdout()).WithColor(!noColor)
			if len(rows) == 0 {
				out.Status("📭", "No matching records")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{r.ID, r.Kind, r.Category, r.Weight, r.Title})
			}
			out.Table([]string{"ID", "KIND", "CATEGORY", "WEIGHT", "TITLE"}, table)
			out.Newline()
			out.Statusf("📚", "catalog %s, %d records", cat.Version(), len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only records of this kind: rule, command, skill, agent")
	cmd.Flags().StringVar(&category, "category", "", "Only records in this category")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// catalogRow is one line of `catalog list`.
type catalogRow struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Category string `json:"category,omitempty"`
	Weight   string `json:"weight,omitempty"`
	Title    string `json:"title"`
}

func catalogRows(cat *catalog.Catalog, kind string, category catalog.Category) []catalogRow {
	var rows []catalogRow
	if kind == "" || kind == "rule" {
		for _, r := range cat.Rules() {
			if category != "" && r.Category != category {
				continue
			}
			weight := strconv.Itoa(r.Weight)
			if r.Baseline {
				weight += "*"
			}
			rows = append(rows, catalogRow{
				ID:       r.ID,
				Kind:     "rule",
				Category: string(r.Category),
				Weight:   weight,
				Title:    r.Title,
			})
		}
	}
	if kind == "rule" {
		return rows
	}
	for _, a := range cat.Artifacts() {
		if kind != "" && string(a.Kind) != kind {
			continue
		}
		if category != "" && !slices.Contains(a.Categories, category) {
			continue
		}
		cats := make([]string, 0, len(a.Categories))
		for _, c := range a.Categories {
			cats = append(cats, string(c))
		}
		rows = append(rows, catalogRow{
			ID:       a.ID,
			Kind:     string(a.Kind),
			Category: strings.Join(cats, ","),
			Title:    a.Title,
		})
	}
	return rows
}

func newCatalogShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one rule or artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			id := args[0]
			var record any
			pairs := [][2]string{}
			body := ""
			if r, ok := cat.Rule(id); ok {
				record = r
				pairs = append(pairs,
					[2]string{"id", r.ID},
					[2]string{"title", r.Title},
					[2]string{"category", string(r.Category)},
					[2]string{"severity", string(r.Severity)},
					[2]string{"weight", strconv.Itoa(r.Weight)},
					[2]string{"baseline", strconv.FormatBool(r.Baseline)},
					[2]string{"languages", orAll(r.Applicability.Languages)},
					[2]string{"project types", orAll(r.Applicability.ProjectTypes)},
					[2]string{"path", r.Path},
				)
				if r.Rationale != "" {
					pairs = append(pairs, [2]string{"rationale", r.Rationale})
				}
				body = r.Body
			} else if a, ok := cat.Artifact(id); ok {
				record = a
				cats := make([]string, 0, len(a.Categories))
				for _, c := range a.Categories {
					cats = append(cats, string(c))
				}
				pairs = append(pairs,
					[2]string{"id", a.ID},
					[2]string{"kind", string(a.Kind)},
					[2]string{"title", a.Title},
					[2]string{"categories", orAll(cats)},
					[2]string{"always", strconv.FormatBool(a.Always)},
					[2]string{"languages", orAll(a.Applicability.Languages)},
					[2]string{"project types", orAll(a.Applicability.ProjectTypes)},
					[2]string{"path", a.Path},
				)
				if a.Description != "" {
					pairs = append(pairs, [2]string{"description", a.Description})
				}
				body = a.Body
			} else {
				return rserrors.New(rserrors.ErrCodeUnknownID, fmt.Sprintf("no rule or artifact with id %q", id), nil).
					WithSuggestion("Run 'rulesmith catalog list' to see available ids")
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			}

			out := output.New(cmd.OutOrStdout()).WithColor(!noColor)
			out.KeyValue(pairs)
			if strings.TrimSpace(body) != "" {
				out.Code(body)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func orAll(values []string) string {
	if len(values) == 0 {
		return catalog.All
	}
	return strings.Join(values, ", ")
}

func newCatalogSearchCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			idx, err := catalog.NewIndex(cat)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			hits, err := idx.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}

			out := output.New(cmd.OutOrStdout()).WithColor(!noColor)
			if len(hits) == 0 {
				out.Status("📭", "No matches")
				return nil
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.ID, h.Kind, fmt.Sprintf("%.2f", h.Score), h.Title})
			}
			out.Table([]string{"ID", "KIND", "SCORE", "TITLE"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
