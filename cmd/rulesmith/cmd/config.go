package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/rulesmith/configs"
	"github.com/Aman-CERP/rulesmith/internal/config"
	"github.com/Aman-CERP/rulesmith/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the user and project configuration files.

User configuration applies to every project on this machine: where the
catalog and rulesmith's state live, the default strictness, link strategies
and log level. Project configuration names the files rulesmith writes and
supplies profile facts the detector cannot see.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/rulesmith/config.yaml)
  3. Project config (.rulesmith.yaml)
  4. Environment variables (RULESMITH_*)`,
		Example: `  # Create user config from template
  rulesmith config init

  # Create .rulesmith.yaml in the current project
  rulesmith config init --project

  # Show effective configuration (merged from all sources)
  rulesmith config show

  # Print user config file path
  rulesmith config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from a template",
		Long: `Create the user configuration file, or with --project the project's
.rulesmith.yaml, from a commented template.

The user file is created at ~/.config/rulesmith/config.yaml
(or $XDG_CONFIG_HOME/rulesmith/config.yaml if XDG_CONFIG_HOME is set).

An existing file is left alone unless --force is given; it is then backed
up before being replaced.`,
		Example: `  # Create user config
  rulesmith config init

  # Replace an existing project config
  rulesmith config init --project --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			template := configs.UserConfigTemplate
			if project {
				root, err := projectRoot()
				if err != nil {
					return fmt.Errorf("failed to resolve project directory: %w", err)
				}
				path = filepath.Join(root, config.ProjectFileName)
				template = configs.ProjectConfigTemplate
			}
			return runConfigInit(cmd, path, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (a backup is kept)")
	cmd.Flags().BoolVar(&project, "project", false, "Create the project's .rulesmith.yaml instead")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

By default, shows the merged configuration from:
  1. Hardcoded defaults
  2. User config (~/.config/rulesmith/config.yaml)
  3. Project config (.rulesmith.yaml)
  4. Environment variables`,
		Example: `  # Show merged configuration
  rulesmith config show

  # Show as JSON
  rulesmith config show --json

  # Show only user config
  rulesmith config show --source user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Long:  `Print the path to the user configuration file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Newline()
			out.Status("💡", "Use --force to replace it (a backup is kept)")
			return nil
		}

		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to customize settings")
	out.Status("", "  2. Run 'rulesmith config show' to verify")

	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		root, err := projectRoot()
		if err != nil {
			return fmt.Errorf("failed to resolve project directory: %w", err)
		}
		cfg, err = config.Load(root)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", path)
			out.Status("💡", "Run 'rulesmith config init' to create one")
			return nil
		}
		var err error
		if cfg, err = readConfigFile(path); err != nil {
			return fmt.Errorf("failed to read user config: %w", err)
		}
		sourceDesc = fmt.Sprintf("user (%s)", path)

	case "project":
		root, err := projectRoot()
		if err != nil {
			return fmt.Errorf("failed to resolve project directory: %w", err)
		}
		path := filepath.Join(root, config.ProjectFileName)
		if _, err := os.Stat(path); err != nil {
			alt := filepath.Join(root, ".rulesmith.yml")
			if _, err := os.Stat(alt); err != nil {
				out.Warning("No project configuration file found")
				out.Statusf("📁", "Expected at: %s", path)
				out.Status("💡", "Run 'rulesmith config init --project' to create one")
				return nil
			}
			path = alt
		}
		if cfg, err = readConfigFile(path); err != nil {
			return fmt.Errorf("failed to read project config: %w", err)
		}
		sourceDesc = fmt.Sprintf("project (%s)", path)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Newline()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}

// readConfigFile parses a single configuration file over the defaults.
func readConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := config.NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
