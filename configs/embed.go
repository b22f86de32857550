// Package configs provides embedded configuration templates for rulesmith.
//
// The templates are used by:
//   - `rulesmith config init` to create ~/.config/rulesmith/config.yaml
//   - `rulesmith config init --project` to create .rulesmith.yaml
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/rulesmith/config.yaml)
//  3. Project config (.rulesmith.yaml)
//  4. Environment variables (RULESMITH_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for machine-level configuration:
// where the catalog and state live, default strictness, link strategies.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for per-project configuration:
// target file names and profile facts the detector cannot see.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
