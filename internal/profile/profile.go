// Package profile detects facts about a project directory: its languages,
// frameworks and the presence of tests, CI and containers.
package profile

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/Aman-CERP/rulesmith/internal/config"
)

// Project types recognized by catalog applicability sets.
const (
	TypeWebAPI         = "web-api"
	TypeWebFrontend    = "web-frontend"
	TypeCLI            = "cli"
	TypeLibrary        = "library"
	TypeDataPipeline   = "data-pipeline"
	TypeMobile         = "mobile"
	TypeInfrastructure = "infrastructure"
)

// Deployment targets.
const (
	DeployNone       = "none"
	DeployContainer  = "container"
	DeployKubernetes = "kubernetes"
	DeployServerless = "serverless"
	DeployStatic     = "static"
	DeployVM         = "vm"
)

// Profile is the set of facts detected for one run.
type Profile struct {
	PrimaryLanguage  string   `json:"primary_language"`
	Languages        []string `json:"languages,omitempty"`
	Frameworks       []string `json:"frameworks,omitempty"`
	ProjectTypes     []string `json:"project_types,omitempty"`
	TeamSize         string   `json:"team_size,omitempty"`
	Maturity         string   `json:"maturity,omitempty"`
	DeploymentTarget string   `json:"deployment_target,omitempty"`
	ComplianceTags   []string `json:"compliance_tags,omitempty"`
	HasTests         bool     `json:"has_tests"`
	HasCI            bool     `json:"has_ci"`
	HasContainers    bool     `json:"has_containers"`
}

// Detector produces a Profile for a project directory.
type Detector interface {
	Detect(ctx context.Context, dir string) (Profile, error)
}

// HasType reports whether the profile lists project type t.
func (p Profile) HasType(t string) bool {
	return slices.Contains(p.ProjectTypes, t)
}

// IsWeb reports whether the project serves or renders web traffic.
func (p Profile) IsWeb() bool {
	return p.HasType(TypeWebAPI) || p.HasType(TypeWebFrontend)
}

// Deployed reports whether the project has any known deployment target.
func (p Profile) Deployed() bool {
	return p.DeploymentTarget != "" && p.DeploymentTarget != DeployNone
}

// ApplyOverrides layers configured facts over detected ones. Scalar overrides
// replace, list overrides replace, compliance tags are unioned.
func ApplyOverrides(p Profile, o config.ProfileOverrides) Profile {
	if o.PrimaryLanguage != "" {
		p.PrimaryLanguage = strings.ToLower(o.PrimaryLanguage)
	}
	if len(o.ProjectTypes) > 0 {
		p.ProjectTypes = sortedUnique(o.ProjectTypes)
	}
	if o.TeamSize != "" {
		p.TeamSize = o.TeamSize
	}
	if o.Maturity != "" {
		p.Maturity = o.Maturity
	}
	if o.DeploymentTarget != "" {
		p.DeploymentTarget = o.DeploymentTarget
	}
	if len(o.Compliance) > 0 {
		p.ComplianceTags = sortedUnique(append(slices.Clone(p.ComplianceTags), o.Compliance...))
	}
	return p
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
