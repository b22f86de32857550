package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/modfile"

	"github.com/Aman-CERP/rulesmith/internal/gitignore"
)

// DefaultMaxFiles bounds the tree walk on very large repositories.
const DefaultMaxFiles = 20000

// alwaysSkipped directories are never walked, gitignore or not.
var alwaysSkipped = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"target":       true,
	"dist":         true,
	"build":        true,
}

var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".cs":    "csharp",
	".swift": "swift",
	".php":   "php",
	".dart":  "dart",
	".tf":    "terraform",
}

var (
	testPatterns = []string{
		"**/*_test.go",
		"**/test_*.py",
		"**/*_test.py",
		"**/*.{test,spec}.{js,jsx,ts,tsx,mjs}",
		"**/{test,tests,__tests__,spec}/**",
		"src/test/**",
	}
	ciPatterns = []string{
		".github/workflows/*.{yml,yaml}",
		".gitlab-ci.yml",
		".circleci/config.yml",
		"Jenkinsfile",
		"azure-pipelines.yml",
		".buildkite/**",
	}
	containerPatterns = []string{
		"**/Dockerfile",
		"**/Dockerfile.*",
		"**/Containerfile",
		"**/docker-compose*.{yml,yaml}",
		"**/compose.{yml,yaml}",
	}
	kubernetesPatterns = []string{
		"**/kustomization.{yml,yaml}",
		"**/Chart.yaml",
		"{k8s,kubernetes,deploy/k8s}/**/*.{yml,yaml}",
	}
	serverlessPatterns = []string{
		"serverless.{yml,yaml}",
		"vercel.json",
		"**/template.{yml,yaml}",
	}
	staticPatterns = []string{
		"netlify.toml",
	}
)

// Framework fingerprints per ecosystem, keyed by dependency path prefix.
var (
	goFrameworks = map[string]string{
		"github.com/gin-gonic/gin": "gin",
		"github.com/labstack/echo": "echo",
		"github.com/go-chi/chi":    "chi",
		"github.com/gofiber/fiber": "fiber",
		"github.com/gorilla/mux":   "gorilla",
		"google.golang.org/grpc":   "grpc",
		"github.com/spf13/cobra":   "cobra",
		"github.com/urfave/cli":    "urfave-cli",
		"gorm.io/gorm":             "gorm",
	}
	nodeFrameworks = map[string]string{
		"next":          "next",
		"react":         "react",
		"vue":           "vue",
		"svelte":        "svelte",
		"@angular/core": "angular",
		"express":       "express",
		"fastify":       "fastify",
		"@nestjs/core":  "nestjs",
		"react-native":  "react-native",
		"commander":     "commander",
		"yargs":         "yargs",
	}
	pythonFrameworks = map[string]string{
		"django":         "django",
		"flask":          "flask",
		"fastapi":        "fastapi",
		"click":          "click",
		"typer":          "typer",
		"pandas":         "pandas",
		"apache-airflow": "airflow",
		"pyspark":        "spark",
		"dbt-core":       "dbt",
	}
	rustFrameworks = map[string]string{
		"actix-web": "actix",
		"axum":      "axum",
		"rocket":    "rocket",
		"clap":      "clap",
	}
)

var frameworkTypes = map[string]string{
	"gin": TypeWebAPI, "echo": TypeWebAPI, "chi": TypeWebAPI, "fiber": TypeWebAPI,
	"gorilla": TypeWebAPI, "grpc": TypeWebAPI, "express": TypeWebAPI, "fastify": TypeWebAPI,
	"nestjs": TypeWebAPI, "django": TypeWebAPI, "flask": TypeWebAPI, "fastapi": TypeWebAPI,
	"actix": TypeWebAPI, "axum": TypeWebAPI, "rocket": TypeWebAPI,
	"next": TypeWebFrontend, "react": TypeWebFrontend, "vue": TypeWebFrontend,
	"svelte": TypeWebFrontend, "angular": TypeWebFrontend,
	"cobra": TypeCLI, "urfave-cli": TypeCLI, "commander": TypeCLI, "yargs": TypeCLI,
	"click": TypeCLI, "typer": TypeCLI, "clap": TypeCLI,
	"react-native": TypeMobile,
	"pandas": TypeDataPipeline, "airflow": TypeDataPipeline, "spark": TypeDataPipeline, "dbt": TypeDataPipeline,
}

// FSDetector detects a Profile from files on disk.
type FSDetector struct {
	maxFiles int
	logger   *slog.Logger
}

// Option configures an FSDetector.
type Option func(*FSDetector)

// WithMaxFiles bounds the number of files inspected.
func WithMaxFiles(n int) Option {
	return func(d *FSDetector) {
		if n > 0 {
			d.maxFiles = n
		}
	}
}

// WithLogger sets the detector's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *FSDetector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewFSDetector creates a filesystem detector.
func NewFSDetector(opts ...Option) *FSDetector {
	d := &FSDetector{maxFiles: DefaultMaxFiles, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// scan is the raw result of walking the tree.
type scan struct {
	files     []string // slash-separated, relative to root
	langCount map[string]int
	truncated bool
}

// Detect inspects dir. It never fails on unreadable manifests; it only fails
// when dir itself cannot be walked or ctx is cancelled.
func (d *FSDetector) Detect(ctx context.Context, dir string) (Profile, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to resolve project path: %w", err)
	}

	s, err := d.walk(ctx, root)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	frameworks := map[string]bool{}
	types := map[string]bool{}

	manifestLang := ""
	switch {
	case fileExists(filepath.Join(root, "go.mod")):
		manifestLang = "go"
		d.detectGo(root, s, frameworks, types)
	case fileExists(filepath.Join(root, "package.json")):
		manifestLang = "javascript"
		if fileExists(filepath.Join(root, "tsconfig.json")) || s.langCount["typescript"] > s.langCount["javascript"] {
			manifestLang = "typescript"
		}
		d.detectNode(root, frameworks, types)
	case fileExists(filepath.Join(root, "pyproject.toml")) || fileExists(filepath.Join(root, "requirements.txt")):
		manifestLang = "python"
		detectText(root, []string{"pyproject.toml", "requirements.txt"}, pythonFrameworks, frameworks)
	case fileExists(filepath.Join(root, "Cargo.toml")):
		manifestLang = "rust"
		detectText(root, []string{"Cargo.toml"}, rustFrameworks, frameworks)
		if fileExists(filepath.Join(root, "src", "main.rs")) && !fileExists(filepath.Join(root, "src", "lib.rs")) {
			types[TypeCLI] = true
		}
	case fileExists(filepath.Join(root, "pom.xml")) || fileExists(filepath.Join(root, "build.gradle")) || fileExists(filepath.Join(root, "build.gradle.kts")):
		manifestLang = "java"
	}

	p.Languages = rankLanguages(s.langCount)
	p.PrimaryLanguage = manifestLang
	if p.PrimaryLanguage == "" && len(p.Languages) > 0 {
		p.PrimaryLanguage = p.Languages[0]
	}

	for fw := range frameworks {
		p.Frameworks = append(p.Frameworks, fw)
		if t, ok := frameworkTypes[fw]; ok {
			types[t] = true
		}
	}
	sort.Strings(p.Frameworks)

	p.HasTests = anyMatch(testPatterns, s.files)
	p.HasCI = anyMatch(ciPatterns, s.files)
	p.HasContainers = anyMatch(containerPatterns, s.files)

	switch {
	case anyMatch(kubernetesPatterns, s.files):
		p.DeploymentTarget = DeployKubernetes
	case anyMatch(serverlessPatterns, s.files):
		p.DeploymentTarget = DeployServerless
	case p.HasContainers:
		p.DeploymentTarget = DeployContainer
	case anyMatch(staticPatterns, s.files):
		p.DeploymentTarget = DeployStatic
	}

	if s.langCount["terraform"] > 0 || (p.DeploymentTarget == DeployKubernetes && len(types) == 0) {
		types[TypeInfrastructure] = true
	}
	if len(types) == 0 && p.PrimaryLanguage != "" && p.PrimaryLanguage != "terraform" {
		types[TypeLibrary] = true
	}
	for t := range types {
		p.ProjectTypes = append(p.ProjectTypes, t)
	}
	sort.Strings(p.ProjectTypes)

	d.logger.Debug("profile_detected",
		slog.String("root", root),
		slog.String("language", p.PrimaryLanguage),
		slog.Any("frameworks", p.Frameworks),
		slog.Any("project_types", p.ProjectTypes),
		slog.Int("files", len(s.files)),
		slog.Bool("truncated", s.truncated))

	return p, nil
}

// walk lists files under root, honouring .gitignore files as it descends.
func (d *FSDetector) walk(ctx context.Context, root string) (*scan, error) {
	s := &scan{langCount: map[string]int{}}
	matcher := gitignore.New()

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if path != root && (alwaysSkipped[entry.Name()] || matcher.Match(rel, true)) {
				return filepath.SkipDir
			}
			base := rel
			if path == root {
				base = ""
			}
			if ignore := filepath.Join(path, ".gitignore"); fileExists(ignore) {
				_ = matcher.AddFromFile(ignore, base)
			}
			return nil
		}

		if matcher.Match(rel, false) {
			return nil
		}
		if len(s.files) >= d.maxFiles {
			s.truncated = true
			return filepath.SkipAll
		}
		s.files = append(s.files, rel)
		if lang, ok := extLanguages[strings.ToLower(filepath.Ext(rel))]; ok {
			s.langCount[lang]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return s, nil
}

func (d *FSDetector) detectGo(root string, s *scan, frameworks, types map[string]bool) {
	path := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	mf, err := modfile.Parse(path, data, nil)
	if err != nil {
		d.logger.Debug("go_mod_unparseable", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	for _, req := range mf.Require {
		if req.Indirect {
			continue
		}
		for prefix, fw := range goFrameworks {
			if strings.HasPrefix(req.Mod.Path, prefix) {
				frameworks[fw] = true
			}
		}
	}

	// A main package under cmd/ or at the root means a binary.
	for _, f := range s.files {
		if (strings.HasPrefix(f, "cmd/") && strings.HasSuffix(f, "/main.go")) || f == "main.go" {
			if !frameworks["gin"] && !frameworks["echo"] && !frameworks["chi"] && !frameworks["fiber"] && !frameworks["gorilla"] && !frameworks["grpc"] {
				types[TypeCLI] = true
			}
			return
		}
	}
}

func (d *FSDetector) detectNode(root string, frameworks, types map[string]bool) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return
	}
	var pkg struct {
		Bin             json.RawMessage   `json:"bin"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		d.logger.Debug("package_json_unparseable", slog.String("error", err.Error()))
		return
	}
	for dep, fw := range nodeFrameworks {
		_, inDeps := pkg.Dependencies[dep]
		_, inDev := pkg.DevDependencies[dep]
		if inDeps || inDev {
			frameworks[fw] = true
		}
	}
	if len(pkg.Bin) > 0 {
		types[TypeCLI] = true
	}
}

// detectText does a case-insensitive substring scan of manifests that have
// no Go parser in the dependency set (pyproject, requirements, Cargo).
func detectText(root string, files []string, fingerprints map[string]string, frameworks map[string]bool) {
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		content := strings.ToLower(string(data))
		for dep, fw := range fingerprints {
			if containsWord(content, dep) {
				frameworks[fw] = true
			}
		}
	}
}

// containsWord reports whether dep occurs delimited by non-identifier characters.
func containsWord(content, dep string) bool {
	for i := 0; ; {
		j := strings.Index(content[i:], dep)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(dep)
		if (start == 0 || !isIdent(content[start-1])) && (end == len(content) || !isIdent(content[end])) {
			return true
		}
		i = end
	}
}

func isIdent(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func anyMatch(patterns, files []string) bool {
	for _, f := range files {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, f); ok {
				return true
			}
		}
	}
	return false
}

// rankLanguages orders languages by file count, ties alphabetically.
func rankLanguages(counts map[string]int) []string {
	langs := make([]string, 0, len(counts))
	for l := range counts {
		if l != "terraform" {
			langs = append(langs, l)
		}
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	return langs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
