package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/engine"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/pkg/version"
)

// Server is the MCP server for rulesmith. Every tool is read-only.
type Server struct {
	mcp      *mcp.Server
	engine   *engine.Engine
	rootPath string
	logger   *slog.Logger

	// index is rebuilt when the catalog version changes.
	index        *catalog.Index
	indexVersion string

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "config_status",
		Description: "Report how a project is configured: state, selected rules, managed regions in the guidance file, health of distributed files, and recent runs. Changes nothing.",
	},
	{
		Name:        "preview_selection",
		Description: "Show which catalog rules and artifacts would be selected for a project under the given strictness, stage and exclusions. Changes nothing.",
	},
	{
		Name:        "search_catalog",
		Description: "Full-text search over catalog rules, commands, skills and agents.",
	},
}

// NewServer creates a new MCP server over eng. rootPath is the project
// used when a tool call names none.
func NewServer(eng *engine.Engine, rootPath string, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	s := &Server{
		engine:   eng,
		rootPath: abs,
		logger:   logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "rulesmith",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "rulesmith", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return slices.Clone(tools)
}

// CallTool invokes a tool by name with JSON-decoded arguments. It backs
// the SDK handlers and lets tests drive tools without a transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "config_status":
		in := ConfigStatusInput{Path: stringArg(args, "path"), History: intArg(args, "history")}
		return s.configStatus(ctx, in)
	case "preview_selection":
		in := PreviewSelectionInput{
			Path:               stringArg(args, "path"),
			Strictness:         stringArg(args, "strictness"),
			Stage:              stringArg(args, "stage"),
			ExcludedCategories: stringsArg(args, "excluded_categories"),
			Threshold:          intArg(args, "threshold"),
		}
		return s.previewSelection(ctx, in)
	case "search_catalog":
		in := SearchCatalogInput{Query: stringArg(args, "query"), Limit: intArg(args, "limit")}
		return s.searchCatalog(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) configStatus(ctx context.Context, in ConfigStatusInput) (*ConfigStatusOutput, error) {
	requestID := generateRequestID()
	start := time.Now()

	path, err := s.resolvePath(in.Path)
	if err != nil {
		return nil, err
	}
	history := clampLimit(in.History, 0, 0, 50)

	st, err := s.engine.Status(ctx, path, history)
	if st == nil {
		s.logger.Error("config_status_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	out := &ConfigStatusOutput{
		ProjectPath:    st.ProjectPath,
		State:          string(st.State),
		GuidanceFile:   st.GuidanceFile,
		GuidanceExists: st.GuidanceExists,
		MarkerError:    st.MarkerError,
		Links:          st.Links,
		CatalogVersion: st.CatalogVersion,
		CatalogChanged: st.CatalogChanged,
		Problems:       st.Problems,
		UpdatedAt:      formatTime(st.UpdatedAt),
	}
	for _, r := range st.Regions {
		out.Regions = append(out.Regions, r.Label)
	}
	if st.Selection != nil {
		out.RuleIDs = st.Selection.RuleIDs
		out.ArtifactIDs = st.Selection.ArtifactIDs
		out.Threshold = st.Selection.Threshold
	}
	for _, r := range st.History {
		out.Runs = append(out.Runs, RunOutput{
			Command:   r.Command,
			StartedAt: formatTime(r.StartedAt),
			Outcome:   string(r.Outcome),
			Failed:    r.Failed,
		})
	}

	// A malformed guidance file is part of the status, not a failed call.
	s.logger.Info("config_status_completed",
		slog.String("request_id", requestID),
		slog.String("state", out.State),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *Server) previewSelection(ctx context.Context, in PreviewSelectionInput) (*PreviewSelectionOutput, error) {
	requestID := generateRequestID()
	start := time.Now()

	path, err := s.resolvePath(in.Path)
	if err != nil {
		return nil, err
	}
	set, err := previewPreferences(in)
	if err != nil {
		return nil, err
	}
	if in.Threshold < 0 || in.Threshold > 10 {
		return nil, NewInvalidParamsError("threshold must be between 1 and 10")
	}

	res, p, err := s.engine.Preview(ctx, path, set, in.Threshold)
	if err != nil {
		s.logger.Error("preview_selection_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	cat, err := s.engine.Catalog(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	out := &PreviewSelectionOutput{
		Profile:        p,
		Threshold:      res.Threshold,
		CatalogVersion: res.CatalogVersion,
		Rules:          make([]PreviewRule, 0, len(res.RuleIDs)),
		ArtifactIDs:    res.ArtifactIDs,
	}
	for _, id := range res.RuleIDs {
		pr := PreviewRule{ID: id, EffectiveWeight: res.EffectiveWeights[id]}
		if r, ok := cat.Rule(id); ok {
			pr.Title, pr.Category = r.Title, string(r.Category)
		}
		out.Rules = append(out.Rules, pr)
	}

	s.logger.Info("preview_selection_completed",
		slog.String("request_id", requestID),
		slog.Int("rules", len(out.Rules)),
		slog.Int("artifacts", len(out.ArtifactIDs)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *Server) searchCatalog(ctx context.Context, in SearchCatalogInput) (*SearchCatalogOutput, error) {
	if in.Query == "" {
		return nil, NewInvalidParamsError("query parameter is required")
	}
	limit := clampLimit(in.Limit, 10, 1, 50)

	idx, err := s.catalogIndex(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	hits, err := idx.Search(ctx, in.Query, limit)
	if err != nil {
		return nil, MapError(err)
	}

	out := &SearchCatalogOutput{Results: make([]SearchResultOutput, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, SearchResultOutput{ID: h.ID, Kind: h.Kind, Title: h.Title, Score: h.Score})
	}
	return out, nil
}

// catalogIndex returns a search index for the current catalog, rebuilding
// it when the catalog version moved.
func (s *Server) catalogIndex(ctx context.Context) (*catalog.Index, error) {
	cat, err := s.engine.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil && s.indexVersion == cat.Version() {
		return s.index, nil
	}
	idx, err := catalog.NewIndex(cat)
	if err != nil {
		return nil, err
	}
	if s.index != nil {
		_ = s.index.Close()
	}
	s.index, s.indexVersion = idx, cat.Version()
	return idx, nil
}

// previewPreferences builds the Tier 1 answers a preview runs with.
func previewPreferences(in PreviewSelectionInput) (prefs.Set, error) {
	var t1 prefs.Tier1Answers
	switch s := prefs.Strictness(in.Strictness); s {
	case "", prefs.StrictnessRelaxed, prefs.StrictnessStandard, prefs.StrictnessStrict, prefs.StrictnessParanoid:
		t1.Strictness = s
	default:
		return prefs.Set{}, NewInvalidParamsError(fmt.Sprintf("unknown strictness %q", in.Strictness))
	}
	switch st := prefs.Stage(in.Stage); st {
	case "", prefs.StagePrototype, prefs.StageMVP, prefs.StageProduction, prefs.StageLegacy:
		t1.Stage = st
		if t1.Strictness == "" && st != "" {
			t1.Strictness = prefs.StrictnessForStage(st)
		}
	default:
		return prefs.Set{}, NewInvalidParamsError(fmt.Sprintf("unknown stage %q", in.Stage))
	}
	if len(in.ExcludedCategories) > 0 {
		for _, c := range in.ExcludedCategories {
			if !slices.Contains(catalog.AllCategories, catalog.Category(c)) {
				return prefs.Set{}, NewInvalidParamsError(fmt.Sprintf("unknown category %q", c))
			}
		}
		t1.ExcludedCategories = &prefs.MultiSelect{Values: slices.Clone(in.ExcludedCategories)}
	}
	return prefs.Merge(t1, prefs.Tier2Answers{}, nil), nil
}

// resolvePath maps a tool's path argument to a project directory. Relative
// paths are taken from the server root.
func (s *Server) resolvePath(p string) (string, error) {
	if p == "" {
		return s.rootPath, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.rootPath, p)
	}
	return filepath.Clean(p), nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering_mcp_tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpConfigStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpPreviewSelectionHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpSearchCatalogHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpConfigStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, input ConfigStatusInput) (
	*mcp.CallToolResult,
	*ConfigStatusOutput,
	error,
) {
	out, err := s.configStatus(ctx, input)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return textResult(FormatStatus(out)), out, nil
}

func (s *Server) mcpPreviewSelectionHandler(ctx context.Context, _ *mcp.CallToolRequest, input PreviewSelectionInput) (
	*mcp.CallToolResult,
	*PreviewSelectionOutput,
	error,
) {
	out, err := s.previewSelection(ctx, input)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return textResult(FormatPreview(out)), out, nil
}

func (s *Server) mcpSearchCatalogHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchCatalogInput) (
	*mcp.CallToolResult,
	*SearchCatalogOutput,
	error,
) {
	out, err := s.searchCatalog(ctx, input)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return textResult(FormatSearchResults(input.Query, out)), out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases the search index.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// clampLimit returns v bounded to [lo, hi], or def when v is zero.
func clampLimit(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	return max(lo, min(v, hi))
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg reads a JSON number argument.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func stringsArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if str, ok := x.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
