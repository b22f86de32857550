package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
)

// MaxResourceSize is the maximum record size served as a resource (1MB).
const MaxResourceSize = 1024 * 1024

// resourceMIMEType is the type of every catalog record.
const resourceMIMEType = "text/markdown"

// ResourceURI is the URI a catalog record is served under.
func ResourceURI(kind, id string) string {
	return fmt.Sprintf("rulesmith://%s/%s", kind, id)
}

// RegisterResources registers every record of the current catalog as an
// MCP resource. Records are read from disk on each request, so edits show
// up without a restart; added or removed records need one.
func (s *Server) RegisterResources(ctx context.Context) (int, error) {
	cat, err := s.engine.Catalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	count := 0
	for _, r := range cat.Rules() {
		if s.registerRecord(cat, "rule", r.ID, r.Title, r.Path) {
			count++
		}
	}
	for _, a := range cat.Artifacts() {
		if s.registerRecord(cat, string(a.Kind), a.ID, a.Title, a.Path) {
			count++
		}
	}

	s.logger.Info("mcp_resources_registered", "count", count)
	return count, nil
}

// registerRecord adds one resource. In-memory catalogs have no files and
// register nothing.
func (s *Server) registerRecord(cat *catalog.Catalog, kind, id, title, rel string) bool {
	path := cat.Abs(rel)
	if path == "" {
		return false
	}
	uri := ResourceURI(kind, id)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        id,
			URI:         uri,
			Description: fmt.Sprintf("%s %s: %s", kind, id, title),
			MIMEType:    resourceMIMEType,
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return readRecord(uri, path)
		},
	)
	return true
}

// readRecord returns the record file as a resource.
func readRecord(uri, path string) (*mcp.ReadResourceResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, MapError(err)
	}
	if info.Size() > MaxResourceSize {
		return nil, NewInvalidParamsError(fmt.Sprintf("record too large: %d bytes (max %d)", info.Size(), MaxResourceSize))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: resourceMIMEType,
				Text:     string(content),
			},
		},
	}, nil
}
