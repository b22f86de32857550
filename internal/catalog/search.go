package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

// searchDoc is the indexed view of a rule or artifact.
type searchDoc struct {
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Index is an in-memory full-text index over a catalog.
type Index struct {
	cat   *Catalog
	index bleve.Index
}

// NewIndex indexes every rule and artifact of cat.
func NewIndex(cat *Catalog) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	batch := idx.NewBatch()
	for _, r := range cat.Rules() {
		doc := searchDoc{
			Kind:     "rule",
			Category: string(r.Category),
			Title:    r.Title,
			Text:     strings.Join([]string{r.Rationale, r.Body}, "\n"),
		}
		if err := batch.Index(r.ID, doc); err != nil {
			return nil, fmt.Errorf("failed to index rule %s: %w", r.ID, err)
		}
	}
	for _, a := range cat.Artifacts() {
		doc := searchDoc{
			Kind:  string(a.Kind),
			Title: a.Title,
			Text:  strings.Join([]string{a.Description, a.Body}, "\n"),
		}
		if err := batch.Index(a.ID, doc); err != nil {
			return nil, fmt.Errorf("failed to index artifact %s: %w", a.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &Index{cat: cat, index: idx}, nil
}

// Search returns up to limit records matching query, best first.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := SearchHit{ID: h.ID, Score: h.Score}
		if r, ok := i.cat.Rule(h.ID); ok {
			hit.Kind, hit.Title = "rule", r.Title
		} else if a, ok := i.cat.Artifact(h.ID); ok {
			hit.Kind, hit.Title = string(a.Kind), a.Title
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}
