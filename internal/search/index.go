// Package search provides client-side keyword search over the currently
// fetched post feed. The index lives in memory and is rebuilt per fetch;
// nothing is persisted.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/postify/postify-client/internal/api"
)

// Index wraps an in-memory Bleve index over a post collection.
type Index struct {
	index bleve.Index
}

// indexedPost is the shape of a post inside the index.
type indexedPost struct {
	Title       string
	Description string
	Body        string
	Tags        []string
	Author      string
}

// Result is one search hit.
type Result struct {
	ID        string
	Title     string
	Author    string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// New builds a memory-only index over the given posts.
func New(posts []api.Post) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	batch := idx.NewBatch()
	for _, p := range posts {
		doc := &indexedPost{
			Title:       p.Title,
			Description: p.Description,
			Body:        p.Body,
			Tags:        p.TagList,
			Author:      p.Author.Username,
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return nil, fmt.Errorf("index post %s: %w", p.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("index batch: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping creates the field mapping, with English stemming on
// titles.
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Description", textFieldMapping)
	docMapping.AddFieldMappingsAt("Body", textFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Author", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Count returns the number of indexed posts.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search runs a query-string query (supports quotes, boolean operators,
// fuzzy ~) and returns hits with highlighted snippets.
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	search := bleve.NewSearchRequestOptions(query, limit, 0, false)
	search.Highlight = bleve.NewHighlightWithStyle("html")
	search.Fields = []string{"Title", "Author"}

	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var out []*Result
	for _, hit := range results.Hits {
		result := &Result{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		if author, ok := hit.Fields["Author"].(string); ok {
			result.Author = author
		}
		out = append(out, result)
	}

	return out, nil
}
