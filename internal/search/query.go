package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search.
type Params struct {
	Query string
	// DocID restricts results to one document when non-empty.
	DocID  string
	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Result is one executed search.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching chapter.
type Hit struct {
	DocumentID    string  `json:"document_id"`
	Chapter       int     `json:"chapter"`
	Title         string  `json:"title,omitempty"`
	DocumentTitle string  `json:"document_title,omitempty"`
	Authors       string  `json:"authors,omitempty"`
	Score         float64 `json:"score"`
	Fragment      string  `json:"fragment,omitempty"`
}

// Search executes a query over the indexed chapters.
func (ix *Index) Search(ctx context.Context, params Params) (*Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"doc_id", "chapter", "title", "document_title", "authors"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("text")

	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := Hit{Score: hit.Score}
		if v, ok := hit.Fields["doc_id"].(string); ok {
			h.DocumentID = v
		}
		if v, ok := hit.Fields["chapter"].(float64); ok {
			h.Chapter = int(v)
		}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["document_title"].(string); ok {
			h.DocumentTitle = v
		}
		if v, ok := hit.Fields["authors"].(string); ok {
			h.Authors = v
		}
		if fragments, ok := hit.Fragments["text"]; ok && len(fragments) > 0 {
			h.Fragment = fragments[0]
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildQuery combines the text query with the optional document filter.
func buildQuery(params Params) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		textMatch := bleve.NewMatchQuery(q)
		textMatch.SetField("text")

		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(2.0)

		docTitleMatch := bleve.NewMatchQuery(q)
		docTitleMatch.SetField("document_title")
		docTitleMatch.SetBoost(1.5)

		queries = append(queries, bleve.NewDisjunctionQuery(textMatch, titleMatch, docTitleMatch))
	}

	if params.DocID != "" {
		term := bleve.NewTermQuery(params.DocID)
		term.SetField("doc_id")
		queries = append(queries, term)
	}

	if len(queries) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	return bleve.NewConjunctionQuery(queries...)
}
