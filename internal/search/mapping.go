package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for chapter entries.
//
// Priorities:
//  1. Full-text search over chapter text with English stemming
//  2. Boosted matches on chapter and document titles
//  3. Exact doc_id terms so one document's chapters can be removed
//  4. Term vectors on highlighted fields
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Chapter text is the primary search target; stored for highlighting.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	documentTitleFieldMapping := bleve.NewTextFieldMapping()
	documentTitleFieldMapping.Analyzer = en.AnalyzerName
	documentTitleFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("document_title", documentTitleFieldMapping)

	authorsFieldMapping := bleve.NewTextFieldMapping()
	authorsFieldMapping.Analyzer = en.AnalyzerName
	authorsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("authors", authorsFieldMapping)

	// Exact-match fields.
	docIDFieldMapping := bleve.NewTextFieldMapping()
	docIDFieldMapping.Analyzer = keyword.Name
	docIDFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("doc_id", docIDFieldMapping)

	chapterFieldMapping := bleve.NewNumericFieldMapping()
	chapterFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("chapter", chapterFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
