// Package search maintains a full-text index over chapter text. The
// index is in-memory and rebuilt from the library on startup; it is an
// acceleration structure, never a source of truth.
package search

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/inkwellapp/inkwell-server/internal/domain"
)

// Index wraps a Bleve index with chapter-level operations.
//
// All public methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewIndex creates an empty in-memory search index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: idx, logger: logger}, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

// entryID identifies one chapter within the index.
func entryID(docID string, chapter int) string {
	return fmt.Sprintf("%s#%d", docID, chapter)
}

// chapterEntry is the indexed shape of one chapter. Field names match
// the mapping.
func chapterEntry(docID string, doc *domain.Document, ch *domain.Chapter) map[string]any {
	return map[string]any{
		"doc_id":         docID,
		"chapter":        ch.Order,
		"title":          ch.Title,
		"document_title": doc.Metadata.Title,
		"authors":        strings.Join(doc.Metadata.Authors, ", "),
		"text":           ch.Text,
	}
}

// IndexDocument indexes every chapter of a document, replacing any
// previously indexed chapters for the same id.
func (ix *Index) IndexDocument(docID string, doc *domain.Document) error {
	if err := ix.RemoveDocument(docID); err != nil {
		return err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	batch := ix.index.NewBatch()
	for i := range doc.Spine {
		ch := &doc.Spine[i]
		if err := batch.Index(entryID(docID, ch.Order), chapterEntry(docID, doc, ch)); err != nil {
			return fmt.Errorf("batch chapter %d of %s: %w", ch.Order, docID, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("index document %s: %w", docID, err)
	}

	ix.logger.Debug("document indexed", "id", docID, "chapters", len(doc.Spine))
	return nil
}

// RemoveDocument deletes every chapter entry belonging to a document.
func (ix *Index) RemoveDocument(docID string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// Chapter counts change across reingests, so find the entries by
	// doc_id term rather than reconstructing their ids.
	term := bleve.NewTermQuery(docID)
	term.SetField("doc_id")

	for {
		req := bleve.NewSearchRequestOptions(term, 500, 0, false)
		res, err := ix.index.Search(req)
		if err != nil {
			return fmt.Errorf("find chapters of %s: %w", docID, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := ix.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("remove chapters of %s: %w", docID, err)
		}
	}
}

// Count returns the number of indexed chapter entries.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}
