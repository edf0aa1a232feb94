// Package service provides the business logic layer between the HTTP
// API and the library, search, and progress stores.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/errors"
	"github.com/inkwellapp/inkwell-server/internal/library"
	"github.com/inkwellapp/inkwell-server/internal/progress"
	"github.com/inkwellapp/inkwell-server/internal/search"
	"github.com/inkwellapp/inkwell-server/internal/sse"
)

// Service orchestrates the reading library.
type Service struct {
	store    *library.Store
	cache    *library.Cache
	ingestor *library.Ingestor
	progress *progress.Store
	index    *search.Index
	events   *sse.Manager
	logger   *slog.Logger

	// bySource maps original source filenames to document ids so the
	// storage scanner can tell new drops from already-ingested ones.
	mu       sync.Mutex
	bySource map[string]string
}

// New creates a Service. A nil index disables full-text search. Call
// Bootstrap before serving requests.
func New(store *library.Store, cache *library.Cache, ingestor *library.Ingestor,
	prog *progress.Store, index *search.Index, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		ingestor: ingestor,
		progress: prog,
		index:    index,
		logger:   logger,
		bySource: make(map[string]string),
	}
}

// SetEventManager attaches an SSE manager so library changes are pushed
// to connected clients. Optional; nil disables event emission.
func (s *Service) SetEventManager(m *sse.Manager) {
	s.events = m
}

// Bootstrap loads the source map and rebuilds the search index from the
// persisted library. Documents that fail to load are skipped; serving
// must come up even when individual directories are damaged.
func (s *Service) Bootstrap(ctx context.Context) error {
	ids, err := s.store.IDs()
	if err != nil {
		return err
	}

	indexed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := s.store.Load(id)
		if err != nil {
			s.logger.Warn("skipping document during bootstrap", "id", id, "error", err)
			continue
		}
		if doc.SourceFile != "" {
			s.mu.Lock()
			s.bySource[doc.SourceFile] = id
			s.mu.Unlock()
		}
		if s.index != nil {
			if err := s.index.IndexDocument(id, doc); err != nil {
				s.logger.Warn("indexing failed during bootstrap", "id", id, "error", err)
				continue
			}
			indexed++
		}
	}

	s.logger.Info("library bootstrapped", "documents", len(ids), "indexed", indexed)
	return nil
}

// Entries lists the library.
func (s *Service) Entries() ([]domain.LibraryEntry, error) {
	return s.store.Entries()
}

// Document returns a fully materialized document through the cache.
func (s *Service) Document(id string) (*domain.Document, error) {
	return s.cache.Get(id)
}

// Chapter returns a document's chapter at the given spine position.
func (s *Service) Chapter(id string, pos int) (*domain.Document, *domain.Chapter, error) {
	doc, err := s.cache.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch := doc.ChapterAt(pos)
	if ch == nil {
		return nil, nil, errors.NotFoundf("document %q has no chapter %d", id, pos)
	}
	return doc, ch, nil
}

// AssetPath resolves an image asset path for serving, confirming the
// document exists first.
func (s *Service) AssetPath(id, name string) (string, error) {
	if !s.store.Exists(id) {
		return "", errors.NotFoundf("document %q", id)
	}
	return s.store.AssetPath(id, name)
}

// IngestSource converts a source file into a library document, indexes
// it, and returns its id.
func (s *Service) IngestSource(path string) (string, error) {
	docID, doc, err := s.ingestor.Ingest(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.bySource[doc.SourceFile] = docID
	s.mu.Unlock()

	if s.index != nil {
		if err := s.index.IndexDocument(docID, doc); err != nil {
			s.logger.Warn("indexing failed after ingest", "id", docID, "error", err)
		}
	}

	if s.events != nil {
		s.events.Emit(sse.NewDocumentAddedEvent(domain.LibraryEntry{
			ID:       docID,
			Title:    doc.Metadata.Title,
			Authors:  doc.Metadata.Authors,
			Chapters: len(doc.Spine),
		}))
	}
	return docID, nil
}

// Delete removes a document everywhere: disk, cache, search index, and
// saved progress.
func (s *Service) Delete(id string) error {
	if !s.store.Exists(id) {
		return errors.NotFoundf("document %q", id)
	}

	// A damaged document.json must not make a document undeletable;
	// removal proceeds without the source-map cleanup.
	doc, err := s.store.Load(id)
	if err != nil {
		s.logger.Warn("deleting document that fails to load", "id", id, "error", err)
	}

	if err := s.store.Remove(id); err != nil {
		return err
	}
	s.cache.Invalidate(id)

	if s.index != nil {
		if err := s.index.RemoveDocument(id); err != nil {
			s.logger.Warn("search cleanup failed", "id", id, "error", err)
		}
	}
	if err := s.progress.Delete(id); err != nil {
		s.logger.Warn("progress cleanup failed", "id", id, "error", err)
	}

	if doc != nil && doc.SourceFile != "" {
		s.mu.Lock()
		if s.bySource[doc.SourceFile] == id {
			delete(s.bySource, doc.SourceFile)
		}
		s.mu.Unlock()
	}

	if s.events != nil {
		s.events.Emit(sse.NewDocumentDeletedEvent(id))
	}

	s.logger.Info("document deleted", "id", id)
	return nil
}

// Search runs a full-text query over indexed chapters.
func (s *Service) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if s.index == nil {
		return nil, errors.Validation("full-text search is disabled")
	}
	return s.index.Search(ctx, params)
}

// GetProgress returns the saved reading position for a document.
func (s *Service) GetProgress(id string) (progress.Position, error) {
	if !s.store.Exists(id) {
		return progress.Position{}, errors.NotFoundf("document %q", id)
	}
	return s.progress.Get(id)
}

// SetProgress saves a reading position after validating it against the
// document's spine.
func (s *Service) SetProgress(id string, pos progress.Position) error {
	doc, err := s.cache.Get(id)
	if err != nil {
		return err
	}
	if pos.Chapter < 0 || pos.Chapter >= len(doc.Spine) {
		return errors.Validationf("chapter %d out of range [0,%d)", pos.Chapter, len(doc.Spine))
	}
	if pos.Offset < 0 || pos.Offset > 1 {
		return errors.Validationf("offset %v out of range [0,1]", pos.Offset)
	}
	return s.progress.Set(id, pos)
}

// ClearProgress deletes the saved reading position for a document.
func (s *Service) ClearProgress(id string) error {
	return s.progress.Delete(id)
}

// knownSource reports whether a source filename has already been ingested.
func (s *Service) knownSource(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bySource[name]
	return ok
}
