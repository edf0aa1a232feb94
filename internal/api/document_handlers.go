package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/errors"
	"github.com/inkwellapp/inkwell-server/internal/http/response"
	"github.com/inkwellapp/inkwell-server/internal/library"
)

// chapterPayload is the chapter reading view: the chapter itself plus
// enough context to paginate without re-fetching the document.
type chapterPayload struct {
	DocumentID    string         `json:"document_id"`
	DocumentTitle string         `json:"document_title"`
	Chapter       domain.Chapter `json:"chapter"`
	Total         int            `json:"total"`
	Prev          *int           `json:"prev,omitempty"`
	Next          *int           `json:"next,omitempty"`
}

// handleListDocuments returns the library listing.
func (s *Server) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.service.Entries()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, entries, s.logger)
}

// handleGetDocument returns a fully materialized document.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	doc, err := s.service.Document(id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, doc, s.logger)
}

// handleGetChapter returns one chapter with prev/next pagination context.
func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.BadRequest(w, "chapter index must be an integer", s.logger)
		return
	}

	doc, ch, err := s.service.Chapter(id, index)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	payload := chapterPayload{
		DocumentID:    id,
		DocumentTitle: doc.Metadata.Title,
		Chapter:       *ch,
		Total:         len(doc.Spine),
	}
	if index > 0 {
		prev := index - 1
		payload.Prev = &prev
	}
	if index < len(doc.Spine)-1 {
		next := index + 1
		payload.Next = &next
	}

	response.Success(w, payload, s.logger)
}

// handleGetImage serves an extracted document image from disk.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	path, err := s.service.AssetPath(id, chi.URLParam(r, "name"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if _, err := os.Stat(path); err != nil {
		response.NotFound(w, "image not found", s.logger)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// handleUploadDocument ingests an uploaded EPUB or PDF.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "multipart field \"file\" is required", s.logger)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !library.SupportedSource(name) {
		response.BadRequest(w, "unsupported source format (want .epub or .pdf)", s.logger)
		return
	}

	// The converters read from disk, so spool the upload to a temp file
	// that keeps its original name.
	tmpDir, err := os.MkdirTemp("", "inkwell-upload-*")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, name)
	dst, err := os.Create(tmpPath)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		response.BadRequest(w, "upload truncated", s.logger)
		return
	}
	if err := dst.Close(); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	docID, err := s.service.IngestSource(tmpPath)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Info("document uploaded", "id", docID, "source", name)
	response.Created(w, map[string]string{"id": docID}, s.logger)
}

// handleDeleteDocument removes a document and all derived state.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !library.ValidID(id) {
		response.BadRequest(w, "invalid document id", s.logger)
		return
	}

	if err := s.service.Delete(id); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			response.NotFound(w, "document not found", s.logger)
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
