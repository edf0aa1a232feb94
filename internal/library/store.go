// Package library persists and serves assembled reading documents. Each
// document occupies one directory under the library root:
//
//	<root>/<id>/document.json
//	<root>/<id>/images/...
//
// The directory name is the document id. Store handles the on-disk
// layout, Cache keeps recently read documents in memory, and Ingestor
// turns source files into new library directories.
package library

import (
	"encoding/json/v2"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// DocumentFile is the name of the serialized document inside each
// document directory.
const DocumentFile = "document.json"

// idPattern constrains document ids to names that are safe as directory
// components.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidID reports whether id is acceptable as a document identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Store reads and writes document directories under a single root.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "create library root %s", root)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the library root directory.
func (s *Store) Root() string { return s.root }

// DocumentDir returns the directory that holds the given document.
func (s *Store) DocumentDir(id string) string {
	return filepath.Join(s.root, id)
}

// Exists reports whether a persisted document with the given id exists.
func (s *Store) Exists(id string) bool {
	if !ValidID(id) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.root, id, DocumentFile))
	return err == nil
}

// Save writes the document under id. The write is atomic: the JSON goes
// to a temporary file first and is renamed into place.
func (s *Store) Save(id string, doc *domain.Document) error {
	if !ValidID(id) {
		return errors.Validationf("invalid document id %q", id)
	}
	dir := s.DocumentDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "create document directory %s", id)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "serialize document %s", id)
	}

	tmp := filepath.Join(dir, DocumentFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "write document %s", id)
	}
	if err := os.Rename(tmp, filepath.Join(dir, DocumentFile)); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, errors.CodeInternal, "commit document %s", id)
	}
	return nil
}

// Load reads the persisted document with the given id.
func (s *Store) Load(id string) (*domain.Document, error) {
	if !ValidID(id) {
		return nil, errors.NotFoundf("document %q", id)
	}

	data, err := os.ReadFile(filepath.Join(s.root, id, DocumentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("document %q", id)
		}
		return nil, errors.Wrapf(err, errors.CodeCorruptDocument, "read document %s", id)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, errors.CodeCorruptDocument, "parse document %s", id)
	}
	if doc.Version != domain.FormatVersion {
		return nil, errors.CorruptDocument("document " + id + " has unsupported format version " + doc.Version)
	}
	return &doc, nil
}

// Remove deletes the document directory and everything in it.
func (s *Store) Remove(id string) error {
	if !ValidID(id) {
		return errors.NotFoundf("document %q", id)
	}
	dir := s.DocumentDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return errors.NotFoundf("document %q", id)
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "remove document %s", id)
	}
	return nil
}

// AssetPath resolves an image asset name inside a document directory,
// rejecting anything that would escape it.
func (s *Store) AssetPath(id, name string) (string, error) {
	if !ValidID(id) {
		return "", errors.NotFoundf("document %q", id)
	}
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
	if base != name || base == "." || base == ".." {
		return "", errors.Validationf("invalid asset name %q", name)
	}
	return filepath.Join(s.root, id, "images", base), nil
}
