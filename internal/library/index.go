package library

import (
	"os"
	"sort"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// IDs returns every document id present under the root, sorted. A
// directory without a document.json is ignored; partial ingests and
// stray files never surface in listings.
func (s *Store) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "scan library root")
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		if s.Exists(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Entries lists every document as a lightweight library entry.
// Documents that fail to load are skipped with a log entry rather than
// failing the whole listing.
func (s *Store) Entries() ([]domain.LibraryEntry, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LibraryEntry, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Load(id)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "id", id, "error", err)
			continue
		}
		entries = append(entries, domain.LibraryEntry{
			ID:       id,
			Title:    doc.Metadata.Title,
			Authors:  doc.Metadata.Authors,
			Chapters: len(doc.Spine),
		})
	}
	return entries, nil
}
