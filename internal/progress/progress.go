// Package progress stores per-document reading positions in a Badger
// database. Positions are advisory client state: losing one is an
// inconvenience, never a data-integrity problem, so the whole package
// treats the database as a best-effort side store.
package progress

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// keyPrefix namespaces progress records in the database.
const keyPrefix = "progress:"

// Position is one saved reading position.
type Position struct {
	// Chapter is the spine index the reader is on.
	Chapter int `json:"chapter"`
	// Offset is a client-defined location within the chapter, typically
	// a scroll fraction in [0,1].
	Offset float64 `json:"offset"`
	// UpdatedAt is when the position was last written, RFC 3339 UTC.
	UpdatedAt string `json:"updated_at"`
}

// Store persists reading positions.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the progress database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open progress db: %w", err)
	}
	logger.Info("progress database opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(docID string) []byte {
	return []byte(keyPrefix + docID)
}

// Set saves the position for a document, stamping UpdatedAt.
func (s *Store) Set(docID string, pos Position) error {
	pos.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(pos)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "serialize position for %s", docID)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(docID), data)
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "save position for %s", docID)
	}
	return nil
}

// Get returns the saved position for a document.
func (s *Store) Get(docID string) (Position, error) {
	var pos Position
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(docID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Position{}, errors.NotFoundf("no progress for document %q", docID)
	}
	if err != nil {
		return Position{}, errors.Wrapf(err, errors.CodeInternal, "read position for %s", docID)
	}
	return pos, nil
}

// Delete removes the saved position for a document. Deleting a missing
// position is not an error.
func (s *Store) Delete(docID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(docID))
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "delete position for %s", docID)
	}
	return nil
}
