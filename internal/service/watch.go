package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/inkwellapp/inkwell-server/internal/library"
	"github.com/inkwellapp/inkwell-server/internal/watcher"
)

// ScanStorage ingests every supported source file under root that has
// not been ingested yet. Run once at startup; the watcher covers
// everything after that.
func (s *Service) ScanStorage(ctx context.Context, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn("cannot access storage path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || !library.SupportedSource(path) {
			return nil
		}
		if s.knownSource(filepath.Base(path)) {
			return nil
		}

		if _, err := s.IngestSource(path); err != nil {
			s.logger.Warn("ingest failed during scan", "source", path, "error", err)
		}
		return nil
	})
}

// WatchStorage watches root for new source files and ingests them as
// they settle. Blocks until ctx is cancelled.
func (s *Service) WatchStorage(ctx context.Context, root string, settle time.Duration) error {
	w, err := watcher.New(s.logger, watcher.Options{SettleDelay: settle})
	if err != nil {
		return err
	}
	if err := w.Watch(root); err != nil {
		w.Stop()
		return err
	}

	go s.consumeEvents(ctx, w)

	err = w.Start(ctx)
	w.Stop()
	return err
}

func (s *Service) consumeEvents(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			s.handleStorageEvent(ev)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			s.logger.Warn("storage watcher error", "error", err)
		}
	}
}

func (s *Service) handleStorageEvent(ev watcher.Event) {
	name := filepath.Base(ev.Path)

	switch ev.Type {
	case watcher.Added:
		if !library.SupportedSource(name) {
			return
		}
		if s.knownSource(name) {
			s.logger.Debug("source already ingested", "source", name)
			return
		}
		if _, err := s.IngestSource(ev.Path); err != nil {
			s.logger.Warn("ingest failed", "source", ev.Path, "error", err)
		}
	case watcher.Removed:
		if library.SupportedSource(name) {
			// Removing a source does not remove the ingested document;
			// the library owns its own copy.
			s.logger.Debug("source file removed", "source", name)
			return
		}
		// A removed entry matching a document id means the document
		// directory was deleted out from under us: drop the stale
		// cache and search entries.
		if library.ValidID(name) {
			s.cache.Invalidate(name)
			if s.index != nil {
				if err := s.index.RemoveDocument(name); err != nil {
					s.logger.Warn("search cleanup failed", "id", name, "error", err)
				}
			}
			s.logger.Debug("dropped cache and index entries for removed path", "id", name)
		}
	}
}
