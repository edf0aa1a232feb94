package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/inkwellapp/inkwell-server/internal/config"
	"github.com/inkwellapp/inkwell-server/internal/library"
	"github.com/inkwellapp/inkwell-server/internal/logger"
	"github.com/inkwellapp/inkwell-server/internal/progress"
	"github.com/inkwellapp/inkwell-server/internal/search"
	"github.com/inkwellapp/inkwell-server/internal/service"
)

// ProvideStore provides the on-disk document store rooted at the storage path.
func ProvideStore(i do.Injector) (*library.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return library.NewStore(cfg.Library.StoragePath, log.Logger)
}

// ProvideCache provides the bounded in-memory document cache.
func ProvideCache(i do.Injector) (*library.Cache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*library.Store](i)

	return library.NewCache(store, cfg.Cache.Capacity, log.Logger)
}

// ProvideIngestor provides the source file ingestor.
func ProvideIngestor(i do.Injector) (*library.Ingestor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*library.Store](i)

	return library.NewIngestor(store, log.Logger), nil
}

// ProgressHandle wraps the progress store with Shutdownable.
type ProgressHandle struct {
	*progress.Store
}

// Shutdown implements do.Shutdownable.
func (h *ProgressHandle) Shutdown() error {
	return h.Store.Close()
}

// ProvideProgress provides the reading progress store under the data path.
func ProvideProgress(i do.Injector) (*ProgressHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := progress.Open(filepath.Join(cfg.Library.DataPath, "progress"), log.Logger)
	if err != nil {
		return nil, err
	}
	return &ProgressHandle{Store: store}, nil
}

// SearchIndexHandle wraps the search index with Shutdownable. Index is
// nil when search is disabled by configuration.
type SearchIndexHandle struct {
	Index *search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Index.Close()
}

// ProvideSearchIndex provides the in-memory chapter text index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Full-text search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewIndex(log.Logger)
	if err != nil {
		return nil, err
	}
	return &SearchIndexHandle{Index: index}, nil
}

// ProvideService provides the bootstrapped library service.
func ProvideService(i do.Injector) (*service.Service, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*library.Store](i)
	cache := do.MustInvoke[*library.Cache](i)
	ingestor := do.MustInvoke[*library.Ingestor](i)
	prog := do.MustInvoke[*ProgressHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)

	svc := service.New(store, cache, ingestor, prog.Store, indexHandle.Index, log.Logger)
	svc.SetEventManager(do.MustInvoke[*SSEManagerHandle](i).Manager)

	if err := svc.Bootstrap(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}
