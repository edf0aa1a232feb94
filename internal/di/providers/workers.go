package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/inkwellapp/inkwell-server/internal/config"
	"github.com/inkwellapp/inkwell-server/internal/logger"
	"github.com/inkwellapp/inkwell-server/internal/service"
)

// LibraryWatcherHandle owns the storage scan and watch goroutine.
type LibraryWatcherHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *LibraryWatcherHandle) Shutdown() error {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideLibraryWatcher runs the initial storage scan and, when enabled,
// keeps watching the storage root for dropped source files.
func ProvideLibraryWatcher(i do.Injector) (*LibraryWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	svc := do.MustInvoke[*service.Service](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	if err := svc.ScanStorage(ctx, cfg.Library.StoragePath); err != nil {
		cancel()
		close(done)
		return nil, err
	}

	if !cfg.Library.Watch {
		log.Info("Storage watching disabled by configuration")
		cancel()
		close(done)
		return &LibraryWatcherHandle{cancel: cancel, done: done}, nil
	}

	go func() {
		defer close(done)
		if err := svc.WatchStorage(ctx, cfg.Library.StoragePath, 0); err != nil && ctx.Err() == nil {
			log.Error("Storage watcher stopped", "error", err)
		}
	}()

	log.Info("Watching storage root", "path", cfg.Library.StoragePath)
	return &LibraryWatcherHandle{cancel: cancel, done: done}, nil
}
