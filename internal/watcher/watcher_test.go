package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return w
}

func waitFor(t *testing.T, w *Watcher, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if match(ev) {
				return ev
			}
		case err := <-w.Errors():
			t.Fatalf("watcher error: %v", err)
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestWatcherReportsSettledFile(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	path := filepath.Join(root, "drop.epub")
	require.NoError(t, os.WriteFile(path, []byte("part"), 0o644))

	ev := waitFor(t, w, func(ev Event) bool { return ev.Type == Added })
	assert.Equal(t, path, ev.Path)
}

func TestWatcherCoalescesWriteBurst(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	path := filepath.Join(root, "grow.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("chunk")
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	waitFor(t, w, func(ev Event) bool { return ev.Type == Added && ev.Path == path })

	// No second Added for the same burst.
	select {
	case ev := <-w.Events():
		assert.NotEqual(t, Added, ev.Type, "burst should settle into one Added event")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherReportsRemoval(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "old.epub")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := startWatcher(t, root)
	require.NoError(t, os.Remove(path))

	ev := waitFor(t, w, func(ev Event) bool { return ev.Type == Removed })
	assert.Equal(t, path, ev.Path)
}

func TestWatcherPicksUpNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	sub := filepath.Join(root, "incoming")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "late.epub")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ev := waitFor(t, w, func(ev Event) bool { return ev.Type == Added })
	assert.Equal(t, path, ev.Path)
}

func TestIgnoredPaths(t *testing.T) {
	assert.True(t, ignored("/lib/.git"))
	assert.True(t, ignored("/lib/.DS_Store"))
	assert.False(t, ignored("/lib/books"))
}
