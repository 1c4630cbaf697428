package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WiresAllComponents(t *testing.T) {
	root := t.TempDir()
	store := newTestStore(t)
	hub := newFakeHubClient()

	e := New(root, store, hub, testLogger(t), time.Minute)
	assert.NotNil(t, e.queue)
	assert.NotNil(t, e.ignore)
	assert.NotNil(t, e.localWatcher)
	assert.NotNil(t, e.remoteWatcher)
	assert.NotNil(t, e.localStartup)
	assert.NotNil(t, e.handler)
	assert.Equal(t, 0, e.IgnoreListLen())
}

func TestEngine_RunPerformsStartupReconciliationThenStopsCleanly(t *testing.T) {
	root := t.TempDir()
	store := newTestStore(t)
	hub := newFakeHubClient()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	e := New(root, store, hub, testLogger(t), time.Minute)
	// Swap in a fake fsnotify backend so Run doesn't touch the real filesystem
	// watch API during this test.
	e.localWatcher.watcherFactory = func() (FsWatcher, error) { return newFakeFsWatcher(), nil }

	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	// Give startup reconciliation and the goroutine group a moment to start.
	time.Sleep(100 * time.Millisecond)

	e.Stop(ctx)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after Stop()")
	}

	// The startup reconciliation should have materialized a.txt on the hub.
	id, err := store.GetContentId(ctx, "a.txt")
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestEngine_IgnoreListLenReflectsOutstandingPredictions(t *testing.T) {
	root := t.TempDir()
	store := newTestStore(t)
	hub := newFakeHubClient()

	e := New(root, store, hub, testLogger(t), time.Minute)
	e.ignore.Push(OperationalMessage{Kind: NewLocalFile, RelativePath: "a.txt"})

	assert.Equal(t, 1, e.IgnoreListLen())
}
