package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLogger returns a logger that writes through t.Log, so output only
// appears for failing (or -v) tests.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Logf("%s", p)

	return len(p), nil
}

// newTestStore opens an in-memory index database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(":memory:", testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}
