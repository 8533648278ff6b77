package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"wikai/internal/schema"
)

func TestWatcherPicksUpExternalFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	lib, err := NewLibrary(dir)
	require.NoError(t, err)

	w, err := NewWatcher(lib, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Simulate another process dropping a pattern file into the Commons.
	p := schema.Pattern{
		ID:        "WIKAI_0042",
		Title:     "External contribution",
		Axiom:     "Other writers exist",
		Timestamp: schema.NowTimestamp(),
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WIKAI_0042_external_contribution.json"), data, 0644))

	require.Eventually(t, func() bool {
		_, err := lib.Get("WIKAI_0042")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond, "externally written pattern never appeared in the cache")

	// The high-water mark must have advanced past the external ID.
	id, err := lib.Capture(schema.Pattern{Title: "After external", Axiom: "x"})
	require.NoError(t, err)
	require.Equal(t, "WIKAI_0043", id)
}

func TestWatcherIgnoresTempFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	lib, err := NewLibrary(dir)
	require.NoError(t, err)

	w, err := NewWatcher(lib, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".wikai-123.tmp"), []byte("partial"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a pattern"), 0644))

	time.Sleep(150 * time.Millisecond)
	stats := w.Stats()
	require.Zero(t, stats.Events, "temp and non-json files must not count as watcher events")

	w.Stop()
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	lib, err := NewLibrary(t.TempDir())
	require.NoError(t, err)

	w, err := NewWatcher(lib, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop() // second call must not panic or block
}
