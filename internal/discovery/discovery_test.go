package discovery

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInstance(t *testing.T, dir string, inst Instance) {
	t.Helper()
	raw, err := json.Marshal(inst)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, inst.ID+".json"), raw, 0644))
}

func TestListDirSkipsGarbage(t *testing.T) {
	dir := t.TempDir()
	writeInstance(t, dir, Instance{ID: "abc", Port: 7800, PID: 42, StartedAt: time.Now()})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore"), 0644))

	instances, err := listDir(dir)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "abc", instances[0].ID)
	assert.Equal(t, 7800, instances[0].Port)
}

func TestWatcherPicksUpNewInstance(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, log.New(io.Discard))
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, w.Instances())

	writeInstance(t, dir, Instance{ID: "fresh", Port: 7801, PID: 43, StartedAt: time.Now()})

	deadline := time.Now().Add(3 * time.Second)
	for len(w.Instances()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	instances := w.Instances()
	require.Len(t, instances, 1)
	assert.Equal(t, "fresh", instances[0].ID)
}

func TestWatcherSignalsChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, log.New(io.Discard))
	require.NoError(t, err)
	defer w.Close()

	// Drain the initial-load notification.
	select {
	case <-w.Changes():
	default:
	}

	writeInstance(t, dir, Instance{ID: "seen", Port: 7803, PID: 45, StartedAt: time.Now()})

	select {
	case <-w.Changes():
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification after instance file appeared")
	}
	require.Len(t, w.Instances(), 1)
}

func TestWatcherDropsRemovedInstance(t *testing.T) {
	dir := t.TempDir()
	writeInstance(t, dir, Instance{ID: "gone", Port: 7802, PID: 44, StartedAt: time.Now()})

	w, err := NewWatcher(dir, log.New(io.Discard))
	require.NoError(t, err)
	defer w.Close()
	require.Len(t, w.Instances(), 1)

	require.NoError(t, os.Remove(filepath.Join(dir, "gone.json")))

	deadline := time.Now().Add(3 * time.Second)
	for len(w.Instances()) > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Empty(t, w.Instances())
}
