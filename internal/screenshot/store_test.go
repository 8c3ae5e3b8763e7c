package screenshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngStub = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestSaveNamesByDateAndSequence(t *testing.T) {
	store, err := NewStore(t.TempDir(), "screenshot")
	require.NoError(t, err)
	store.now = func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	}

	path1, name1, err := store.Save(pngStub)
	require.NoError(t, err)
	_, name2, err := store.Save(pngStub)
	require.NoError(t, err)

	assert.Equal(t, "screenshot_2026-03-14_0001.png", name1)
	assert.Equal(t, "screenshot_2026-03-14_0002.png", name2)

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, pngStub, data)
}

func TestSequenceResetsOnNewDay(t *testing.T) {
	store, err := NewStore(t.TempDir(), "shot")
	require.NoError(t, err)

	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	store.now = func() time.Time { return day }
	_, name, err := store.Save(pngStub)
	require.NoError(t, err)
	assert.Equal(t, "shot_2026-03-14_0001.png", name)

	day = day.Add(2 * time.Minute)
	_, name, err = store.Save(pngStub)
	require.NoError(t, err)
	assert.Equal(t, "shot_2026-03-15_0001.png", name)
}

func TestSequenceSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	when := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	store, err := NewStore(dir, "shot")
	require.NoError(t, err)
	store.now = func() time.Time { return when }
	_, _, err = store.Save(pngStub)
	require.NoError(t, err)

	reopened, err := NewStore(dir, "shot")
	require.NoError(t, err)
	reopened.now = func() time.Time { return when }
	_, name, err := reopened.Save(pngStub)
	require.NoError(t, err)
	assert.Equal(t, "shot_2026-03-14_0002.png", name)
}

func TestSaveRejectsEmptyData(t *testing.T) {
	store, err := NewStore(t.TempDir(), "shot")
	require.NoError(t, err)

	_, _, err = store.Save(nil)
	require.Error(t, err)

	entries, err := filepath.Glob(filepath.Join(store.Dir(), "*.png"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
