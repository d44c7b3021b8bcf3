package storage

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("1700_aadhaar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "1700_aadhaar.png", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(name))
	_, err = store.Open(name)
	assert.Error(t, err)

	// Deleting an already missing file is not an error.
	assert.NoError(t, store.Delete(name))
}

func TestLocalStorageCleanupKeepsReferencedFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	for _, name := range []string{"orphan.png", "live.png", "fresh.png"} {
		_, err := store.SaveStream(name, strings.NewReader("x"))
		require.NoError(t, err)
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(dir+"/orphan.png", old, old))
	require.NoError(t, os.Chtimes(dir+"/live.png", old, old))

	deleted, err := store.CleanupOlderThan(24*time.Hour, map[string]struct{}{"live.png": {}})
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan.png"}, deleted)

	_, err = store.Open("live.png")
	assert.NoError(t, err)
	_, err = store.Open("fresh.png")
	assert.NoError(t, err)
}
