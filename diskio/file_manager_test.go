package diskio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileManagerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	fm, err := OpenFileManager(path)
	require.NoError(t, err)

	id, err := fm.AllocatePage()
	require.NoError(t, err)

	buf := make([]byte, PageSize)
	copy(buf, []byte("persisted"))
	require.NoError(t, fm.WritePage(id, buf))
	require.NoError(t, fm.Close())

	reopened, err := OpenFileManager(path)
	require.NoError(t, err)
	defer reopened.Close()

	readBack := make([]byte, PageSize)
	require.NoError(t, reopened.ReadPage(id, readBack))
	assert.Equal(t, "persisted", string(readBack[:9]))

	nextID, err := reopened.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, id+1, nextID, "reopen must resume allocation from file size")
}

func TestFileManagerRejectsWrongBufferSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	fm, err := OpenFileManager(path)
	require.NoError(t, err)
	defer fm.Close()

	id, err := fm.AllocatePage()
	require.NoError(t, err)

	err = fm.ReadPage(id, make([]byte, 1))
	assert.Error(t, err)
}

func TestFileManagerReadPastEndOfFileIsZeroed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	fm, err := OpenFileManager(path)
	require.NoError(t, err)
	defer fm.Close()

	id, err := fm.AllocatePage()
	require.NoError(t, err)

	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = 0xAB
	}
	require.NoError(t, fm.ReadPage(id, buf))
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
