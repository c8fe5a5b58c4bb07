package catalog

import (
	"testing"

	"bpindex/buffer"
	"bpindex/diskio"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *buffer.Pool {
	t.Helper()
	disk := diskio.NewMemoryManager()
	return buffer.New(buffer.Config{PoolSize: 8}, disk, logrus.New())
}

func TestLookupMissingNameIsInvalid(t *testing.T) {
	dir, err := Open(newTestPool(t))
	require.NoError(t, err)

	root, err := dir.Lookup("does-not-exist")
	require.NoError(t, err)
	require.Equal(t, diskio.InvalidPageID, root)
}

func TestPutThenLookupRoundTrips(t *testing.T) {
	dir, err := Open(newTestPool(t))
	require.NoError(t, err)

	require.NoError(t, dir.Put("accounts", diskio.PageID(5)))
	require.NoError(t, dir.Put("orders", diskio.PageID(9)))

	root, err := dir.Lookup("accounts")
	require.NoError(t, err)
	require.Equal(t, diskio.PageID(5), root)

	root, err = dir.Lookup("orders")
	require.NoError(t, err)
	require.Equal(t, diskio.PageID(9), root)
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	dir, err := Open(newTestPool(t))
	require.NoError(t, err)

	require.NoError(t, dir.Put("accounts", diskio.PageID(5)))
	require.NoError(t, dir.Put("accounts", diskio.PageID(12)))

	root, err := dir.Lookup("accounts")
	require.NoError(t, err)
	require.Equal(t, diskio.PageID(12), root)
}

func TestPutRejectsOverlongName(t *testing.T) {
	dir, err := Open(newTestPool(t))
	require.NoError(t, err)

	long := make([]byte, maxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	require.ErrorIs(t, dir.Put(string(long), diskio.PageID(1)), ErrNameTooLong)
}

func TestHeaderPageReservesPageZero(t *testing.T) {
	pool := newTestPool(t)
	_, err := Open(pool)
	require.NoError(t, err)

	guard, err := pool.NewPage()
	require.NoError(t, err)
	require.NotEqual(t, diskio.HeaderPageID, guard.PageID())
	guard.Unpin(false)
}

func TestDirectoryPersistsAcrossOpens(t *testing.T) {
	pool := newTestPool(t)
	dir, err := Open(pool)
	require.NoError(t, err)
	require.NoError(t, dir.Put("accounts", diskio.PageID(7)))

	reopened, err := Open(pool)
	require.NoError(t, err)
	root, err := reopened.Lookup("accounts")
	require.NoError(t, err)
	require.Equal(t, diskio.PageID(7), root)
}
