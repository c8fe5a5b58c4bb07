package diskio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManagerAllocateReadWrite(t *testing.T) {
	m := NewMemoryManager()

	id, err := m.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, PageID(0), id)

	buf := make([]byte, PageSize)
	copy(buf, []byte("payload"))
	require.NoError(t, m.WritePage(id, buf))

	readBack := make([]byte, PageSize)
	require.NoError(t, m.ReadPage(id, readBack))
	assert.Equal(t, "payload", string(readBack[:7]))
}

func TestMemoryManagerReadUnwrittenPageIsZeroed(t *testing.T) {
	m := NewMemoryManager()
	id, err := m.AllocatePage()
	require.NoError(t, err)

	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	require.NoError(t, m.ReadPage(id, buf))
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestMemoryManagerWriteLogOrder(t *testing.T) {
	m := NewMemoryManager()
	ids := make([]PageID, 3)
	for i := range ids {
		id, err := m.AllocatePage()
		require.NoError(t, err)
		ids[i] = id
	}

	buf := make([]byte, PageSize)
	for _, id := range []PageID{ids[2], ids[0], ids[1]} {
		require.NoError(t, m.WritePage(id, buf))
	}

	assert.Equal(t, []PageID{ids[2], ids[0], ids[1]}, m.WriteLog)
}

func TestMemoryManagerRejectsWrongBufferSize(t *testing.T) {
	m := NewMemoryManager()
	id, err := m.AllocatePage()
	require.NoError(t, err)

	err = m.WritePage(id, make([]byte, 10))
	assert.Error(t, err)
}
