package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplacerVictimIsLeastRecentlyUnpinned(t *testing.T) {
	r := newLRUReplacer(8)

	r.unpin(1)
	r.unpin(2)
	r.unpin(3)

	id, ok := r.victim()
	assert.True(t, ok)
	assert.Equal(t, FrameID(1), id)

	id, ok = r.victim()
	assert.True(t, ok)
	assert.Equal(t, FrameID(2), id)
}

func TestReplacerRefreshOnReUnpin(t *testing.T) {
	r := newLRUReplacer(8)

	r.unpin(1)
	r.unpin(2)
	r.unpin(1) // refresh 1 to most-recently-unpinned

	id, ok := r.victim()
	assert.True(t, ok)
	assert.Equal(t, FrameID(2), id, "1 was refreshed and should no longer be the oldest")
}

func TestReplacerPinRemovesCandidate(t *testing.T) {
	r := newLRUReplacer(8)

	r.unpin(1)
	r.pin(1)

	_, ok := r.victim()
	assert.False(t, ok)
}

// TestReplacerEmptyVictim is spec.md section 9, open question 4: victim()
// on an empty candidate set simply reports false, no uninitialized-out-param
// nonsense.
func TestReplacerEmptyVictim(t *testing.T) {
	r := newLRUReplacer(4)
	_, ok := r.victim()
	assert.False(t, ok)
}

func TestReplacerSize(t *testing.T) {
	r := newLRUReplacer(8)
	assert.Equal(t, 0, r.size())
	r.unpin(1)
	r.unpin(2)
	assert.Equal(t, 2, r.size())
	r.pin(1)
	assert.Equal(t, 1, r.size())
}
