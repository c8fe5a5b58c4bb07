package bptree

import (
	"math/rand"
	"testing"

	"bpindex/buffer"
	"bpindex/catalog"
	"bpindex/diskio"
	"bpindex/keyval"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, poolSize int, cfg Config) *Tree {
	t.Helper()
	disk := diskio.NewMemoryManager()
	pool := buffer.New(buffer.Config{PoolSize: poolSize}, disk, logrus.New())
	dir, err := catalog.Open(pool)
	require.NoError(t, err)
	tree, err := Open("t1", pool, dir, keyval.ByteOrderComparator, cfg, logrus.New())
	require.NoError(t, err)
	return tree
}

func smallConfig() Config {
	return Config{LeafMaxSize: 4, InternalMaxSize: 4}
}

func key(n int64) keyval.Key { return keyval.Int64Key(n) }

func value(n int64) keyval.Value {
	return keyval.RID{PageID: int32(n), Slot: uint32(n)}.Encode()
}

// TestBasicInsertAndLookup covers spec.md scenario S1.
func TestBasicInsertAndLookup(t *testing.T) {
	tree := newTestTree(t, 16, smallConfig())

	for _, n := range []int64{5, 1, 9, 3, 7} {
		require.NoError(t, tree.Insert(key(n), value(n)))
	}

	for _, n := range []int64{5, 1, 9, 3, 7} {
		v, ok, err := tree.GetValue(key(n))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value(n), v)
	}

	_, ok, err := tree.GetValue(key(42))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertDuplicateKeyRejected(t *testing.T) {
	tree := newTestTree(t, 16, smallConfig())
	require.NoError(t, tree.Insert(key(1), value(1)))
	require.ErrorIs(t, tree.Insert(key(1), value(2)), ErrDuplicateKey)

	v, ok, err := tree.GetValue(key(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value(1), v)
}

// TestAscendingIteration covers spec.md's ascending-key-order property via
// the forward iterator, independent of insertion order.
func TestAscendingIteration(t *testing.T) {
	tree := newTestTree(t, 32, smallConfig())
	order := []int64{50, 10, 90, 30, 70, 20, 80, 40, 60, 0}
	for _, n := range order {
		require.NoError(t, tree.Insert(key(n), value(n)))
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	defer it.Close()

	var seen []int64
	for !it.IsEnd() {
		seen = append(seen, it.Key().Int64())
		require.NoError(t, it.Next())
	}

	want := []int64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}
	require.Equal(t, want, seen)
}

// TestScaleTo9999Keys covers spec.md scenario S3: insert 9999 keys, verify
// all are reachable and iterate in order, then delete all but 100 of them
// in randomized order — exercising every coalesceOrRedistribute shape
// (leftmost/rightmost/interior underflow, with and without sibling surplus)
// — and confirm the survivors are still correct under both lookup and scan.
func TestScaleTo9999Keys(t *testing.T) {
	tree := newTestTree(t, 64, DefaultConfig())

	const n = 9999
	const survivors = 100
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(key(int64(i)), value(int64(i))))
	}

	for i := 0; i < n; i++ {
		v, ok, err := tree.GetValue(key(int64(i)))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value(int64(i)), v)
	}

	it, err := tree.Begin()
	require.NoError(t, err)

	count := 0
	var prev int64 = -1
	for !it.IsEnd() {
		cur := it.Key().Int64()
		require.Greater(t, cur, prev)
		prev = cur
		count++
		require.NoError(t, it.Next())
	}
	it.Close()
	require.Equal(t, n, count)

	toDelete := make([]int64, n-survivors)
	for i := range toDelete {
		toDelete[i] = int64(i)
	}
	rng := rand.New(rand.NewSource(9999))
	rng.Shuffle(len(toDelete), func(i, j int) { toDelete[i], toDelete[j] = toDelete[j], toDelete[i] })

	for _, k := range toDelete {
		require.NoError(t, tree.Remove(key(k)))
	}

	for _, k := range toDelete {
		_, ok, err := tree.GetValue(key(k))
		require.NoError(t, err)
		require.False(t, ok, "key %d should have been deleted", k)
	}

	for i := int64(n - survivors); i < n; i++ {
		v, ok, err := tree.GetValue(key(i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value(i), v)
	}

	it2, err := tree.Begin()
	require.NoError(t, err)
	defer it2.Close()

	var seen []int64
	prev = -1
	for !it2.IsEnd() {
		cur := it2.Key().Int64()
		require.Greater(t, cur, prev)
		prev = cur
		seen = append(seen, cur)
		require.NoError(t, it2.Next())
	}

	want := make([]int64, survivors)
	for i := range want {
		want[i] = int64(n-survivors) + int64(i)
	}
	require.Equal(t, want, seen)
}

// TestReverseInsertForcesMultipleLevels covers spec.md scenario S4.
func TestReverseInsertForcesMultipleLevels(t *testing.T) {
	tree := newTestTree(t, 64, smallConfig())

	const n = 200
	for i := n - 1; i >= 0; i-- {
		require.NoError(t, tree.Insert(key(int64(i)), value(int64(i))))
	}

	root, _, err := tree.fetchNode(tree.root)
	require.NoError(t, err)
	require.False(t, root.isLeaf(), "root should have split into an internal node")

	for i := 0; i < n; i++ {
		v, ok, err := tree.GetValue(key(int64(i)))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value(int64(i)), v)
	}
}

// TestDeleteThenLookupMiss covers spec.md's delete-idempotence and
// round-trip invariants together.
func TestDeleteThenLookupMiss(t *testing.T) {
	tree := newTestTree(t, 32, smallConfig())
	for _, n := range []int64{1, 2, 3, 4, 5, 6, 7, 8} {
		require.NoError(t, tree.Insert(key(n), value(n)))
	}

	require.NoError(t, tree.Remove(key(4)))
	_, ok, err := tree.GetValue(key(4))
	require.NoError(t, err)
	require.False(t, ok)

	// deleting again is a no-op, not an error
	require.NoError(t, tree.Remove(key(4)))

	for _, n := range []int64{1, 2, 3, 5, 6, 7, 8} {
		_, ok, err := tree.GetValue(key(n))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

// TestDeleteCascadesMerges covers spec.md scenario S2: deleting enough keys
// that coalesce cascades up multiple levels, eventually collapsing the root.
func TestDeleteCascadesMerges(t *testing.T) {
	tree := newTestTree(t, 64, smallConfig())

	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Insert(key(int64(i)), value(int64(i))))
	}

	for i := 0; i < n-1; i++ {
		require.NoError(t, tree.Remove(key(int64(i))))
	}

	v, ok, err := tree.GetValue(key(int64(n - 1)))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value(int64(n-1)), v)

	for i := 0; i < n-1; i++ {
		_, ok, err := tree.GetValue(key(int64(i)))
		require.NoError(t, err)
		require.False(t, ok)
	}

	require.NoError(t, tree.Remove(key(int64(n-1))))
	require.Equal(t, diskio.InvalidPageID, tree.root)
}

// TestRootSurvivesReopen ensures the root page id is recoverable from the
// catalog after reopening the index on the same pool under a fresh Tree value, exercising
// component G end to end.
func TestRootSurvivesReopen(t *testing.T) {
	disk := diskio.NewMemoryManager()
	pool := buffer.New(buffer.Config{PoolSize: 32}, disk, logrus.New())
	dir, err := catalog.Open(pool)
	require.NoError(t, err)

	tree, err := Open("people", pool, dir, keyval.ByteOrderComparator, smallConfig(), logrus.New())
	require.NoError(t, err)
	for _, n := range []int64{1, 2, 3, 4, 5} {
		require.NoError(t, tree.Insert(key(n), value(n)))
	}

	reopened, err := Open("people", pool, dir, keyval.ByteOrderComparator, smallConfig(), logrus.New())
	require.NoError(t, err)
	require.Equal(t, tree.root, reopened.root)

	v, ok, err := reopened.GetValue(key(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value(3), v)
}
