package bptree

import (
	"bpindex/buffer"
	"bpindex/catalog"
	"bpindex/diskio"
	"bpindex/keyval"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateKey is returned by Insert when the key is already present.
var ErrDuplicateKey = errors.New("bptree: duplicate key")

// ErrOutOfMemory is the fatal out-of-memory fault spec.md section 7
// requires when a structural change needs a fresh page and the buffer pool
// has none to give: every frame is pinned, so growth is impossible without
// losing data the caller would otherwise expect to survive.
var ErrOutOfMemory = errors.New("bptree: buffer pool exhausted, cannot allocate page")

// Tree is a B+ tree index built entirely on top of a buffer.Pool (spec.md
// components D, E, F). It never touches a diskio.Manager directly — every
// page access goes through the pool.
//
// Tree holds no lock of its own and takes no latches on tree pages: its
// operations are not serialized against one another. The buffer pool it
// uses is safe for concurrent use on its own.
type Tree struct {
	name string
	cfg  Config
	pool *buffer.Pool
	dir  *catalog.Directory
	cmp  keyval.Comparator
	log  *logrus.Logger

	root diskio.PageID
}

// Open returns the named B+ tree index, creating it (with an empty, not
// yet materialized root) if this is the first time name has been opened
// against dir. cmp orders keys; pass keyval.ByteOrderComparator for the
// common case of keys built with keyval.Int64Key.
func Open(name string, pool *buffer.Pool, dir *catalog.Directory, cmp keyval.Comparator, cfg Config, log *logrus.Logger) (*Tree, error) {
	if cmp == nil {
		cmp = keyval.ByteOrderComparator
	}
	if cfg.LeafMaxSize == 0 || cfg.InternalMaxSize == 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	root, err := dir.Lookup(name)
	if err != nil {
		return nil, err
	}

	return &Tree{
		name: name,
		cfg:  cfg,
		pool: pool,
		dir:  dir,
		cmp:  cmp,
		log:  log,
		root: root,
	}, nil
}

// fetchNode fetches and decodes the node at id, returning it together with
// the guard that pins it. Callers must release the guard exactly once.
func (t *Tree) fetchNode(id diskio.PageID) (*node, *buffer.PageGuard, error) {
	guard, err := t.pool.Fetch(id)
	if err != nil {
		if errors.Is(err, buffer.ErrBufferFull) {
			return nil, nil, errors.Wrap(ErrOutOfMemory, "fetchNode")
		}
		return nil, nil, err
	}
	return decodeNode(id, guard.Data()), guard, nil
}

// allocNode allocates a fresh page and an empty node of the given kind,
// returning the node together with the guard that pins it.
func (t *Tree) allocNode(kind nodeType) (*node, *buffer.PageGuard, error) {
	guard, err := t.pool.NewPage()
	if err != nil {
		if errors.Is(err, buffer.ErrBufferFull) {
			return nil, nil, errors.Wrap(ErrOutOfMemory, "allocNode")
		}
		return nil, nil, err
	}

	var n *node
	if kind == nodeLeaf {
		n = newLeafNode(guard.PageID(), t.cfg.LeafMaxSize)
	} else {
		n = newInternalNode(guard.PageID(), t.cfg.InternalMaxSize)
	}
	n.encode(guard.Data())
	guard.MarkDirty()
	return n, guard, nil
}

// writeNode re-encodes n's current in-memory state into guard's buffer and
// marks it dirty.
func (t *Tree) writeNode(n *node, guard *buffer.PageGuard) {
	n.encode(guard.Data())
	guard.MarkDirty()
}

// release unpins guard, applying dirty on top of whatever the guard already
// accumulated via MarkDirty.
func (t *Tree) release(guard *buffer.PageGuard, dirty bool) {
	guard.Unpin(dirty)
}

// reparent updates a child's parent pointer in place, fetching and
// releasing it itself. Used by split/coalesce/redistribute whenever a
// child moves to a different parent.
func (t *Tree) reparent(childID diskio.PageID, newParent diskio.PageID) error {
	child, guard, err := t.fetchNode(childID)
	if err != nil {
		return err
	}
	child.parentPageID = newParent
	t.writeNode(child, guard)
	t.release(guard, true)
	return nil
}

// FindLeaf descends from the root to the leaf that would contain key (or,
// if leftmost is true, the leftmost leaf regardless of key). It returns
// the pinned leaf node and its guard, or (nil, nil, nil) if the tree is
// empty.
func (t *Tree) FindLeaf(key keyval.Key, leftmost bool) (*node, *buffer.PageGuard, error) {
	if t.root == diskio.InvalidPageID {
		return nil, nil, nil
	}

	cur, guard, err := t.fetchNode(t.root)
	if err != nil {
		return nil, nil, err
	}

	for !cur.isLeaf() {
		var childID diskio.PageID
		if leftmost {
			childID = cur.valueAt(0)
		} else {
			childID = cur.lookupChild(key, t.cmp)
		}
		next, nextGuard, err := t.fetchNode(childID)
		t.release(guard, false)
		if err != nil {
			return nil, nil, err
		}
		cur, guard = next, nextGuard
	}

	return cur, guard, nil
}

// GetValue looks up key and returns its value and true if found, or a zero
// Value and false if not.
func (t *Tree) GetValue(key keyval.Key) (keyval.Value, bool, error) {
	leaf, guard, err := t.FindLeaf(key, false)
	if err != nil {
		return keyval.Value{}, false, err
	}
	if leaf == nil {
		return keyval.Value{}, false, nil
	}
	defer t.release(guard, false)

	v, ok := leaf.lookup(key, t.cmp)
	return v, ok, nil
}
