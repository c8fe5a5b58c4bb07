package bptree

import (
	"bpindex/buffer"
	"bpindex/diskio"
	"bpindex/keyval"

	"github.com/sirupsen/logrus"
)

// Insert adds (key, value) to the tree. It returns ErrDuplicateKey if key is
// already present — spec.md's DATA MODEL invariant that keys are unique
// within a tree.
func (t *Tree) Insert(key keyval.Key, value keyval.Value) error {
	if t.root == diskio.InvalidPageID {
		return t.startNewTree(key, value)
	}

	leaf, guard, err := t.FindLeaf(key, false)
	if err != nil {
		return err
	}

	if _, ok := leaf.insertLeaf(key, value, t.cmp); !ok {
		t.release(guard, false)
		return ErrDuplicateKey
	}

	// spec.md section 9, open question 6: insert first, then split only if
	// the insert pushed the node strictly over max_size. Splitting before
	// checking (or splitting at == rather than >) would leave one half
	// under min_size for certain max_size parities.
	if leaf.size <= leaf.maxSize {
		t.writeNode(leaf, guard)
		t.release(guard, true)
		return nil
	}

	return t.insertIntoLeafOverflow(leaf, guard)
}

// startNewTree materializes the tree's very first page as a leaf root.
func (t *Tree) startNewTree(key keyval.Key, value keyval.Value) error {
	leaf, guard, err := t.allocNode(nodeLeaf)
	if err != nil {
		return err
	}
	leaf.insertLeaf(key, value, t.cmp)
	t.writeNode(leaf, guard)
	t.release(guard, true)

	t.root = leaf.pageID
	return t.dir.Put(t.name, t.root)
}

// insertIntoLeafOverflow splits an over-full leaf into two and links the
// new right half into its parent.
func (t *Tree) insertIntoLeafOverflow(leaf *node, leafGuard *buffer.PageGuard) error {
	right, rightGuard, err := t.allocNode(nodeLeaf)
	if err != nil {
		t.release(leafGuard, true)
		return err
	}

	leaf.moveHalfTo(right)
	right.nextPageID = leaf.nextPageID
	leaf.nextPageID = right.pageID
	right.parentPageID = leaf.parentPageID
	separator := right.keys[0]

	t.log.WithFields(logrus.Fields{"left": leaf.pageID, "right": right.pageID}).Debug("bptree: split leaf")

	t.writeNode(leaf, leafGuard)
	parentID := leaf.parentPageID
	leftID := leaf.pageID
	t.release(leafGuard, true)

	t.writeNode(right, rightGuard)
	return t.insertIntoParent(parentID, leftID, separator, right, rightGuard)
}

// splitInternal splits an over-full internal node, reparenting every child
// handed to the new right half.
func (t *Tree) splitInternal(left *node) (*node, *buffer.PageGuard, keyval.Key, error) {
	right, rightGuard, err := t.allocNode(nodeInternal)
	if err != nil {
		return nil, nil, keyval.Key{}, err
	}

	mid := left.size / 2
	separator := left.keys[mid]

	rightKeys := make([]keyval.Key, left.size-mid)
	copy(rightKeys[1:], left.keys[mid+1:left.size])
	rightChildren := append([]diskio.PageID(nil), left.children[mid:left.size]...)

	right.keys = rightKeys
	right.children = rightChildren
	right.size = len(rightChildren)
	right.parentPageID = left.parentPageID

	left.keys = left.keys[:mid]
	left.children = left.children[:mid]
	left.size = mid

	for _, child := range right.children {
		if err := t.reparent(child, right.pageID); err != nil {
			t.release(rightGuard, true)
			return nil, nil, keyval.Key{}, err
		}
	}

	t.log.WithFields(logrus.Fields{"left": left.pageID, "right": right.pageID}).Debug("bptree: split internal node")
	return right, rightGuard, separator, nil
}

// insertIntoInternalOverflow splits an internal node that overflowed after
// insertNodeAfter and propagates the new separator one level up.
func (t *Tree) insertIntoInternalOverflow(left *node, leftGuard *buffer.PageGuard) error {
	right, rightGuard, separator, err := t.splitInternal(left)
	if err != nil {
		t.release(leftGuard, true)
		return err
	}

	t.writeNode(left, leftGuard)
	parentID := left.parentPageID
	leftID := left.pageID
	t.release(leftGuard, true)

	t.writeNode(right, rightGuard)
	return t.insertIntoParent(parentID, leftID, separator, right, rightGuard)
}

// insertIntoParent links a freshly split right-hand node into its parent,
// creating a new root if the split propagated all the way up past the
// current root (spec.md section 4.E, "InsertIntoParent").
func (t *Tree) insertIntoParent(parentID diskio.PageID, leftID diskio.PageID, key keyval.Key, right *node, rightGuard *buffer.PageGuard) error {
	if parentID == diskio.InvalidPageID {
		newRoot, newRootGuard, err := t.allocNode(nodeInternal)
		if err != nil {
			t.release(rightGuard, true)
			return err
		}
		newRoot.populateNewRoot(leftID, key, right.pageID)
		t.writeNode(newRoot, newRootGuard)

		right.parentPageID = newRoot.pageID
		t.writeNode(right, rightGuard)
		t.release(rightGuard, true)
		t.release(newRootGuard, true)

		if err := t.reparent(leftID, newRoot.pageID); err != nil {
			return err
		}

		t.log.WithField("new_root", newRoot.pageID).Debug("bptree: grew a new root")
		t.root = newRoot.pageID
		return t.dir.Put(t.name, t.root)
	}

	parent, parentGuard, err := t.fetchNode(parentID)
	if err != nil {
		t.release(rightGuard, true)
		return err
	}

	right.parentPageID = parentID
	t.writeNode(right, rightGuard)
	t.release(rightGuard, true)

	parent.insertNodeAfter(leftID, key, right.pageID)

	if parent.size <= parent.maxSize {
		t.writeNode(parent, parentGuard)
		t.release(parentGuard, true)
		return nil
	}

	return t.insertIntoInternalOverflow(parent, parentGuard)
}
