package bptree

import (
	"bpindex/buffer"
	"bpindex/diskio"
	"bpindex/keyval"

	"github.com/sirupsen/logrus"
)

// Remove deletes key from the tree, if present. Removing an absent key is
// not an error — spec.md's TESTABLE PROPERTIES requires delete idempotence
// — and, per spec.md section 9 open question 5, the not-found path always
// unpins the leaf clean rather than leaving its dirty-vs-clean state
// inconsistent with whatever path the lookup happened to take.
func (t *Tree) Remove(key keyval.Key) error {
	if t.root == diskio.InvalidPageID {
		return nil
	}

	leaf, guard, err := t.FindLeaf(key, false)
	if err != nil {
		return err
	}

	i := leaf.keyIndex(key, t.cmp)
	if i >= leaf.size || t.cmp(leaf.keys[i], key) != 0 {
		t.release(guard, false)
		return nil
	}

	leaf.removeAtIndex(i)
	t.writeNode(leaf, guard)
	return t.coalesceOrRedistribute(leaf, guard)
}

// coalesceOrRedistribute restores the min_size invariant for an
// underflowed node by borrowing from a sibling (Redistribute) or merging
// with one (Coalesce), recursing up the tree as a coalesce can itself
// underflow the parent (spec.md section 4.E).
func (t *Tree) coalesceOrRedistribute(n *node, guard *buffer.PageGuard) error {
	if n.parentPageID == diskio.InvalidPageID {
		return t.adjustRoot(n, guard)
	}

	if n.size >= n.minSize() {
		t.release(guard, true)
		return nil
	}

	parent, parentGuard, err := t.fetchNode(n.parentPageID)
	if err != nil {
		t.release(guard, true)
		return err
	}

	idx := parent.valueIndex(n.pageID)

	var left, right *node
	var leftGuard, rightGuard *buffer.PageGuard
	if idx > 0 {
		left, leftGuard, err = t.fetchNode(parent.valueAt(idx - 1))
		if err != nil {
			t.release(guard, true)
			t.release(parentGuard, false)
			return err
		}
	}
	if idx < parent.size-1 {
		right, rightGuard, err = t.fetchNode(parent.valueAt(idx + 1))
		if err != nil {
			t.release(guard, true)
			if left != nil {
				t.release(leftGuard, false)
			}
			t.release(parentGuard, false)
			return err
		}
	}

	// spec.md section 4.E: examine the left sibling for surplus first,
	// then the right; merge only if neither has one.
	if left != nil && left.size > left.minSize() {
		if right != nil {
			t.release(rightGuard, false)
		}
		return t.redistributeAndRelease(n, guard, left, leftGuard, parent, parentGuard, idx, true)
	}

	if right != nil && right.size > right.minSize() {
		if left != nil {
			t.release(leftGuard, false)
		}
		return t.redistributeAndRelease(n, guard, right, rightGuard, parent, parentGuard, idx, false)
	}

	// Neither sibling has spare capacity: merge, preferring the left
	// sibling when one exists.
	if left != nil {
		if right != nil {
			t.release(rightGuard, false)
		}
		return t.coalesceWithSibling(n, guard, left, leftGuard, parent, parentGuard, idx, true)
	}
	return t.coalesceWithSibling(n, guard, right, rightGuard, parent, parentGuard, idx, false)
}

// redistributeAndRelease borrows a slot from sibling into n — from the left
// if fromLeft, else from the right — and releases all three guards dirty.
func (t *Tree) redistributeAndRelease(n *node, guard *buffer.PageGuard, sibling *node, siblingGuard *buffer.PageGuard, parent *node, parentGuard *buffer.PageGuard, idx int, fromLeft bool) error {
	t.log.WithFields(logrus.Fields{"node": n.pageID, "sibling": sibling.pageID, "from_left": fromLeft}).Debug("bptree: redistribute")

	var err error
	if fromLeft {
		err = t.redistributeFromLeft(sibling, n, parent, idx)
	} else {
		err = t.redistributeFromRight(n, sibling, parent, idx)
	}
	if err != nil {
		t.release(guard, true)
		t.release(siblingGuard, true)
		t.release(parentGuard, true)
		return err
	}

	t.writeNode(sibling, siblingGuard)
	t.writeNode(n, guard)
	t.writeNode(parent, parentGuard)
	t.release(siblingGuard, true)
	t.release(guard, true)
	t.release(parentGuard, true)
	return nil
}

// coalesceWithSibling merges n with its left or right sibling (the right
// node of the pair is always merged into the left one), removes the
// now-empty right page, and recurses on the parent, which may itself have
// just underflowed.
func (t *Tree) coalesceWithSibling(n *node, guard *buffer.PageGuard, sibling *node, siblingGuard *buffer.PageGuard, parent *node, parentGuard *buffer.PageGuard, idx int, siblingIsLeft bool) error {
	var left, right *node
	var leftGuard, rightGuard *buffer.PageGuard
	var rightIdx int
	if siblingIsLeft {
		left, leftGuard = sibling, siblingGuard
		right, rightGuard = n, guard
		rightIdx = idx
	} else {
		left, leftGuard = n, guard
		right, rightGuard = sibling, siblingGuard
		rightIdx = idx + 1
	}

	t.log.WithFields(logrus.Fields{"left": left.pageID, "right": right.pageID}).Debug("bptree: coalesce")

	separator := parent.keyAt(rightIdx)
	if err := t.coalesce(left, right, separator); err != nil {
		t.release(leftGuard, true)
		t.release(rightGuard, true)
		t.release(parentGuard, false)
		return err
	}

	t.writeNode(left, leftGuard)
	t.release(leftGuard, true)
	t.release(rightGuard, false)

	if _, err := t.pool.DeletePage(right.pageID); err != nil {
		t.release(parentGuard, false)
		return err
	}

	parent.removeChildAt(rightIdx)
	t.writeNode(parent, parentGuard)
	return t.coalesceOrRedistribute(parent, parentGuard)
}

// coalesce merges right's contents into left. For internal nodes, separator
// is the parent key that used to sit between left and right — it becomes
// the separator in front of right's first child inside the merged node —
// and every moved child is reparented to left.
func (t *Tree) coalesce(left, right *node, separator keyval.Key) error {
	if left.isLeaf() {
		right.moveAllTo(left)
		return nil
	}

	left.keys = append(left.keys, separator)
	left.keys = append(left.keys, right.keys[1:right.size]...)
	left.children = append(left.children, right.children[:right.size]...)
	left.size = len(left.children)

	for _, child := range right.children[:right.size] {
		if err := t.reparent(child, left.pageID); err != nil {
			return err
		}
	}
	right.children = right.children[:0]
	right.keys = right.keys[:0]
	right.size = 0
	return nil
}

// redistributeFromLeft borrows left's last slot/child, making it right's
// new first slot/child, and repairs the separator key in parent at idx
// (the index of right within parent).
func (t *Tree) redistributeFromLeft(left, right, parent *node, idx int) error {
	if left.isLeaf() {
		left.moveLastToFrontOf(right)
		parent.setKeyAt(idx, right.keys[0])
		return nil
	}

	last := left.size - 1
	borrowedChild := left.children[last]
	oldSeparator := left.keys[last]

	left.children = left.children[:last]
	left.keys = left.keys[:last]
	left.size--

	right.children = insertAt(right.children, 0, borrowedChild)
	right.keys = insertAt(right.keys, 0, keyval.Key{})
	right.keys[1] = parent.keyAt(idx)
	right.size++

	parent.setKeyAt(idx, oldSeparator)
	return t.reparent(borrowedChild, right.pageID)
}

// redistributeFromRight borrows right's first slot/child, appending it to
// left, and repairs the separator key in parent at idx+1 (the index of
// right within parent).
func (t *Tree) redistributeFromRight(left, right, parent *node, idx int) error {
	if left.isLeaf() {
		right.moveFirstToEndOf(left)
		parent.setKeyAt(idx+1, right.keys[0])
		return nil
	}

	borrowedChild := right.children[0]
	newSeparatorForParent := right.keys[1]
	oldSeparator := parent.keyAt(idx + 1)

	right.children = removeAt(right.children, 0)
	right.keys = removeAt(right.keys, 0)
	right.size--

	left.children = append(left.children, borrowedChild)
	left.keys = append(left.keys, oldSeparator)
	left.size++

	parent.setKeyAt(idx+1, newSeparatorForParent)
	return t.reparent(borrowedChild, left.pageID)
}

// adjustRoot handles the two cases a root can end up in after a delete:
// an emptied leaf root (the tree becomes empty) or an internal root
// collapsed to a single child (that child becomes the new root).
func (t *Tree) adjustRoot(n *node, guard *buffer.PageGuard) error {
	if n.isLeaf() {
		if n.size > 0 {
			t.writeNode(n, guard)
			t.release(guard, true)
			return nil
		}

		t.release(guard, false)
		if _, err := t.pool.DeletePage(n.pageID); err != nil {
			return err
		}
		t.root = diskio.InvalidPageID
		return t.dir.Put(t.name, t.root)
	}

	if n.size > 1 {
		t.writeNode(n, guard)
		t.release(guard, true)
		return nil
	}

	onlyChild := n.removeAndReturnOnlyChild()
	t.release(guard, false)
	if _, err := t.pool.DeletePage(n.pageID); err != nil {
		return err
	}

	t.log.WithFields(logrus.Fields{"old_root": n.pageID, "new_root": onlyChild}).Debug("bptree: root collapsed to single child")
	t.root = onlyChild
	if err := t.reparent(onlyChild, diskio.InvalidPageID); err != nil {
		return err
	}
	return t.dir.Put(t.name, t.root)
}
