package bptree

import (
	"bpindex/diskio"
	"bpindex/keyval"
)

// lookupChild finds the rightmost separator <= key and returns that child
// (spec.md section 4.D, internal.lookup).
func (n *node) lookupChild(key keyval.Key, cmp keyval.Comparator) diskio.PageID {
	i := 1
	for i < n.size && cmp(n.keys[i], key) <= 0 {
		i++
	}
	return n.children[i-1]
}

// valueIndex linear-searches for a child pointer's index.
func (n *node) valueIndex(childID diskio.PageID) int {
	for i, c := range n.children {
		if c == childID {
			return i
		}
	}
	return -1
}

func (n *node) valueAt(i int) diskio.PageID { return n.children[i] }
func (n *node) keyAt(i int) keyval.Key      { return n.keys[i] }
func (n *node) setKeyAt(i int, k keyval.Key) { n.keys[i] = k }

// insertNodeAfter inserts (key, newChild) immediately after oldChild.
func (n *node) insertNodeAfter(oldChild diskio.PageID, key keyval.Key, newChild diskio.PageID) {
	idx := n.valueIndex(oldChild)
	n.keys = insertAt(n.keys, idx+1, key)
	n.children = insertAt(n.children, idx+1, newChild)
	n.size++
}

// populateNewRoot turns an empty internal node into a fresh root with two
// children — used when splitting the tree's current root.
func (n *node) populateNewRoot(left diskio.PageID, key keyval.Key, right diskio.PageID) {
	n.children = []diskio.PageID{left, right}
	n.keys = []keyval.Key{{}, key}
	n.size = 2
}

// removeAndReturnOnlyChild returns the sole remaining child — used by
// AdjustRoot when an internal root collapses to a single child.
func (n *node) removeAndReturnOnlyChild() diskio.PageID {
	child := n.children[0]
	n.children = n.children[:0]
	n.keys = n.keys[:0]
	n.size = 0
	return child
}

// removeChildAt removes the child at index i (i must be >= 1, since the
// child being removed during a coalesce is always the right sibling of
// some other surviving child) along with its preceding separator key.
func (n *node) removeChildAt(i int) {
	n.children = removeAt(n.children, i)
	n.keys = removeAt(n.keys, i)
	n.size--
}
