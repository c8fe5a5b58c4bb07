package bptree

import "bpindex/keyval"

// keyIndex returns the smallest index i with keys[i] >= key under cmp —
// the insertion index (spec.md section 4.D, leaf.key_index).
func (n *node) keyIndex(key keyval.Key, cmp keyval.Comparator) int {
	lo, hi := 0, n.size
	for lo < hi {
		mid := lo + (hi-lo)/2
		if cmp(n.keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// lookup returns the value stored for key, if present.
func (n *node) lookup(key keyval.Key, cmp keyval.Comparator) (keyval.Value, bool) {
	i := n.keyIndex(key, cmp)
	if i < n.size && cmp(n.keys[i], key) == 0 {
		return n.values[i], true
	}
	return keyval.Value{}, false
}

// insertLeaf inserts (key, value) in sorted position. It returns the new
// size and false if key is already present (tree state unchanged).
func (n *node) insertLeaf(key keyval.Key, value keyval.Value, cmp keyval.Comparator) (int, bool) {
	i := n.keyIndex(key, cmp)
	if i < n.size && cmp(n.keys[i], key) == 0 {
		return n.size, false
	}
	n.keys = insertAt(n.keys, i, key)
	n.values = insertAt(n.values, i, value)
	n.size++
	return n.size, true
}

// removeAtIndex removes the slot at i, shifting the tail left.
func (n *node) removeAtIndex(i int) {
	n.keys = removeAt(n.keys, i)
	n.values = removeAt(n.values, i)
	n.size--
}

// moveHalfTo moves the upper half of this leaf's slots to dst, as evenly
// as possible while keeping both halves >= min_size (spec.md section 4.D).
func (n *node) moveHalfTo(dst *node) {
	mid := n.size / 2
	dst.keys = append(dst.keys, n.keys[mid:]...)
	dst.values = append(dst.values, n.values[mid:]...)
	dst.size = len(dst.keys)

	n.keys = n.keys[:mid]
	n.values = n.values[:mid]
	n.size = mid
}

// moveAllTo appends all of this leaf's slots to dst — used when coalescing
// into the left sibling.
func (n *node) moveAllTo(dst *node) {
	dst.keys = append(dst.keys, n.keys...)
	dst.values = append(dst.values, n.values...)
	dst.size = len(dst.keys)
	dst.nextPageID = n.nextPageID

	n.keys = n.keys[:0]
	n.values = n.values[:0]
	n.size = 0
}

// moveFirstToEndOf moves this leaf's first slot to the end of dst — used
// when redistributing from a right sibling.
func (n *node) moveFirstToEndOf(dst *node) {
	dst.keys = append(dst.keys, n.keys[0])
	dst.values = append(dst.values, n.values[0])
	dst.size++
	n.removeAtIndex(0)
}

// moveLastToFrontOf moves this leaf's last slot to the front of dst — used
// when redistributing from a left sibling.
func (n *node) moveLastToFrontOf(dst *node) {
	last := n.size - 1
	dst.keys = insertAt(dst.keys, 0, n.keys[last])
	dst.values = insertAt(dst.values, 0, n.values[last])
	dst.size++
	n.removeAtIndex(last)
}
