package bptree

import (
	"bpindex/buffer"
	"bpindex/diskio"
	"bpindex/keyval"
)

// Iterator is a forward, move-only cursor over a tree's leaf chain (spec.md
// component F). It pins at most one leaf at a time, handing the pin off to
// the next leaf as it crosses a boundary and releasing it for good once
// exhausted. Obtain one via Tree.Begin or Tree.Seek; always call Close once
// done, even after IsEnd becomes true.
type Iterator struct {
	tree  *Tree
	leaf  *node
	guard *buffer.PageGuard
	index int
}

// Begin returns an iterator positioned at the smallest key in the tree.
func (t *Tree) Begin() (*Iterator, error) {
	leaf, guard, err := t.FindLeaf(keyval.Key{}, true)
	if err != nil {
		return nil, err
	}
	it := &Iterator{tree: t, leaf: leaf, guard: guard}
	if err := it.normalize(); err != nil {
		return nil, err
	}
	return it, nil
}

// Seek returns an iterator positioned at the smallest key >= key.
func (t *Tree) Seek(key keyval.Key) (*Iterator, error) {
	leaf, guard, err := t.FindLeaf(key, false)
	if err != nil {
		return nil, err
	}
	if leaf == nil {
		return &Iterator{tree: t}, nil
	}
	it := &Iterator{tree: t, leaf: leaf, guard: guard, index: leaf.keyIndex(key, t.cmp)}
	if err := it.normalize(); err != nil {
		return nil, err
	}
	return it, nil
}

// normalize steps into the next leaf whenever the cursor sits at or past
// the end of the current one, so every other method only ever has to
// distinguish "IsEnd" from "pointing at a live slot" — never the
// in-between state of a stale index on an exhausted leaf.
func (it *Iterator) normalize() error {
	for it.leaf != nil && it.index >= it.leaf.size {
		next := it.leaf.nextPageID
		it.tree.release(it.guard, false)
		it.leaf, it.guard, it.index = nil, nil, 0

		if next == diskio.InvalidPageID {
			return nil
		}
		leaf, guard, err := it.tree.fetchNode(next)
		if err != nil {
			return err
		}
		it.leaf, it.guard = leaf, guard
	}
	return nil
}

// IsEnd reports whether the cursor has exhausted the tree.
func (it *Iterator) IsEnd() bool { return it.leaf == nil }

// Key returns the current slot's key. It must not be called when IsEnd.
func (it *Iterator) Key() keyval.Key { return it.leaf.keys[it.index] }

// Value returns the current slot's value. It must not be called when IsEnd.
func (it *Iterator) Value() keyval.Value { return it.leaf.values[it.index] }

// Next advances the cursor by one slot.
func (it *Iterator) Next() error {
	if it.leaf == nil {
		return nil
	}
	it.index++
	return it.normalize()
}

// Close releases any pin the iterator still holds. Safe to call on an
// already-exhausted iterator, and safe to call more than once.
func (it *Iterator) Close() {
	if it.guard != nil {
		it.tree.release(it.guard, false)
		it.guard = nil
	}
	it.leaf = nil
}
