package index

import (
	"cmp"
	"io"

	"github.com/student/petro/buffer"
	"github.com/student/petro/storage/disk"
	"github.com/student/petro/util"
)

// IndexIterator walks leaf pages left to right via their Next pointers,
// never climbing back up to an internal page. It holds at most one
// leaf's read latch at a time, and none between calls to Next.
type IndexIterator[K cmp.Ordered, V any] struct {
	bpm  *buffer.BufferpoolManager
	leaf *LeafPage[K, V]
	pos  int
	done bool
}

// Begin returns an iterator positioned at the first entry of the
// leftmost leaf.
func Begin[K cmp.Ordered, V any](bpm *buffer.BufferpoolManager, rootId int64) (*IndexIterator[K, V], error) {
	if rootId == disk.INVALID_PAGE_ID {
		return &IndexIterator[K, V]{bpm: bpm, done: true}, nil
	}

	leaf, err := leftmostLeaf[K, V](bpm, rootId)
	if err != nil {
		return nil, err
	}
	return &IndexIterator[K, V]{bpm: bpm, leaf: leaf, pos: 0, done: leaf.getSize() == 0}, nil
}

// BeginAt returns an iterator positioned at the first entry whose key
// is greater than or equal to key.
func BeginAt[K cmp.Ordered, V any](bpm *buffer.BufferpoolManager, rootId int64, key K) (*IndexIterator[K, V], error) {
	if rootId == disk.INVALID_PAGE_ID {
		return &IndexIterator[K, V]{bpm: bpm, done: true}, nil
	}

	guard, ok := bpm.CheckedReadPage(rootId)
	if !ok {
		return nil, util.NewOutOfMemoryError("buffer pool exhausted locating start of range")
	}

	for {
		hdr, err := peekHeader(guard)
		if err != nil {
			guard.Drop()
			return nil, err
		}

		if hdr.PageType == LEAF_PAGE {
			leaf, err := buffer.As[LeafPage[K, V]](guard)
			guard.Drop()
			if err != nil {
				return nil, err
			}

			idx, _ := leaf.findKey(key)
			if idx >= leaf.getSize() && leaf.Next != disk.INVALID_PAGE_ID {
				// every key in this leaf is below key: start at the next leaf.
				nextGuard, ok := bpm.CheckedReadPage(leaf.Next)
				if !ok {
					return nil, util.NewOutOfMemoryError("buffer pool exhausted locating start of range")
				}
				next, err := buffer.As[LeafPage[K, V]](nextGuard)
				nextGuard.Drop()
				if err != nil {
					return nil, err
				}
				leaf, idx = next, 0
			}
			it := &IndexIterator[K, V]{bpm: bpm, leaf: &leaf, pos: idx}
			it.done = it.pos >= leaf.getSize()
			return it, nil
		}

		internal, err := buffer.As[InternalPage[K]](guard)
		if err != nil {
			guard.Drop()
			return nil, err
		}

		childId := internal.valueAt(internal.childIndexForKey(key))
		childGuard, ok := bpm.CheckedReadPage(childId)
		guard.Drop()
		if !ok {
			return nil, util.NewOutOfMemoryError("buffer pool exhausted locating start of range")
		}
		guard = childGuard
	}
}

func leftmostLeaf[K cmp.Ordered, V any](bpm *buffer.BufferpoolManager, rootId int64) (*LeafPage[K, V], error) {
	guard, ok := bpm.CheckedReadPage(rootId)
	if !ok {
		return nil, util.NewOutOfMemoryError("buffer pool exhausted descending to leftmost leaf")
	}

	for {
		hdr, err := peekHeader(guard)
		if err != nil {
			guard.Drop()
			return nil, err
		}

		if hdr.PageType == LEAF_PAGE {
			leaf, err := buffer.As[LeafPage[K, V]](guard)
			guard.Drop()
			if err != nil {
				return nil, err
			}
			return &leaf, nil
		}

		internal, err := buffer.As[InternalPage[K]](guard)
		if err != nil {
			guard.Drop()
			return nil, err
		}

		childGuard, ok := bpm.CheckedReadPage(internal.valueAt(0))
		guard.Drop()
		if !ok {
			return nil, util.NewOutOfMemoryError("buffer pool exhausted descending to leftmost leaf")
		}
		guard = childGuard
	}
}

// IsEnd reports whether the iterator has exhausted the index.
func (it *IndexIterator[K, V]) IsEnd() bool {
	return it.done
}

// Equals reports whether it and other are both exhausted, or both
// positioned at the same offset within the same leaf page. It exists
// so a caller can compare a cursor against BPlusTree.End() instead of
// calling IsEnd directly.
func (it *IndexIterator[K, V]) Equals(other *IndexIterator[K, V]) bool {
	if it.done || other.done {
		return it.done == other.done
	}
	return it.leaf.PageId == other.leaf.PageId && it.pos == other.pos
}

// Next returns the current entry and advances. Crossing a leaf
// boundary fetches the next leaf via its Next pointer; reaching a
// leaf with no successor ends the iteration.
func (it *IndexIterator[K, V]) Next() (K, V, error) {
	var zeroK K
	var zeroV V

	if it.done {
		return zeroK, zeroV, io.EOF
	}

	key, val := it.leaf.keyAt(it.pos), it.leaf.valueAt(it.pos)
	it.pos++

	if it.pos >= it.leaf.getSize() {
		if it.leaf.Next == disk.INVALID_PAGE_ID {
			it.done = true
			return key, val, nil
		}

		guard, ok := it.bpm.CheckedReadPage(it.leaf.Next)
		if !ok {
			return key, val, util.NewOutOfMemoryError("buffer pool exhausted advancing iterator")
		}

		next, err := buffer.As[LeafPage[K, V]](guard)
		guard.Drop()
		if err != nil {
			return key, val, err
		}

		it.leaf = &next
		it.pos = 0
		it.done = next.getSize() == 0
	}

	return key, val, nil
}
