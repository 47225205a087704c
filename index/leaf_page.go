package index

import (
	"cmp"
	"slices"

	"github.com/student/petro/storage/disk"
)

// LeafPage stores the actual key/value pairs, kept sorted by key, and
// chains to its left/right siblings so an IndexIterator can walk the
// whole index without ever climbing back up to an internal page.
type LeafPage[K cmp.Ordered, V any] struct {
	PageHeader
	Keys   []K
	Values []V
}

func newLeafPage[K cmp.Ordered, V any](pageId, parentId int64, maxSize int32) *LeafPage[K, V] {
	return &LeafPage[K, V]{
		PageHeader: PageHeader{
			PageId:   pageId,
			Parent:   parentId,
			PageType: LEAF_PAGE,
			MaxSize:  maxSize,
			Next:     disk.INVALID_PAGE_ID,
			Prev:     disk.INVALID_PAGE_ID,
		},
		Keys:   make([]K, 0, maxSize+1),
		Values: make([]V, 0, maxSize+1),
	}
}

func (p *LeafPage[K, V]) keyAt(idx int) K {
	return p.Keys[idx]
}

func (p *LeafPage[K, V]) valueAt(idx int) V {
	return p.Values[idx]
}

func (p *LeafPage[K, V]) isFull() bool {
	return p.getSize() >= int(p.MaxSize)
}

func (p *LeafPage[K, V]) isUnderflow(minSize int) bool {
	return p.getSize() < minSize
}

// findKey returns the index of key if present, and whether it was
// found; absent keys get the index they would occupy if inserted.
func (p *LeafPage[K, V]) findKey(key K) (int, bool) {
	left, right := 0, p.getSize()
	for left < right {
		mid := left + (right-left)/2
		if p.keyAt(mid) < key {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return left, left < p.getSize() && p.keyAt(left) == key
}

func (p *LeafPage[K, V]) insertAt(idx int, key K, val V) {
	p.Keys = slices.Insert(p.Keys, idx, key)
	p.Values = slices.Insert(p.Values, idx, val)
	p.Size++
}

func (p *LeafPage[K, V]) removeAt(idx int) {
	p.Keys = slices.Delete(p.Keys, idx, idx+1)
	p.Values = slices.Delete(p.Values, idx, idx+1)
	p.Size--
}
