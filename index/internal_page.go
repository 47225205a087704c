package index

import (
	"cmp"
	"slices"

	"github.com/student/petro/storage/disk"
)

// InternalPage routes descents toward the right leaf. It holds one more
// child pointer than separator key: Values[i] is the subtree holding
// keys in [Keys[i], Keys[i+1]), and Keys[0] is a permanent, never-read
// sentinel slot so that Keys[i] and Values[i] line up positionally.
type InternalPage[K cmp.Ordered] struct {
	PageHeader
	Keys   []K
	Values []int64
}

func newInternalPage[K cmp.Ordered](pageId, parentId int64, maxSize int32) *InternalPage[K] {
	return &InternalPage[K]{
		PageHeader: PageHeader{
			PageId:   pageId,
			Parent:   parentId,
			PageType: INTERNAL_PAGE,
			MaxSize:  maxSize,
			Next:     disk.INVALID_PAGE_ID,
			Prev:     disk.INVALID_PAGE_ID,
		},
		Keys:   make([]K, 0, maxSize+1),
		Values: make([]int64, 0, maxSize+1),
	}
}

func (p *InternalPage[K]) keyAt(idx int) K {
	return p.Keys[idx]
}

func (p *InternalPage[K]) valueAt(idx int) int64 {
	return p.Values[idx]
}

func (p *InternalPage[K]) isFull() bool {
	return p.getSize() >= int(p.MaxSize)
}

func (p *InternalPage[K]) isUnderflow(minSize int) bool {
	return p.getSize() < minSize
}

// childIndexForKey returns the index of the child subtree that may
// contain key: the largest i such that Keys[i] <= key, or 0.
func (p *InternalPage[K]) childIndexForKey(key K) int {
	idx := 0
	for i := 1; i < p.getSize(); i++ {
		if key >= p.keyAt(i) {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// childIndex returns the position of childPageId among Values.
func (p *InternalPage[K]) childIndex(childPageId int64) int {
	return slices.Index(p.Values[:p.getSize()], childPageId)
}

// insertChildAfter inserts (sepKey, newChildId) immediately to the
// right of afterChildId. Used when a child splits: the right half
// (newChildId) needs a separator key and a slot next to its sibling.
func (p *InternalPage[K]) insertChildAfter(afterChildId int64, sepKey K, newChildId int64) {
	idx := p.childIndex(afterChildId)

	p.Keys = slices.Insert(p.Keys, idx+1, sepKey)
	p.Values = slices.Insert(p.Values, idx+1, newChildId)
	p.Size++
}

// removeChildAt deletes the key/value pair at idx. idx must be >= 1,
// since Keys[0] is the sentinel and has no corresponding separator to
// drop; removing the first child is popFirstChild's job instead.
func (p *InternalPage[K]) removeChildAt(idx int) {
	p.Keys = slices.Delete(p.Keys, idx, idx+1)
	p.Values = slices.Delete(p.Values, idx, idx+1)
	p.Size--
}

// popFirstChild removes Values[0] and returns it along with the
// separator the caller should install as this subtree's new minimum
// key wherever it's referenced (typically the parent's separator for
// this page). Keys[1], which used to mark Values[1]'s minimum, becomes
// that separator; Keys[0] remains the untouched sentinel.
func (p *InternalPage[K]) popFirstChild() (K, int64) {
	sep := p.Keys[1]
	child := p.Values[0]
	p.Keys = append(p.Keys[:1], p.Keys[2:]...)
	p.Values = p.Values[1:]
	p.Size--
	return sep, child
}

// popLastChild removes the final child and returns it along with
// Keys[last], the minimum key of that child's own subtree — the value
// a caller needs to re-key wherever the popped child lands next.
func (p *InternalPage[K]) popLastChild() (K, int64) {
	lastIdx := p.getSize() - 1
	sep := p.Keys[lastIdx]
	child := p.Values[lastIdx]
	p.Keys = p.Keys[:lastIdx]
	p.Values = p.Values[:lastIdx]
	p.Size--
	return sep, child
}

// setKeyAt overwrites the separator key at position idx. Used after
// a borrow from a sibling shifts the dividing key.
func (p *InternalPage[K]) setKeyAt(idx int, key K) {
	p.Keys[idx] = key
}
