package index

import (
	"cmp"
	"math"

	"github.com/student/petro/buffer"
	"github.com/student/petro/storage/disk"
	"github.com/student/petro/util"
)

// BPlusTree is a concurrent, disk-backed B+Tree keyed by K. Every page
// it touches is fetched through bpm, so the tree itself holds no page
// bytes between calls — only the header page's ID is special-cased
// (HEADER_PAGE_ID), everything else is allocated from bpm.NewPageId.
type BPlusTree[K cmp.Ordered, V any] struct {
	bpm             *buffer.BufferpoolManager
	indexName       string
	leafMaxSize     int32
	internalMaxSize int32
}

// NewBPlusTree constructs a tree over bpm, initializing the header page
// on first use. leafMaxSize and internalMaxSize bound how many entries
// a page may hold before it must split.
func NewBPlusTree[K cmp.Ordered, V any](name string, bpm *buffer.BufferpoolManager, leafMaxSize, internalMaxSize int32) (*BPlusTree[K, V], error) {
	guard, ok := bpm.CheckedWritePage(HEADER_PAGE_ID)
	if !ok {
		return nil, util.NewOutOfMemoryError("buffer pool exhausted initializing header page")
	}
	defer guard.Drop()

	if err := buffer.WriteBack(guard, &HeaderPage{RootPageId: disk.INVALID_PAGE_ID}); err != nil {
		return nil, err
	}

	return &BPlusTree[K, V]{
		indexName:       name,
		bpm:             bpm,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}, nil
}

// dataGetter is satisfied by both ReadPageGuard and WritePageGuard,
// letting peekHeader decode a page's header without caring which mode
// the caller latched it in, and without marking a write guard dirty.
type dataGetter interface {
	GetData() []byte
}

func peekHeader(g dataGetter) (PageHeader, error) {
	return util.ToStruct[PageHeader](g.GetData())
}

func minSizeFor(hdr PageHeader) int {
	return int(math.Ceil(float64(hdr.MaxSize) / 2))
}

// IsEmpty reports whether the tree currently has a root.
func (b *BPlusTree[K, V]) IsEmpty() (bool, error) {
	rootId, err := b.GetRootPageId()
	if err != nil {
		return false, err
	}
	return rootId == disk.INVALID_PAGE_ID, nil
}

// GetRootPageId returns the tree's current root page ID, or
// disk.INVALID_PAGE_ID if the tree is empty.
func (b *BPlusTree[K, V]) GetRootPageId() (int64, error) {
	guard, ok := b.bpm.CheckedReadPage(HEADER_PAGE_ID)
	if !ok {
		return disk.INVALID_PAGE_ID, util.NewOutOfMemoryError("buffer pool exhausted reading header page")
	}
	defer guard.Drop()

	header, err := buffer.As[HeaderPage](guard)
	if err != nil {
		return disk.INVALID_PAGE_ID, err
	}
	return header.RootPageId, nil
}

func (b *BPlusTree[K, V]) setRootPageId(pageId int64) error {
	guard, ok := b.bpm.CheckedWritePage(HEADER_PAGE_ID)
	if !ok {
		return util.NewOutOfMemoryError("buffer pool exhausted writing header page")
	}
	defer guard.Drop()

	return buffer.WriteBack(guard, &HeaderPage{RootPageId: pageId})
}

// GetValue looks up key and reports whether it was found. The read path
// only ever holds one page's latch at a time: once a child is latched,
// its parent's latch is released immediately, since a read can never
// cause a split or merge.
func (b *BPlusTree[K, V]) GetValue(key K) (V, bool, error) {
	var zero V

	rootId, err := b.GetRootPageId()
	if err != nil {
		return zero, false, err
	}
	if rootId == disk.INVALID_PAGE_ID {
		return zero, false, nil
	}

	guard, ok := b.bpm.CheckedReadPage(rootId)
	if !ok {
		return zero, false, util.NewOutOfMemoryError("buffer pool exhausted during lookup")
	}

	for {
		hdr, err := peekHeader(guard)
		if err != nil {
			guard.Drop()
			return zero, false, err
		}

		if hdr.PageType == LEAF_PAGE {
			leaf, err := buffer.As[LeafPage[K, V]](guard)
			guard.Drop()
			if err != nil {
				return zero, false, err
			}

			idx, found := leaf.findKey(key)
			if !found {
				return zero, false, nil
			}
			return leaf.valueAt(idx), true, nil
		}

		internal, err := buffer.As[InternalPage[K]](guard)
		if err != nil {
			guard.Drop()
			return zero, false, err
		}

		childId := internal.valueAt(internal.childIndexForKey(key))
		childGuard, ok := b.bpm.CheckedReadPage(childId)
		guard.Drop()
		if !ok {
			return zero, false, util.NewOutOfMemoryError("buffer pool exhausted during lookup")
		}
		guard = childGuard
	}
}

// descend walks from the root to a leaf acquiring write latches,
// releasing the latch on any ancestor it can prove will never need to
// change: a node is "safe" with respect to predicate if, after the
// eventual insert or delete, it won't itself need to split or merge.
// The returned slice's last element is always the leaf; every element
// before it is an ancestor that might still need modification.
func (b *BPlusTree[K, V]) descend(key K, safe func(hdr PageHeader) bool) ([]*buffer.WritePageGuard, error) {
	rootId, err := b.GetRootPageId()
	if err != nil {
		return nil, err
	}

	guard, ok := b.bpm.CheckedWritePage(rootId)
	if !ok {
		return nil, util.NewOutOfMemoryError("buffer pool exhausted during descent")
	}

	path := []*buffer.WritePageGuard{}

	for {
		hdr, err := peekHeader(guard)
		if err != nil {
			guard.Drop()
			dropAll(path)
			return nil, err
		}

		if safe(hdr) {
			dropAll(path)
			path = path[:0]
		}
		path = append(path, guard)

		if hdr.PageType == LEAF_PAGE {
			return path, nil
		}

		internal, err := util.ToStruct[InternalPage[K]](guard.GetData())
		if err != nil {
			dropAll(path)
			return nil, err
		}

		childId := internal.valueAt(internal.childIndexForKey(key))
		childGuard, ok := b.bpm.CheckedWritePage(childId)
		if !ok {
			dropAll(path)
			return nil, util.NewOutOfMemoryError("buffer pool exhausted during descent")
		}
		guard = childGuard
	}
}

func dropAll(guards []*buffer.WritePageGuard) {
	for _, g := range guards {
		g.Drop()
	}
}

// Insert adds key/value, splitting leaves and propagating the split
// upward as needed. Returns (false, nil) for a duplicate key.
func (b *BPlusTree[K, V]) Insert(key K, value V) (bool, error) {
	empty, err := b.IsEmpty()
	if err != nil {
		return false, err
	}

	if empty {
		return b.insertFirst(key, value)
	}

	// A node is safe here only if it can absorb one more entry without
	// itself reaching MaxSize: isFull() (checked below, after the insert
	// actually lands) trips at Size >= MaxSize, so a node already at
	// MaxSize-1 will cross that line the moment this insert reaches it.
	safe := func(hdr PageHeader) bool { return int(hdr.Size) < int(hdr.MaxSize)-1 }
	path, err := b.descend(key, safe)
	if err != nil {
		return false, err
	}
	defer dropAll(path)

	leafGuard := path[len(path)-1]
	leaf, err := util.ToStruct[LeafPage[K, V]](leafGuard.GetData())
	if err != nil {
		return false, err
	}

	idx, found := leaf.findKey(key)
	if found {
		return false, nil
	}
	leaf.insertAt(idx, key, value)

	if !leaf.isFull() {
		return true, buffer.WriteBack(leafGuard, &leaf)
	}

	newLeaf := newLeafPage[K, V](b.bpm.NewPageId(), leaf.Parent, b.leafMaxSize)
	mid := len(leaf.Keys) / 2
	newLeaf.Keys = append(newLeaf.Keys, leaf.Keys[mid:]...)
	newLeaf.Values = append(newLeaf.Values, leaf.Values[mid:]...)
	newLeaf.Size = int32(len(newLeaf.Keys))

	leaf.Keys = leaf.Keys[:mid]
	leaf.Values = leaf.Values[:mid]
	leaf.Size = int32(mid)

	newLeaf.Next = leaf.Next
	newLeaf.Prev = leaf.PageId
	leaf.Next = newLeaf.PageId

	newLeafGuard, ok := b.bpm.CheckedWritePage(newLeaf.PageId)
	if !ok {
		return false, util.NewOutOfMemoryError("buffer pool exhausted splitting leaf")
	}
	defer newLeafGuard.Drop()

	// fix the old right sibling's back-pointer, if any.
	if newLeaf.Next != disk.INVALID_PAGE_ID {
		if err := b.relinkPrev(newLeaf.Next, newLeaf.PageId); err != nil {
			return false, err
		}
	}

	if err := buffer.WriteBack(leafGuard, &leaf); err != nil {
		return false, err
	}
	if err := buffer.WriteBack(newLeafGuard, newLeaf); err != nil {
		return false, err
	}

	sepKey := newLeaf.keyAt(0)
	parents := path[:len(path)-1]
	return true, b.insertIntoParent(parents, leaf.PageId, leafGuard, leaf.Parent, sepKey, newLeaf.PageId, newLeafGuard)
}

func (b *BPlusTree[K, V]) relinkPrev(pageId, newPrev int64) error {
	guard, ok := b.bpm.CheckedWritePage(pageId)
	if !ok {
		return util.NewOutOfMemoryError("buffer pool exhausted relinking sibling")
	}
	defer guard.Drop()

	leaf, err := util.ToStruct[LeafPage[K, V]](guard.GetData())
	if err != nil {
		return err
	}
	leaf.Prev = newPrev
	return buffer.WriteBack(guard, &leaf)
}

func (b *BPlusTree[K, V]) insertFirst(key K, value V) (bool, error) {
	leaf := newLeafPage[K, V](b.bpm.NewPageId(), disk.INVALID_PAGE_ID, b.leafMaxSize)
	leaf.insertAt(0, key, value)

	guard, ok := b.bpm.CheckedWritePage(leaf.PageId)
	if !ok {
		return false, util.NewOutOfMemoryError("buffer pool exhausted creating root leaf")
	}
	defer guard.Drop()

	if err := buffer.WriteBack(guard, leaf); err != nil {
		return false, err
	}
	if err := b.setRootPageId(leaf.PageId); err != nil {
		return false, err
	}
	return true, nil
}

// setParent rewrites a page's Parent field through a guard the caller
// already holds, without taking a fresh latch on it.
func (b *BPlusTree[K, V]) setParent(guard *buffer.WritePageGuard, newParentId int64) error {
	hdr, err := peekHeader(guard)
	if err != nil {
		return err
	}

	if hdr.PageType == LEAF_PAGE {
		leaf, err := util.ToStruct[LeafPage[K, V]](guard.GetData())
		if err != nil {
			return err
		}
		leaf.Parent = newParentId
		return buffer.WriteBack(guard, &leaf)
	}

	internal, err := util.ToStruct[InternalPage[K]](guard.GetData())
	if err != nil {
		return err
	}
	internal.Parent = newParentId
	return buffer.WriteBack(guard, &internal)
}

// insertIntoParent installs a new separator key and right-child pointer
// into leftChildId's parent, splitting that parent (and recursing
// upward) if it's now full, or creating a new root if leftChildId had
// no parent to begin with. ancestors holds whatever guards descend()
// preserved for exactly this purpose; it is consumed top-down.
// leftGuard and rightGuard are guards the caller already holds on
// leftChildId and rightChildId — their Parent field is rewritten
// through these rather than through a fresh latch, since a fresh
// CheckedWritePage on a page this goroutine already holds would
// deadlock against itself.
func (b *BPlusTree[K, V]) insertIntoParent(ancestors []*buffer.WritePageGuard, leftChildId int64, leftGuard *buffer.WritePageGuard, parentId int64, sepKey K, rightChildId int64, rightGuard *buffer.WritePageGuard) error {
	if parentId == disk.INVALID_PAGE_ID {
		newRoot := newInternalPage[K](b.bpm.NewPageId(), disk.INVALID_PAGE_ID, b.internalMaxSize)
		var sentinel K
		newRoot.Keys = append(newRoot.Keys, sentinel, sepKey)
		newRoot.Values = append(newRoot.Values, leftChildId, rightChildId)
		newRoot.Size = 2

		guard, ok := b.bpm.CheckedWritePage(newRoot.PageId)
		if !ok {
			return util.NewOutOfMemoryError("buffer pool exhausted creating new root")
		}
		defer guard.Drop()

		if err := buffer.WriteBack(guard, newRoot); err != nil {
			return err
		}
		if err := b.setParent(leftGuard, newRoot.PageId); err != nil {
			return err
		}
		if err := b.setParent(rightGuard, newRoot.PageId); err != nil {
			return err
		}
		return b.setRootPageId(newRoot.PageId)
	}

	parentGuard := ancestors[len(ancestors)-1]
	rest := ancestors[:len(ancestors)-1]

	parent, err := util.ToStruct[InternalPage[K]](parentGuard.GetData())
	if err != nil {
		return err
	}

	// rightChildId is freshly created with Parent already set to
	// parentId; leftChildId was already parent's child. Neither needs
	// rewriting here, only if parent itself now splits below.
	parent.insertChildAfter(leftChildId, sepKey, rightChildId)

	if !parent.isFull() {
		return buffer.WriteBack(parentGuard, &parent)
	}

	newInternal := newInternalPage[K](b.bpm.NewPageId(), parent.Parent, b.internalMaxSize)

	// parent just grew to MaxSize entries, or to MaxSize+1 when a Remove
	// merge had left it resting at MaxSize (possible for an odd MaxSize).
	// Keys and Values line up one-for-one, so mid is both the split point
	// and the index of the separator handed up to the grandparent.
	mid := (len(parent.Values) + 1) / 2
	pushedUpKey := parent.keyAt(mid)

	// Keys[mid] becomes newInternal's own sentinel slot once copied
	// over; a page's Keys[0] is never read, so reusing it here is free.
	newInternal.Keys = append(newInternal.Keys, parent.Keys[mid:]...)
	newInternal.Values = append(newInternal.Values, parent.Values[mid:]...)
	newInternal.Size = int32(len(newInternal.Values))

	parent.Keys = parent.Keys[:mid]
	parent.Values = parent.Values[:mid]
	parent.Size = int32(len(parent.Values))

	newInternalGuard, ok := b.bpm.CheckedWritePage(newInternal.PageId)
	if !ok {
		return util.NewOutOfMemoryError("buffer pool exhausted splitting internal page")
	}
	defer newInternalGuard.Drop()

	for _, childId := range newInternal.Values {
		switch childId {
		case leftChildId:
			if err := b.setParent(leftGuard, newInternal.PageId); err != nil {
				return err
			}
		case rightChildId:
			if err := b.setParent(rightGuard, newInternal.PageId); err != nil {
				return err
			}
		default:
			if err := b.reparent(childId, newInternal.PageId); err != nil {
				return err
			}
		}
	}

	if err := buffer.WriteBack(parentGuard, &parent); err != nil {
		return err
	}
	if err := buffer.WriteBack(newInternalGuard, newInternal); err != nil {
		return err
	}

	return b.insertIntoParent(rest, parent.PageId, parentGuard, parent.Parent, pushedUpKey, newInternal.PageId, newInternalGuard)
}

func (b *BPlusTree[K, V]) reparent(pageId, newParentId int64) error {
	guard, ok := b.bpm.CheckedWritePage(pageId)
	if !ok {
		return util.NewOutOfMemoryError("buffer pool exhausted reparenting child")
	}
	defer guard.Drop()

	hdr, err := peekHeader(guard)
	if err != nil {
		return err
	}

	if hdr.PageType == LEAF_PAGE {
		leaf, err := util.ToStruct[LeafPage[K, V]](guard.GetData())
		if err != nil {
			return err
		}
		leaf.Parent = newParentId
		return buffer.WriteBack(guard, &leaf)
	}

	internal, err := util.ToStruct[InternalPage[K]](guard.GetData())
	if err != nil {
		return err
	}
	internal.Parent = newParentId
	return buffer.WriteBack(guard, &internal)
}

// Remove deletes key, borrowing from or merging with a sibling when the
// owning leaf (or an ancestor, after a merge) underflows. Returns
// (false, nil) if key isn't present.
func (b *BPlusTree[K, V]) Remove(key K) (bool, error) {
	empty, err := b.IsEmpty()
	if err != nil || empty {
		return false, err
	}

	safe := func(hdr PageHeader) bool { return int(hdr.Size)-1 >= minSizeFor(hdr) }
	path, err := b.descend(key, safe)
	if err != nil {
		return false, err
	}
	defer dropAll(path)

	leafGuard := path[len(path)-1]
	leaf, err := util.ToStruct[LeafPage[K, V]](leafGuard.GetData())
	if err != nil {
		return false, err
	}

	idx, found := leaf.findKey(key)
	if !found {
		return false, nil
	}
	leaf.removeAt(idx)

	ancestors := path[:len(path)-1]

	if len(ancestors) == 0 {
		// either the leaf is the root (no minimum size applies), or
		// descend released every ancestor because the leaf stays at or
		// above its minimum size; only an emptied root reaches Size 0.
		if leaf.getSize() == 0 {
			if err := b.setRootPageId(disk.INVALID_PAGE_ID); err != nil {
				return false, err
			}
			b.bpm.DeletePage(leaf.PageId)
			return true, nil
		}
		return true, buffer.WriteBack(leafGuard, &leaf)
	}

	if leaf.getSize() >= minSizeFor(leaf.PageHeader) {
		return true, buffer.WriteBack(leafGuard, &leaf)
	}

	return true, b.resolveLeafUnderflow(ancestors, leafGuard, &leaf)
}

// resolveLeafUnderflow borrows an entry from a sibling if one has
// enough to spare, otherwise merges with it; the right sibling is tried
// first. A merge may remove a separator from the parent, which can in
// turn underflow the parent — handled by recursing into
// resolveInternalUnderflow on the remaining ancestor chain.
func (b *BPlusTree[K, V]) resolveLeafUnderflow(ancestors []*buffer.WritePageGuard, leafGuard *buffer.WritePageGuard, leaf *LeafPage[K, V]) error {
	parentGuard := ancestors[len(ancestors)-1]
	rest := ancestors[:len(ancestors)-1]

	parent, err := util.ToStruct[InternalPage[K]](parentGuard.GetData())
	if err != nil {
		return err
	}

	selfIdx := parent.childIndex(leaf.PageId)

	if selfIdx+1 < parent.getSize() {
		rightGuard, ok := b.bpm.CheckedWritePage(parent.valueAt(selfIdx + 1))
		if !ok {
			return util.NewOutOfMemoryError("buffer pool exhausted resolving underflow")
		}
		defer rightGuard.Drop()

		right, err := util.ToStruct[LeafPage[K, V]](rightGuard.GetData())
		if err != nil {
			return err
		}

		if right.getSize() > minSizeFor(right.PageHeader) {
			leaf.insertAt(leaf.getSize(), right.keyAt(0), right.valueAt(0))
			right.removeAt(0)
			parent.setKeyAt(selfIdx+1, right.keyAt(0))

			if err := buffer.WriteBack(leafGuard, leaf); err != nil {
				return err
			}
			if err := buffer.WriteBack(rightGuard, &right); err != nil {
				return err
			}
			return buffer.WriteBack(parentGuard, &parent)
		}

		leaf.Keys = append(leaf.Keys, right.Keys...)
		leaf.Values = append(leaf.Values, right.Values...)
		leaf.Size += right.Size
		leaf.Next = right.Next
		if right.Next != disk.INVALID_PAGE_ID {
			if err := b.relinkPrev(right.Next, leaf.PageId); err != nil {
				return err
			}
		}
		parent.removeChildAt(selfIdx + 1)
		b.bpm.DeletePage(right.PageId)

		if err := buffer.WriteBack(leafGuard, leaf); err != nil {
			return err
		}
		return b.finishInternalUnderflow(rest, parentGuard, &parent)
	}

	// no right sibling: borrow from or merge into the left sibling instead.
	leftGuard, ok := b.bpm.CheckedWritePage(parent.valueAt(selfIdx - 1))
	if !ok {
		return util.NewOutOfMemoryError("buffer pool exhausted resolving underflow")
	}
	defer leftGuard.Drop()

	left, err := util.ToStruct[LeafPage[K, V]](leftGuard.GetData())
	if err != nil {
		return err
	}

	if left.getSize() > minSizeFor(left.PageHeader) {
		lastIdx := left.getSize() - 1
		borrowedKey, borrowedVal := left.keyAt(lastIdx), left.valueAt(lastIdx)
		left.removeAt(lastIdx)
		leaf.insertAt(0, borrowedKey, borrowedVal)
		parent.setKeyAt(selfIdx, leaf.keyAt(0))

		if err := buffer.WriteBack(leafGuard, leaf); err != nil {
			return err
		}
		if err := buffer.WriteBack(leftGuard, &left); err != nil {
			return err
		}
		return buffer.WriteBack(parentGuard, &parent)
	}

	left.Keys = append(left.Keys, leaf.Keys...)
	left.Values = append(left.Values, leaf.Values...)
	left.Size += leaf.Size
	left.Next = leaf.Next
	if leaf.Next != disk.INVALID_PAGE_ID {
		if err := b.relinkPrev(leaf.Next, left.PageId); err != nil {
			return err
		}
	}
	parent.removeChildAt(selfIdx)
	b.bpm.DeletePage(leaf.PageId)

	if err := buffer.WriteBack(leftGuard, &left); err != nil {
		return err
	}
	return b.finishInternalUnderflow(rest, parentGuard, &parent)
}

// finishInternalUnderflow writes back an internal page whose Size just
// dropped from a child merge, resolving its own underflow if needed.
func (b *BPlusTree[K, V]) finishInternalUnderflow(ancestors []*buffer.WritePageGuard, nodeGuard *buffer.WritePageGuard, node *InternalPage[K]) error {
	if len(ancestors) == 0 {
		// node is root: collapse tree height if it has only one child.
		if node.getSize() == 1 {
			onlyChild := node.valueAt(0)
			if err := b.setRootPageId(onlyChild); err != nil {
				return err
			}
			if err := b.reparent(onlyChild, disk.INVALID_PAGE_ID); err != nil {
				return err
			}
			b.bpm.DeletePage(node.PageId)
			return nil
		}
		return buffer.WriteBack(nodeGuard, node)
	}

	if node.getSize() >= minSizeFor(node.PageHeader) {
		return buffer.WriteBack(nodeGuard, node)
	}

	return b.resolveInternalUnderflow(ancestors, nodeGuard, node)
}

// resolveInternalUnderflow is resolveLeafUnderflow's counterpart for
// internal pages: borrow a child (and the separator that goes with it)
// from a sibling, or merge with one, pulling the parent's separator key
// down into the merged node.
func (b *BPlusTree[K, V]) resolveInternalUnderflow(ancestors []*buffer.WritePageGuard, nodeGuard *buffer.WritePageGuard, node *InternalPage[K]) error {
	parentGuard := ancestors[len(ancestors)-1]
	rest := ancestors[:len(ancestors)-1]

	parent, err := util.ToStruct[InternalPage[K]](parentGuard.GetData())
	if err != nil {
		return err
	}

	selfIdx := parent.childIndex(node.PageId)

	if selfIdx+1 < parent.getSize() {
		rightGuard, ok := b.bpm.CheckedWritePage(parent.valueAt(selfIdx + 1))
		if !ok {
			return util.NewOutOfMemoryError("buffer pool exhausted resolving underflow")
		}
		defer rightGuard.Drop()

		right, err := util.ToStruct[InternalPage[K]](rightGuard.GetData())
		if err != nil {
			return err
		}

		if right.getSize() > minSizeFor(right.PageHeader) {
			newRightMinKey, movedChild := right.popFirstChild()

			node.Keys = append(node.Keys, parent.keyAt(selfIdx+1))
			node.Values = append(node.Values, movedChild)
			node.Size++

			parent.setKeyAt(selfIdx+1, newRightMinKey)
			if err := b.reparent(movedChild, node.PageId); err != nil {
				return err
			}

			if err := buffer.WriteBack(nodeGuard, node); err != nil {
				return err
			}
			if err := buffer.WriteBack(rightGuard, &right); err != nil {
				return err
			}
			return buffer.WriteBack(parentGuard, &parent)
		}

		sepKey := parent.keyAt(selfIdx + 1)
		node.Keys = append(node.Keys, sepKey)
		node.Keys = append(node.Keys, right.Keys[1:]...)
		node.Values = append(node.Values, right.Values...)
		node.Size = int32(len(node.Values))

		for _, childId := range right.Values {
			if err := b.reparent(childId, node.PageId); err != nil {
				return err
			}
		}

		parent.removeChildAt(selfIdx + 1)
		b.bpm.DeletePage(right.PageId)

		if err := buffer.WriteBack(nodeGuard, node); err != nil {
			return err
		}
		return b.finishInternalUnderflow(rest, parentGuard, &parent)
	}

	leftGuard, ok := b.bpm.CheckedWritePage(parent.valueAt(selfIdx - 1))
	if !ok {
		return util.NewOutOfMemoryError("buffer pool exhausted resolving underflow")
	}
	defer leftGuard.Drop()

	left, err := util.ToStruct[InternalPage[K]](leftGuard.GetData())
	if err != nil {
		return err
	}

	if left.getSize() > minSizeFor(left.PageHeader) {
		newLeftMaxKey, movedChild := left.popLastChild()
		sepKey := parent.keyAt(selfIdx)

		node.Keys = append([]K{node.Keys[0], sepKey}, node.Keys[1:]...)
		node.Values = append([]int64{movedChild}, node.Values...)
		node.Size++

		parent.setKeyAt(selfIdx, newLeftMaxKey)
		if err := b.reparent(movedChild, node.PageId); err != nil {
			return err
		}

		if err := buffer.WriteBack(nodeGuard, node); err != nil {
			return err
		}
		if err := buffer.WriteBack(leftGuard, &left); err != nil {
			return err
		}
		return buffer.WriteBack(parentGuard, &parent)
	}

	sepKey := parent.keyAt(selfIdx)
	left.Keys = append(left.Keys, sepKey)
	left.Keys = append(left.Keys, node.Keys[1:]...)
	left.Values = append(left.Values, node.Values...)
	left.Size = int32(len(left.Values))

	for _, childId := range node.Values {
		if err := b.reparent(childId, left.PageId); err != nil {
			return err
		}
	}

	parent.removeChildAt(selfIdx)
	b.bpm.DeletePage(node.PageId)

	if err := buffer.WriteBack(leftGuard, &left); err != nil {
		return err
	}
	return b.finishInternalUnderflow(rest, parentGuard, &parent)
}

// Begin returns an iterator positioned at the first entry of the
// leftmost leaf.
func (b *BPlusTree[K, V]) Begin() (*IndexIterator[K, V], error) {
	rootId, err := b.GetRootPageId()
	if err != nil {
		return nil, err
	}
	return Begin[K, V](b.bpm, rootId)
}

// BeginAt returns an iterator positioned at the first entry whose key
// is greater than or equal to key.
func (b *BPlusTree[K, V]) BeginAt(key K) (*IndexIterator[K, V], error) {
	rootId, err := b.GetRootPageId()
	if err != nil {
		return nil, err
	}
	return BeginAt[K, V](b.bpm, rootId, key)
}

// End returns an already-exhausted iterator, for comparison against
// the result of advancing a Begin/BeginAt iterator to completion.
func (b *BPlusTree[K, V]) End() *IndexIterator[K, V] {
	return &IndexIterator[K, V]{bpm: b.bpm, done: true}
}
