package buffer

import (
	"fmt"
	"sync"
)

// lrukList is a doubly linked list of lrukNodes with head/tail
// sentinels. pushFront always inserts the most-recently-touched node;
// walking backwards from the tail therefore visits nodes oldest-first,
// which is exactly the order both the history list (FIFO by first
// access) and the cache list (oldest last-access first) need to be
// searched in during eviction.
type lrukList struct {
	head *lrukNode
	tail *lrukNode
	size int
}

func newLrukList() *lrukList {
	head := &lrukNode{frameId: INVALID_FRAME_ID}
	tail := &lrukNode{frameId: INVALID_FRAME_ID}
	head.next = tail
	tail.prev = head
	return &lrukList{head: head, tail: tail}
}

func (l *lrukList) pushFront(node *lrukNode) {
	first := l.head.next
	l.head.next = node
	node.prev = l.head
	node.next = first
	first.prev = node
	l.size++
}

func (l *lrukList) remove(node *lrukNode) {
	back := node.prev
	front := node.next
	back.next = front
	front.prev = back
	node.prev = nil
	node.next = nil
	l.size--
}

// findEvictable walks the list oldest-first (from the tail backwards)
// and returns the first evictable node, or nil.
func (l *lrukList) findEvictable() *lrukNode {
	for node := l.tail.prev; node != l.head; node = node.prev {
		if node.isEvictable {
			return node
		}
	}
	return nil
}

// NewLrukReplacer constructs a replacer tracking up to capacity frames
// with a K of k. k must be >= 1.
func NewLrukReplacer(capacity, k int) *lrukReplacer {
	return &lrukReplacer{
		k:            k,
		nodeStore:    map[int]*lrukNode{},
		history:      newLrukList(),
		cache:        newLrukList(),
		replacerSize: capacity,
	}
}

// remove deletes frameId's entry entirely, wherever it sits. Removing a
// tracked, non-evictable frame returns an error and leaves the entry in
// place; removing an untracked frame is a no-op.
func (lru *lrukReplacer) remove(frameId int) error {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[frameId]
	if !ok {
		return nil
	}

	if !node.isEvictable {
		return fmt.Errorf("evicting a non-evictable frame %d", frameId)
	}

	lru.listFor(node).remove(node)
	delete(lru.nodeStore, frameId)
	lru.currSize--

	return nil
}

func (lru *lrukReplacer) listFor(node *lrukNode) *lrukList {
	if node.hasKAccess() {
		return lru.cache
	}
	return lru.history
}

// recordAccess registers an access to frameId at the current logical
// timestamp. An unseen frame starts in the history list with k=1; once
// a node accumulates k accesses it moves to the cache list.
func (lru *lrukReplacer) recordAccess(frameId int) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	lru.currTimestamp++

	node, ok := lru.nodeStore[frameId]
	if !ok {
		node = &lrukNode{frameId: frameId, k: lru.k}
		lru.nodeStore[frameId] = node
		node.addTimestamp(lru.currTimestamp)
		lru.history.pushFront(node)
		return
	}

	wasBelowK := !node.hasKAccess()
	node.addTimestamp(lru.currTimestamp)
	nowAtK := node.hasKAccess()

	if wasBelowK && nowAtK {
		lru.history.remove(node)
		lru.cache.pushFront(node)
		return
	}

	if !wasBelowK {
		lru.cache.remove(node)
		lru.cache.pushFront(node)
	}
	// still below K: history list stays FIFO by first access, so a
	// repeat access before the K-th does not move the node.
}

// setEvictable flips frameId's evictable flag, creating a tracked
// (but un-accessed) entry if one doesn't exist yet. frameId must be
// within [0, replacerSize) — out of range is a programmer error.
func (lru *lrukReplacer) setEvictable(frameId int, evictable bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if frameId < 0 || frameId >= lru.replacerSize {
		panic(fmt.Sprintf("lru-k: frame_id %d out of range [0, %d)", frameId, lru.replacerSize))
	}

	node, ok := lru.nodeStore[frameId]
	if !ok {
		node = &lrukNode{frameId: frameId, k: lru.k, isEvictable: evictable}
		lru.nodeStore[frameId] = node
		lru.history.pushFront(node)
		if evictable {
			lru.currSize++
		}
		return
	}

	if node.isEvictable == evictable {
		return
	}

	node.isEvictable = evictable
	if evictable {
		lru.currSize++
	} else {
		lru.currSize--
	}
}

// evict picks the evictable frame with maximum backward K-distance:
// the oldest entry in the history list (infinite distance, < K
// accesses) if one exists, else the cache-list entry with the oldest
// last access. Returns (INVALID_FRAME_ID, false) if nothing is
// evictable.
func (lru *lrukReplacer) evict() (int, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if lru.currSize == 0 {
		return INVALID_FRAME_ID, false
	}

	node := lru.history.findEvictable()
	list := lru.history
	if node == nil {
		node = lru.cache.findEvictable()
		list = lru.cache
	}
	if node == nil {
		return INVALID_FRAME_ID, false
	}

	list.remove(node)
	delete(lru.nodeStore, node.frameId)
	lru.currSize--

	return node.frameId, true
}

func (lru *lrukReplacer) size() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.currSize
}

type lrukReplacer struct {
	mu            sync.Mutex
	nodeStore     map[int]*lrukNode
	history       *lrukList
	cache         *lrukList
	replacerSize  int
	currSize      int
	currTimestamp int
	k             int
}
