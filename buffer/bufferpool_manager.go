package buffer

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/student/petro/storage/disk"
)

// BufferpoolManager maps page IDs to frames, brings pages into memory on
// demand, and evicts via an LRU-K replacer when the pool is full. A
// single coarse mutex (mu) protects the page table, the free list, and
// frame-to-page assignments; per-frame latches protect each frame's byte
// buffer independently of mu. Page-in and write-back I/O run with mu
// held, so they delay every other fetch, including cache hits, until
// they finish.
type BufferpoolManager struct {
	mu         sync.Mutex
	frames     []*FrameHeader
	pageTable  map[int64]int
	freeFrames []int
	replacer   *lrukReplacer
	scheduler  *disk.DiskScheduler
	nextPageId atomic.Int64
	logger     *slog.Logger
}

func NewBufferpoolManager(size int, replacer *lrukReplacer, diskScheduler *disk.DiskScheduler) *BufferpoolManager {
	frames := make([]*FrameHeader, size)
	freeFrames := make([]int, size)

	for i := range size {
		frames[i] = newFrameHeader(i)
		freeFrames[i] = i
	}

	return &BufferpoolManager{
		frames:     frames,
		pageTable:  make(map[int64]int),
		freeFrames: freeFrames,
		replacer:   replacer,
		scheduler:  diskScheduler,
		logger:     slog.Default(),
	}
}

// Size returns the number of frames this pool manages.
func (b *BufferpoolManager) Size() int {
	return len(b.frames)
}

// NewPageId allocates the next monotonically increasing page ID and
// grows the backing file to cover it. This cannot fail. Page ID 0 is
// never handed out, reserving it for a caller-managed header page.
func (b *BufferpoolManager) NewPageId() int64 {
	pageId := b.nextPageId.Add(1)
	_ = b.scheduler.IncreaseDiskSpace(pageId + 1)
	return pageId
}

// DeletePage removes a page from memory and passes its ID to the
// scheduler's DeallocatePage, which reclaims no disk space. It returns false only
// when the page is resident and still pinned; a page that was never
// resident is deleted trivially.
func (b *BufferpoolManager) DeletePage(pageId int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, resident := b.pageTable[pageId]
	if !resident {
		b.scheduler.DeallocatePage(pageId)
		return true
	}

	frame := b.frames[frameId]
	if frame.pinCount > 0 {
		return false
	}

	_ = b.replacer.remove(frameId)
	delete(b.pageTable, pageId)
	frame.reset()
	b.freeFrames = append(b.freeFrames, frameId)

	b.scheduler.DeallocatePage(pageId)
	return true
}

// CheckedReadPage brings pageId into a frame and returns a shared guard.
// Returns (nil, false) when the pool is entirely pinned.
func (b *BufferpoolManager) CheckedReadPage(pageId int64) (*ReadPageGuard, bool) {
	b.mu.Lock()
	frameId, ok := b.allocateFrameLocked(pageId)
	if !ok {
		b.mu.Unlock()
		return nil, false
	}

	frame := b.frames[frameId]
	frame.pinCount++
	b.replacer.recordAccess(frameId)
	b.replacer.setEvictable(frameId, false)
	b.mu.Unlock()

	frame.latch.RLock()
	return newReadPageGuard(frame, b), true
}

// CheckedWritePage brings pageId into a frame and returns an exclusive
// guard. Returns (nil, false) when the pool is entirely pinned.
func (b *BufferpoolManager) CheckedWritePage(pageId int64) (*WritePageGuard, bool) {
	b.mu.Lock()
	frameId, ok := b.allocateFrameLocked(pageId)
	if !ok {
		b.mu.Unlock()
		return nil, false
	}

	frame := b.frames[frameId]
	frame.pinCount++
	b.replacer.recordAccess(frameId)
	b.replacer.setEvictable(frameId, false)
	b.mu.Unlock()

	frame.latch.Lock()
	return newWritePageGuard(frame, b), true
}

// ReadPage is the abort-on-exhaustion convenience wrapper over
// CheckedReadPage. Only ever use it when exhaustion is known to be
// impossible.
func (b *BufferpoolManager) ReadPage(pageId int64) *ReadPageGuard {
	guard, ok := b.CheckedReadPage(pageId)
	if !ok {
		panic("buffer pool exhausted: CheckedReadPage failed to bring in page")
	}
	return guard
}

// WritePage is the abort-on-exhaustion convenience wrapper over
// CheckedWritePage.
func (b *BufferpoolManager) WritePage(pageId int64) *WritePageGuard {
	guard, ok := b.CheckedWritePage(pageId)
	if !ok {
		panic("buffer pool exhausted: CheckedWritePage failed to bring in page")
	}
	return guard
}

// allocateFrameLocked implements the frame-allocation algorithm: cache
// hit, else pop the free list, else ask the replacer for a victim,
// flushing it first if dirty. Must be called with mu held; it performs
// synchronous disk I/O while holding mu, a pragmatic tradeoff that
// serializes page-in/page-out but keeps the allocation path simple and
// race-free.
func (b *BufferpoolManager) allocateFrameLocked(pageId int64) (int, bool) {
	if frameId, ok := b.pageTable[pageId]; ok {
		return frameId, true
	}

	if len(b.freeFrames) > 0 {
		frameId := b.freeFrames[0]
		b.freeFrames = b.freeFrames[1:]

		frame := b.frames[frameId]
		frame.reset()
		frame.pageId = pageId
		b.readIntoLocked(frame, pageId)

		b.pageTable[pageId] = frameId
		return frameId, true
	}

	frameId, ok := b.replacer.evict()
	if !ok {
		return 0, false
	}

	frame := b.frames[frameId]
	oldPageId := frame.pageId
	if frame.isDirty {
		b.flushLocked(frame)
	}

	delete(b.pageTable, oldPageId)
	frame.reset()
	frame.pageId = pageId
	b.readIntoLocked(frame, pageId)

	b.pageTable[pageId] = frameId
	b.logger.Debug("evicted frame for new resident page", "frame", frameId, "evicted_page", oldPageId, "new_page", pageId)
	return frameId, true
}

func (b *BufferpoolManager) readIntoLocked(frame *FrameHeader, pageId int64) {
	req := disk.NewRequest(pageId, nil, false)
	resp := <-b.scheduler.Schedule(req)
	if resp.Success {
		copy(frame.data, resp.Data)
	}
}

// flushLocked writes frame's bytes to disk and clears its dirty bit.
// Must be called with mu held.
func (b *BufferpoolManager) flushLocked(frame *FrameHeader) {
	req := disk.NewRequest(frame.pageId, frame.data, true)
	resp := <-b.scheduler.Schedule(req)
	if resp.Success {
		frame.isDirty = false
	}
}

// FlushPage synchronously writes a resident page's bytes to disk and
// clears its dirty bit. Returns false if the page is not resident.
func (b *BufferpoolManager) FlushPage(pageId int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	b.flushLocked(b.frames[frameId])
	return true
}

// FlushAllPages flushes every resident page.
func (b *BufferpoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, frameId := range b.pageTable {
		b.flushLocked(b.frames[frameId])
	}
}

// GetPinCount returns a page's current pin count, or (0, false) if it
// is not resident.
func (b *BufferpoolManager) GetPinCount(pageId int64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return 0, false
	}
	return b.frames[frameId].pinCount, true
}

// unpin decrements a frame's pin count and, once it reaches zero, tells
// the replacer the frame is evictable again. Called from a guard's Drop.
func (b *BufferpoolManager) unpin(frame *FrameHeader) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame.pinCount--
	if frame.pinCount == 0 {
		b.replacer.setEvictable(frame.id, true)
	}
}
