package buffer

import (
	"sync"

	"github.com/student/petro/storage/disk"
)

// FrameHeader is the one-per-buffer-frame metadata: a pin count, a
// dirty bit, the resident page ID, a reader-writer latch, and the raw
// page bytes. pinCount and pageId are only ever mutated while the
// BufferPoolManager's mutex is held; latch guards the byte buffer
// independently of that mutex.
type FrameHeader struct {
	id       int
	latch    sync.RWMutex
	data     []byte
	pinCount int
	isDirty  bool
	pageId   int64
}

func newFrameHeader(id int) *FrameHeader {
	f := &FrameHeader{id: id}
	f.reset()
	return f
}

// GetData returns the frame's raw bytes. Callers outside this package
// only ever see this through a PageGuard.
func (f *FrameHeader) GetData() []byte {
	return f.data
}

// GetDataMut returns a mutable view of the frame's raw bytes.
func (f *FrameHeader) GetDataMut() []byte {
	return f.data
}

// reset zeroes a frame's data and metadata before it is reused for a
// different page. Must be called with the BPM mutex held.
func (f *FrameHeader) reset() {
	f.data = make([]byte, disk.PAGE_SIZE)
	f.pinCount = 0
	f.isDirty = false
	f.pageId = disk.INVALID_PAGE_ID
}

// PinCount reports the frame's current pin count. Must be called with
// the BPM mutex held.
func (f *FrameHeader) PinCount() int {
	return f.pinCount
}
