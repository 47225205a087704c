package buffer

import (
	"sync"

	"github.com/student/petro/util"
)

// PageGuard ties a pinned frame to the BufferpoolManager that pinned it.
// Drop releases the frame's latch and unpins it; a guard must not be
// used after Drop. once guards against a caller dropping twice.
type PageGuard struct {
	frame *FrameHeader
	bpm   *BufferpoolManager
	once  sync.Once
}

func (pg *PageGuard) PageId() int64 {
	return pg.frame.pageId
}

type ReadPageGuard struct {
	PageGuard
}

type WritePageGuard struct {
	PageGuard
}

func newReadPageGuard(frame *FrameHeader, bpm *BufferpoolManager) *ReadPageGuard {
	return &ReadPageGuard{PageGuard{frame: frame, bpm: bpm}}
}

func newWritePageGuard(frame *FrameHeader, bpm *BufferpoolManager) *WritePageGuard {
	return &WritePageGuard{PageGuard{frame: frame, bpm: bpm}}
}

// GetData returns the frame's raw bytes for read-only inspection.
func (pg *ReadPageGuard) GetData() []byte {
	return pg.frame.GetData()
}

// Drop releases the shared latch and unpins the frame. Safe to call
// more than once; only the first call has any effect.
func (pg *ReadPageGuard) Drop() {
	pg.once.Do(func() {
		pg.bpm.unpin(pg.frame)
		pg.frame.latch.RUnlock()
	})
}

// GetData returns the frame's raw bytes for read-only inspection.
func (pg *WritePageGuard) GetData() []byte {
	return pg.frame.GetData()
}

// GetDataMut returns the frame's raw bytes for in-place mutation and
// marks the frame dirty; the caller holds the exclusive latch, so no
// other guard can observe a half-written page.
func (pg *WritePageGuard) GetDataMut() []byte {
	pg.frame.isDirty = true
	return pg.frame.GetDataMut()
}

// Drop releases the exclusive latch and unpins the frame. Safe to call
// more than once; only the first call has any effect.
func (pg *WritePageGuard) Drop() {
	pg.once.Do(func() {
		pg.bpm.unpin(pg.frame)
		pg.frame.latch.Unlock()
	})
}

// As decodes a guard's raw bytes into T via the page codec. A free
// generic function rather than a method, since Go methods cannot
// introduce their own type parameters.
func As[T any](pg *ReadPageGuard) (T, error) {
	return util.ToStruct[T](pg.GetData())
}

// AsMut decodes a write guard's raw bytes into T and marks the frame
// dirty, since the caller is expected to mutate and WriteBack.
func AsMut[T any](pg *WritePageGuard) (T, error) {
	return util.ToStruct[T](pg.GetDataMut())
}

// WriteBack encodes src back into a write guard's frame bytes.
func WriteBack[T any](pg *WritePageGuard, src T) error {
	encoded, err := util.ToByteSlice(src)
	if err != nil {
		return err
	}
	copy(pg.GetDataMut(), encoded)
	return nil
}
