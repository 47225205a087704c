package disk

import (
	"sync"
)

// DiskReq carries one asynchronous I/O request. RespCh is fulfilled
// exactly once, whether the request succeeds or fails.
type DiskReq struct {
	PageId int64
	Data   []byte
	Write  bool
	RespCh chan DiskResp
}

type DiskResp struct {
	Success bool
	Data    []byte
}

func NewRequest(pageId int64, data []byte, isWrite bool) DiskReq {
	return DiskReq{
		PageId: pageId,
		Data:   data,
		Write:  isWrite,
		RespCh: make(chan DiskResp, 1),
	}
}

// DiskScheduler fans requests out across T bounded per-page-shard
// queues, one dedicated worker goroutine per shard. Sharding by
// page_id mod T guarantees FIFO ordering of I/O for any single page: if
// Schedule(w) returns before Schedule(r) is called for the same
// page_id, w lands in the shard's queue before r does, and the worker
// drains it first.
type DiskScheduler struct {
	diskManager *DiskManager
	shards      []chan DiskReq
	wg          sync.WaitGroup

	closeMu sync.Mutex
	closed  bool
}

func NewScheduler(diskManager *DiskManager) *DiskScheduler {
	return NewSchedulerWithWorkers(diskManager, 1)
}

// NewSchedulerWithWorkers starts workerCount background workers, each
// draining its own bounded queue.
func NewSchedulerWithWorkers(diskManager *DiskManager, workerCount int) *DiskScheduler {
	if workerCount < 1 {
		workerCount = 1
	}

	ds := &DiskScheduler{
		diskManager: diskManager,
		shards:      make([]chan DiskReq, workerCount),
	}

	for i := range ds.shards {
		ds.shards[i] = make(chan DiskReq, 32)
	}

	ds.wg.Add(workerCount)
	for i := range ds.shards {
		go ds.worker(ds.shards[i])
	}

	return ds
}

// Schedule enqueues req onto the shard for req.PageId and returns
// immediately; the response arrives on req.RespCh.
func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	if req.RespCh == nil {
		req.RespCh = make(chan DiskResp, 1)
	}

	shard := ds.shardFor(req.PageId)
	ds.shards[shard] <- req
	return req.RespCh
}

func (ds *DiskScheduler) shardFor(pageId int64) int {
	n := int64(len(ds.shards))
	idx := pageId % n
	if idx < 0 {
		idx += n
	}
	return int(idx)
}

func (ds *DiskScheduler) worker(queue chan DiskReq) {
	defer ds.wg.Done()

	for req := range queue {
		if req.Write {
			err := ds.diskManager.writePage(req.PageId, req.Data)
			req.RespCh <- DiskResp{Success: err == nil}
			continue
		}

		data, err := ds.diskManager.readPage(req.PageId)
		req.RespCh <- DiskResp{Success: err == nil, Data: data}
	}
}

// IncreaseDiskSpace ensures the backing file has room for numPages pages.
func (ds *DiskScheduler) IncreaseDiskSpace(numPages int64) error {
	return ds.diskManager.increaseDiskSpace(numPages)
}

// DeallocatePage is a no-op placeholder: this core makes no attempt at
// disk space reclamation, page IDs only grow. Kept as an explicit call
// site so callers (BufferPoolManager.DeletePage) have one place to
// route deallocation through if that changes.
func (ds *DiskScheduler) DeallocatePage(pageId int64) {}

// Shutdown closes every shard's queue, then waits for every worker to
// drain what was already queued and exit. No request may be scheduled after
// Shutdown begins.
func (ds *DiskScheduler) Shutdown() {
	ds.closeMu.Lock()
	if ds.closed {
		ds.closeMu.Unlock()
		return
	}
	ds.closed = true
	ds.closeMu.Unlock()

	for _, shard := range ds.shards {
		close(shard)
	}
	ds.wg.Wait()
}
