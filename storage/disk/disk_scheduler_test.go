package disk

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiskScheduler(t *testing.T) {
	t.Run("schedule is non blocking", func(t *testing.T) {
		file := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(file.Name()) })

		ds := NewScheduler(NewManager(file))
		t.Cleanup(ds.Shutdown)

		data := make([]byte, PAGE_SIZE)
		copy(data, []byte("hello world"))

		start := time.Now()
		ds.Schedule(NewRequest(1, data, true))
		elapsed := time.Since(start)

		assert.Less(t, elapsed, time.Millisecond*50)
	})

	t.Run("write then read on the same page observes the write", func(t *testing.T) {
		file := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(file.Name()) })

		ds := NewScheduler(NewManager(file))
		t.Cleanup(ds.Shutdown)

		data := make([]byte, PAGE_SIZE)
		copy(data, []byte("hello world"))

		writeResp := <-ds.Schedule(NewRequest(1, data, true))
		assert.True(t, writeResp.Success)

		readResp := <-ds.Schedule(NewRequest(1, nil, false))
		assert.True(t, readResp.Success)
		assert.Equal(t, data, readResp.Data)
	})

	t.Run("requests for the same page are FIFO across a sharded scheduler", func(t *testing.T) {
		file := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(file.Name()) })

		ds := NewSchedulerWithWorkers(NewManager(file), 4)
		t.Cleanup(ds.Shutdown)

		pageId := int64(7)
		for i := 0; i < 20; i++ {
			data := make([]byte, PAGE_SIZE)
			copy(data, []byte{byte(i)})
			resp := <-ds.Schedule(NewRequest(pageId, data, true))
			assert.True(t, resp.Success)

			readResp := <-ds.Schedule(NewRequest(pageId, nil, false))
			assert.True(t, readResp.Success)
			assert.True(t, bytes.HasPrefix(readResp.Data, []byte{byte(i)}))
		}
	})

	t.Run("increase disk space is routed through the scheduler", func(t *testing.T) {
		file := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(file.Name()) })

		ds := NewScheduler(NewManager(file))
		t.Cleanup(ds.Shutdown)

		assert.NoError(t, ds.IncreaseDiskSpace(100))

		fileInfo, err := os.Stat(file.Name())
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, fileInfo.Size(), int64(PAGE_SIZE)*100)
	})

	t.Run("shutdown is idempotent and drains outstanding requests first", func(t *testing.T) {
		file := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(file.Name()) })

		ds := NewScheduler(NewManager(file))

		respCh := ds.Schedule(NewRequest(1, make([]byte, PAGE_SIZE), true))

		ds.Shutdown()
		ds.Shutdown()

		resp := <-respCh
		assert.True(t, resp.Success)
	})
}
