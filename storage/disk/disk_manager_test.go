package disk

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiskManager(t *testing.T) {
	t.Run("writes and reads back a page at its direct offset", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(dbFile.Name()) })

		dm := NewManager(dbFile)

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("hello world"))

		assert.NoError(t, dm.writePage(1, buf))

		res, err := dm.readPage(1)
		assert.NoError(t, err)
		assert.Equal(t, buf, res)
	})

	t.Run("reads beyond EOF return zero-filled data", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(dbFile.Name()) })

		dm := NewManager(dbFile)
		dm.pageCapacity = 1

		res, err := dm.readPage(50)
		assert.NoError(t, err)
		assert.True(t, bytes.Equal(res, make([]byte, PAGE_SIZE)))
	})

	t.Run("db file grows when a write targets beyond current capacity", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(dbFile.Name()) })

		dm := NewManager(dbFile)
		dm.pageCapacity = 1

		buf := make([]byte, PAGE_SIZE)
		assert.NoError(t, dm.writePage(3, buf))

		fileInfo, err := os.Stat(dbFile.Name())
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, fileInfo.Size(), int64(PAGE_SIZE)*4)
	})

	t.Run("increaseDiskSpace grows the file without writing", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(dbFile.Name()) })

		dm := NewManager(dbFile)
		dm.pageCapacity = 1

		assert.NoError(t, dm.increaseDiskSpace(10))

		fileInfo, err := os.Stat(dbFile.Name())
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, fileInfo.Size(), int64(PAGE_SIZE)*10)
	})

	t.Run("page IDs occupy disjoint, non-overlapping offsets", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		t.Cleanup(func() { _ = os.Remove(dbFile.Name()) })

		dm := NewManager(dbFile)

		for i := int64(0); i < 5; i++ {
			buf := make([]byte, PAGE_SIZE)
			copy(buf, []byte(fmt.Sprintf("page-%d", i)))
			assert.NoError(t, dm.writePage(i, buf))
		}

		for i := int64(0); i < 5; i++ {
			res, err := dm.readPage(i)
			assert.NoError(t, err)
			assert.True(t, bytes.HasPrefix(res, []byte(fmt.Sprintf("page-%d", i))))
		}
	})
}

func CreateDbFile(t *testing.T) *os.File {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")

	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		panic(fmt.Sprintf("failed creating db file\n%v", err))
	}

	_ = os.Truncate(file.Name(), PAGE_SIZE)
	return file
}
