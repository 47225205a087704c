package index

import (
	"fmt"
	"os"
	"path"
	"testing"

	"github.com/student/petro/buffer"
	"github.com/student/petro/storage/disk"
	"github.com/stretchr/testify/assert"
)

func TestBPlusTree(t *testing.T) {
	t.Run("stored values can be retrieved", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[string, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		register := map[string]int{
			"john": 25,
			"doe":  45,
			"jane": 40,
		}

		for k, v := range register {
			inserted, err := bplus.Insert(k, v)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		for k, v := range register {
			val, found, err := bplus.GetValue(k)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, v, val)
		}
	})

	t.Run("looking up an absent key reports not found", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[string, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		_, found, err := bplus.GetValue("missing")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("inserting a duplicate key is rejected", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[string, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		inserted, err := bplus.Insert("john", 25)
		assert.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = bplus.Insert("john", 99)
		assert.NoError(t, err)
		assert.False(t, inserted)

		val, found, err := bplus.GetValue("john")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 25, val)
	})

	t.Run("can store and retrieve more items than a single page holds", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := 100; i >= 0; i-- {
			inserted, err := bplus.Insert(i, i*10)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		for i := range 101 {
			val, found, err := bplus.GetValue(i)
			if err != nil {
				fmt.Println(err)
			}
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, i*10, val)
		}
	})

	t.Run("ascending inserts also split and stay retrievable", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := range 101 {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		for i := range 101 {
			val, found, err := bplus.GetValue(i)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, i, val)
		}
	})

	t.Run("odd fanout forces multi-level splits and stays correct", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 2, 3)
		assert.NoError(t, err)

		for i := 1; i <= 20; i++ {
			inserted, err := bplus.Insert(i, i*10)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		for i := 1; i <= 20; i++ {
			val, found, err := bplus.GetValue(i)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, i*10, val)
		}

		it, err := bplus.GetIterator()
		assert.NoError(t, err)

		res := []int{}
		for !it.IsEnd() {
			key, _, err := it.Next()
			assert.NoError(t, err)
			res = append(res, key)
		}

		expected := []int{}
		for i := 1; i <= 20; i++ {
			expected = append(expected, i)
		}
		assert.Equal(t, expected, res)

		for i := 1; i <= 20; i += 2 {
			removed, err := bplus.Remove(i)
			assert.NoError(t, err)
			assert.True(t, removed)
		}

		for i := 1; i <= 20; i++ {
			_, found, err := bplus.GetValue(i)
			assert.NoError(t, err)
			assert.Equal(t, i%2 == 0, found)
		}
	})

	t.Run("can iterate through stored values in key order", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := 100; i >= 0; i-- {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		it, err := bplus.GetIterator()
		assert.NoError(t, err)

		res := []int{}
		for !it.IsEnd() {
			_, val, err := it.Next()
			assert.NoError(t, err)
			res = append(res, val)
		}

		expected := []int{}
		for i := range 101 {
			expected = append(expected, i)
		}
		assert.Equal(t, expected, res)
	})

	t.Run("key range returns only values within bounds, in order", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := range 50 {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		res, err := bplus.GetKeyRange(10, 20)
		assert.NoError(t, err)

		expected := []int{}
		for i := 10; i <= 20; i++ {
			expected = append(expected, i)
		}
		assert.Equal(t, expected, res)
	})

	t.Run("BeginAt positions the cursor at the first key not less than the target", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for _, k := range []int{2, 4, 6, 8, 10} {
			inserted, err := bplus.Insert(k, k)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		it, err := bplus.BeginAt(5)
		assert.NoError(t, err)
		assert.False(t, it.IsEnd())

		key, val, err := it.Next()
		assert.NoError(t, err)
		assert.Equal(t, 6, key)
		assert.Equal(t, 6, val)
	})

	t.Run("advancing an iterator to exhaustion equals End", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := range 20 {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		it, err := bplus.Begin()
		assert.NoError(t, err)
		for !it.IsEnd() {
			_, _, err := it.Next()
			assert.NoError(t, err)
		}

		assert.True(t, it.Equals(bplus.End()))
	})

	t.Run("batch insert adds every item", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[string, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		items := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
		assert.NoError(t, bplus.BatchInsert(items))

		for k, v := range items {
			val, found, err := bplus.GetValue(k)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, v, val)
		}
	})

	t.Run("removing a key makes it unretrievable while others survive", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := range 30 {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		removed, err := bplus.Remove(15)
		assert.NoError(t, err)
		assert.True(t, removed)

		_, found, err := bplus.GetValue(15)
		assert.NoError(t, err)
		assert.False(t, found)

		for _, i := range []int{0, 14, 16, 29} {
			val, found, err := bplus.GetValue(i)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, i, val)
		}
	})

	t.Run("removing an absent key is a no-op", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		inserted, err := bplus.Insert(1, 1)
		assert.NoError(t, err)
		assert.True(t, inserted)

		removed, err := bplus.Remove(2)
		assert.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("removing every key leaves the tree empty", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := range 40 {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		for i := range 40 {
			removed, err := bplus.Remove(i)
			assert.NoError(t, err)
			assert.True(t, removed)
		}

		empty, err := bplus.IsEmpty()
		assert.NoError(t, err)
		assert.True(t, empty)
	})

	t.Run("descending removal still leaves surviving keys retrievable", func(t *testing.T) {
		bpm := createBpm(t)
		bplus, err := NewBPlusTree[int, int]("test", bpm, 4, 4)
		assert.NoError(t, err)

		for i := range 40 {
			inserted, err := bplus.Insert(i, i)
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		for i := 39; i >= 20; i-- {
			removed, err := bplus.Remove(i)
			assert.NoError(t, err)
			assert.True(t, removed)
		}

		for i := range 20 {
			val, found, err := bplus.GetValue(i)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, i, val)
		}
		for i := 20; i < 40; i++ {
			_, found, err := bplus.GetValue(i)
			assert.NoError(t, err)
			assert.False(t, found)
		}
	})
}

func createBpm(t *testing.T) *buffer.BufferpoolManager {
	file := CreateDbFile(t)
	t.Cleanup(func() {
		_ = os.Remove(file.Name())
	})

	replacer := buffer.NewLrukReplacer(32, 2)
	diskMgr := disk.NewManager(file)
	diskScheduler := disk.NewScheduler(diskMgr)

	return buffer.NewBufferpoolManager(32, replacer, diskScheduler)
}

func CreateDbFile(t *testing.T) *os.File {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")

	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		panic(fmt.Sprintf("failed creating db file\n%v", err))
	}

	_ = os.Truncate(file.Name(), disk.PAGE_SIZE)
	fileInfo, err := os.Stat(file.Name())
	assert.NoError(t, err)
	assert.Equal(t, int64(disk.PAGE_SIZE), fileInfo.Size())
	return file
}
