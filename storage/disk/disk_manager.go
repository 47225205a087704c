package disk

import (
	"fmt"
	"os"
	"sync"
)

// DiskManager reads and writes fixed-size pages to a flat backing file.
// Page p occupies bytes [p*PAGE_SIZE, (p+1)*PAGE_SIZE) — there is no
// global header, and no space reclamation: page IDs only grow.
func NewManager(file *os.File) *DiskManager {
	dm := &DiskManager{
		dbFile:       file,
		pageCapacity: DEFAULT_PAGE_CAPACITY,
	}

	if info, err := file.Stat(); err == nil && info.Size() >= int64(DEFAULT_PAGE_CAPACITY)*PAGE_SIZE {
		dm.pageCapacity = info.Size() / PAGE_SIZE
		return dm
	}

	_ = os.Truncate(file.Name(), int64(DEFAULT_PAGE_CAPACITY)*PAGE_SIZE)
	return dm
}

func (dm *DiskManager) writePage(pageId int64, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.growLocked(pageId + 1); err != nil {
		return err
	}

	offset := pageId * PAGE_SIZE
	if _, err := dm.dbFile.WriteAt(data[:PAGE_SIZE], offset); err != nil {
		return fmt.Errorf("error writing at offset %d: %v", offset, err)
	}

	return nil
}

func (dm *DiskManager) readPage(pageId int64) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := make([]byte, PAGE_SIZE)
	offset := pageId * PAGE_SIZE

	// reads beyond EOF return zero-filled data rather than an error
	if _, err := dm.dbFile.ReadAt(buf, offset); err != nil {
		return buf, nil
	}

	return buf, nil
}

// increaseDiskSpace ensures the backing file can hold at least numPages
// pages, growing it by doubling if needed.
func (dm *DiskManager) increaseDiskSpace(numPages int64) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	return dm.growLocked(numPages)
}

func (dm *DiskManager) growLocked(numPages int64) error {
	if numPages <= dm.pageCapacity {
		return nil
	}

	newCapacity := dm.pageCapacity
	for newCapacity < numPages {
		newCapacity *= 2
	}

	if err := os.Truncate(dm.dbFile.Name(), newCapacity*PAGE_SIZE); err != nil {
		return fmt.Errorf("error resizing db file: %v", err)
	}
	dm.pageCapacity = newCapacity
	return nil
}

type DiskManager struct {
	mu           sync.Mutex
	dbFile       *os.File
	pageCapacity int64
}
