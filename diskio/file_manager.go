package diskio

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// FileManager is a Disk Manager backed by a single OS file, grounded in the
// teacher's storage_engine/disk_manager. Unlike the teacher, which encodes a
// (fileID, localPage) pair into every page id to support many files sharing
// one buffer pool, this module's scope is a single index file, so page ids
// are plain, monotonically increasing offsets within that one file.
type FileManager struct {
	mu         sync.Mutex
	file       *os.File
	nextPageID PageID
}

// OpenFileManager opens (creating if necessary) the file at path and
// computes the next allocatable page id from its current size.
func OpenFileManager(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "diskio: open %s", path)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "diskio: stat %s", path)
	}

	return &FileManager{
		file:       f,
		nextPageID: PageID(stat.Size() / PageSize),
	}, nil
}

func (fm *FileManager) ReadPage(id PageID, buf []byte) error {
	if len(buf) != PageSize {
		return errors.Errorf("diskio: read buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset := int64(id) * PageSize
	n, err := fm.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return Fault("ReadPage", id, err)
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

func (fm *FileManager) WritePage(id PageID, buf []byte) error {
	if len(buf) != PageSize {
		return errors.Errorf("diskio: write buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset := int64(id) * PageSize
	if _, err := fm.file.WriteAt(buf, offset); err != nil {
		return Fault("WritePage", id, err)
	}
	if id >= fm.nextPageID {
		fm.nextPageID = id + 1
	}
	return nil
}

func (fm *FileManager) AllocatePage() (PageID, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	id := fm.nextPageID
	fm.nextPageID++
	return id, nil
}

// DeallocatePage is a no-op: this module does not reclaim on-disk space,
// matching spec.md section 6 ("implementation may be a no-op").
func (fm *FileManager) DeallocatePage(id PageID) error {
	return nil
}

// Sync flushes the underlying file to stable storage.
func (fm *FileManager) Sync() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if err := fm.file.Sync(); err != nil {
		return Fault("Sync", InvalidPageID, err)
	}
	return nil
}

// Close syncs and closes the underlying file.
func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if err := fm.file.Sync(); err != nil {
		return Fault("Sync", InvalidPageID, err)
	}
	return fm.file.Close()
}
