package diskio

import (
	"sync"

	"github.com/pkg/errors"
)

// MemoryManager is a Disk Manager backed by an in-process slice of pages,
// grounded in the teacher's bplustree/inmemory_pager.go. It is used by unit
// tests that want to exercise the buffer pool and B+ tree without touching
// the filesystem, and lets tests assert on write ordering directly (see
// spec.md section 8, property 4: write-back on eviction).
type MemoryManager struct {
	mu    sync.Mutex
	pages [][]byte

	// WriteLog records every WritePage call in order, for tests asserting
	// on eviction write-back ordering.
	WriteLog []PageID
}

// NewMemoryManager returns an empty in-memory Disk Manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{}
}

func (m *MemoryManager) ReadPage(id PageID, buf []byte) error {
	if len(buf) != PageSize {
		return errors.Errorf("diskio: read buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if int(id) < 0 || int(id) >= len(m.pages) || m.pages[id] == nil {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, m.pages[id])
	return nil
}

func (m *MemoryManager) WritePage(id PageID, buf []byte) error {
	if len(buf) != PageSize {
		return errors.Errorf("diskio: write buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.growTo(int(id))
	page := make([]byte, PageSize)
	copy(page, buf)
	m.pages[id] = page
	m.WriteLog = append(m.WriteLog, id)
	return nil
}

func (m *MemoryManager) AllocatePage() (PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := PageID(len(m.pages))
	m.pages = append(m.pages, nil)
	return id, nil
}

func (m *MemoryManager) DeallocatePage(id PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if int(id) >= 0 && int(id) < len(m.pages) {
		m.pages[id] = nil
	}
	return nil
}

func (m *MemoryManager) growTo(id int) {
	for len(m.pages) <= id {
		m.pages = append(m.pages, nil)
	}
}
