// Package buffer implements spec.md components B (LRU Replacer) and C
// (Buffer Pool Manager): a fixed-size frame array backed by a page table,
// a free list, and an LRU replacer, mediating all access to a diskio.Manager.
//
// Restructured from the teacher's (ShubhamNegi4-DaemonDB) page-id-keyed
// map into the frame-array model spec.md's DATA MODEL section requires,
// additionally grounded in other_examples/bietkhonhungvandi212-array-db's
// split between a pluggable replacer and shared frame-index bookkeeping.
package buffer

import (
	"sync"

	"bpindex/diskio"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrBufferFull is returned by Fetch/NewPage when every frame is pinned and
// no frame can be acquired. It is not a fault — callers may legitimately
// retry after releasing pins.
var ErrBufferFull = errors.New("buffer: no frame available")

// Config tunes a Pool. There is no process-wide mutable state — every Pool
// is constructed with its own Config, per spec.md's design note on
// "Global/static tuning".
type Config struct {
	// PoolSize is the fixed number of frames in the pool.
	PoolSize int
}

// DefaultConfig returns a Config suitable for production use.
func DefaultConfig() Config {
	return Config{PoolSize: 64}
}

// Pool is the Buffer Pool Manager (spec.md component C). All of its public
// operations (Fetch, NewPage, Unpin, Flush, FlushAll, DeletePage, Stats)
// acquire a single coarse mutex on entry and release it on exit, per spec.md section
// 5 — simplicity over throughput, as the spec explicitly permits.
type Pool struct {
	mu sync.Mutex

	frames    []*Frame
	pageTable map[diskio.PageID]FrameID
	freeList  []FrameID
	replacer  *lruReplacer

	disk diskio.Manager
	log  *logrus.Logger
}

// New constructs a Pool with cfg.PoolSize frames, backed by disk.
func New(cfg Config, disk diskio.Manager, log *logrus.Logger) *Pool {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultConfig().PoolSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	frames := make([]*Frame, cfg.PoolSize)
	freeList := make([]FrameID, cfg.PoolSize)
	for i := range frames {
		frames[i] = newFrame()
		freeList[i] = FrameID(i)
	}

	return &Pool{
		frames:    frames,
		pageTable: make(map[diskio.PageID]FrameID, cfg.PoolSize),
		freeList:  freeList,
		replacer:  newLRUReplacer(cfg.PoolSize),
		disk:      disk,
		log:       log,
	}
}

// Capacity returns the pool's fixed frame count.
func (p *Pool) Capacity() int { return len(p.frames) }

// acquireFrame obtains a frame via the free list, falling back to the
// replacer's victim. On a dirty victim it writes the victim back to disk
// before the frame's old page-table entry is erased — spec.md's ordering
// invariant for write-back on eviction.
func (p *Pool) acquireFrame() (FrameID, bool, error) {
	if n := len(p.freeList); n > 0 {
		id := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return id, true, nil
	}

	id, ok := p.replacer.victim()
	if !ok {
		return 0, false, nil
	}

	f := p.frames[id]
	if f.isDirty {
		p.log.WithFields(logrus.Fields{"frame_id": id, "page_id": f.pageID}).Debug("buffer: write back dirty victim")
		if err := p.disk.WritePage(f.pageID, f.data); err != nil {
			// Eviction aborted — the frame is still resident and unpinned,
			// so it remains a valid future victim.
			p.replacer.unpin(id)
			return 0, false, err
		}
		f.isDirty = false
	}
	delete(p.pageTable, f.pageID)
	return id, true, nil
}

// Fetch retrieves a page, pinning it, loading from disk if it is not
// already resident. It returns ErrBufferFull if every frame is pinned.
func (p *Pool) Fetch(id diskio.PageID) (*PageGuard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.pageTable[id]; ok {
		f := p.frames[frameID]
		f.pinCount++
		p.replacer.pin(frameID)
		p.log.WithFields(logrus.Fields{"page_id": id, "frame_id": frameID}).Trace("buffer: fetch hit")
		return &PageGuard{pool: p, frameID: frameID, pageID: id}, nil
	}

	frameID, ok, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBufferFull
	}

	f := p.frames[frameID]
	f.pageID = id
	f.pinCount = 1
	f.isDirty = false
	p.pageTable[id] = frameID

	if err := p.disk.ReadPage(id, f.data); err != nil {
		delete(p.pageTable, id)
		f.resetMemory()
		p.freeList = append(p.freeList, frameID)
		return nil, err
	}

	p.log.WithFields(logrus.Fields{"page_id": id, "frame_id": frameID}).Trace("buffer: fetch miss")
	return &PageGuard{pool: p, frameID: frameID, pageID: id}, nil
}

// NewPage allocates a fresh page via the Disk Manager and pins it in a
// frame, zeroing the frame's buffer. The fresh page is clean until the
// caller writes to it and marks it dirty.
func (p *Pool) NewPage() (*PageGuard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok, err := p.acquireFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBufferFull
	}

	pageID, err := p.disk.AllocatePage()
	if err != nil {
		p.freeList = append(p.freeList, frameID)
		return nil, err
	}

	f := p.frames[frameID]
	f.resetMemory()
	f.pageID = pageID
	f.pinCount = 1
	f.isDirty = false
	p.pageTable[pageID] = frameID

	p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).Debug("buffer: new page")
	return &PageGuard{pool: p, frameID: frameID, pageID: pageID}, nil
}

// Unpin decrements a page's pin count and ORs in dirty (never clearing a
// previously-set dirty flag). It returns false if the page is absent, or if
// pin count is already zero — a double-unpin is a programming error.
func (p *Pool) Unpin(id diskio.PageID, dirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[id]
	if !ok {
		return false
	}
	f := p.frames[frameID]
	if f.pinCount <= 0 {
		p.log.WithField("page_id", id).Warn("buffer: double unpin")
		return false
	}

	if dirty {
		f.isDirty = true
	}
	f.pinCount--
	if f.pinCount == 0 {
		p.replacer.unpin(frameID)
	}
	return true
}

// Flush writes a resident page to disk if dirty and clears its dirty flag.
// It does not evict or change pin state — the frame remains resident
// exactly as it was (spec.md section 9, open question 2, correcting the
// teacher's FlushPage, which conflated flush with evict).
func (p *Pool) Flush(id diskio.PageID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(id)
}

func (p *Pool) flushLocked(id diskio.PageID) (bool, error) {
	frameID, ok := p.pageTable[id]
	if !ok {
		return false, nil
	}
	f := p.frames[frameID]
	if !f.isDirty {
		return true, nil
	}
	if err := p.disk.WritePage(id, f.data); err != nil {
		return false, err
	}
	f.isDirty = false
	return true, nil
}

// FlushAll flushes every resident dirty page. It iterates page-table
// residents directly, never calling Fetch (spec.md section 9, open
// question 3, correcting the teacher's FlushAllPages, which pinned every
// page via FetchPage and leaked those pins).
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.pageTable {
		if _, err := p.flushLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes a page from the pool. If the page is not resident, it
// deallocates on disk and returns true, or false with the error if the
// deallocation fails. If resident and
// pinned, it returns false without deallocating (spec.md section 9, open
// question 1, correcting the teacher's DeletePage, which double-locked its
// own mutex instead of unlocking on this path).
func (p *Pool) DeletePage(id diskio.PageID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[id]
	if !ok {
		if err := p.disk.DeallocatePage(id); err != nil {
			return false, err
		}
		return true, nil
	}

	f := p.frames[frameID]
	if f.pinCount > 0 {
		return false, nil
	}

	delete(p.pageTable, id)
	p.replacer.pin(frameID) // no-op if the frame wasn't a replacer candidate
	f.resetMemory()
	p.freeList = append(p.freeList, frameID)

	if err := p.disk.DeallocatePage(id); err != nil {
		return true, err
	}
	return true, nil
}

// Stats is a read-only snapshot of buffer pool occupancy, recovered from
// the teacher's BufferPool.GetStats/BufferPoolStats (dropped by spec.md's
// distillation but harmless to carry — it touches no invariant the
// Non-goals exclude).
type Stats struct {
	Capacity    int
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	ReplacerLen int
}

// Stats returns a snapshot of the pool's current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Capacity:    len(p.frames),
		TotalPages:  len(p.pageTable),
		ReplacerLen: p.replacer.size(),
	}
	for _, frameID := range p.pageTable {
		f := p.frames[frameID]
		if f.pinCount > 0 {
			s.PinnedPages++
		}
		if f.isDirty {
			s.DirtyPages++
		}
	}
	return s
}
