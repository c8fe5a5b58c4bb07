package buffer

import "bpindex/diskio"

// FrameID indexes a slot in the buffer pool's fixed frame array.
type FrameID int32

// Frame is one in-memory slot that can hold one page (spec.md component A).
// The buffer pool manager serializes every mutation to a Frame; a Frame has
// no locking of its own.
type Frame struct {
	data     []byte
	pageID   diskio.PageID
	pinCount int32
	isDirty  bool
}

func newFrame() *Frame {
	return &Frame{
		data:   make([]byte, diskio.PageSize),
		pageID: diskio.InvalidPageID,
	}
}

// Data returns the frame's raw page buffer. Callers must not retain it past
// the life of their pin.
func (f *Frame) Data() []byte { return f.data }

// PageID returns the page id currently resident in the frame.
func (f *Frame) PageID() diskio.PageID { return f.pageID }

// PinCount returns the frame's current pin count.
func (f *Frame) PinCount() int32 { return f.pinCount }

// IsDirty reports whether the frame has been modified since its last write.
func (f *Frame) IsDirty() bool { return f.isDirty }

// resetMemory zeroes the buffer and clears identity/metadata, readying the
// frame to be recycled for a different page.
func (f *Frame) resetMemory() {
	for i := range f.data {
		f.data[i] = 0
	}
	f.pageID = diskio.InvalidPageID
	f.pinCount = 0
	f.isDirty = false
}
