package buffer

import "sync"

// lruReplacer tracks unpinned frames and chooses a victim for eviction
// (spec.md component B). It is internally serialized — the buffer pool
// manager calls it while already holding its own mutex, but the replacer
// can't assume that and guards itself too.
//
// Grounded in the teacher's own bug report (spec.md section 9, open
// question 4, "Source LRUReplacer::Victim checks *frame_id > size on an
// uninitialized out-param") and in other_examples/bietkhonhungvandi212-array-db's
// split between a pluggable Replacer and shared frame bookkeeping — here
// folded into one type since spec.md only asks for a single LRU policy.
type lruReplacer struct {
	mu       sync.Mutex
	capacity int
	clock    uint64
	entries  map[FrameID]uint64 // frameID -> timestamp of last unpin
}

func newLRUReplacer(capacity int) *lruReplacer {
	return &lruReplacer{
		capacity: capacity,
		entries:  make(map[FrameID]uint64, capacity),
	}
}

// victim picks the unpinned frame with the smallest timestamp (least
// recently unpinned), removes it from the replacer, and returns it. It
// returns ok=false on an empty candidate set — there is no uninitialized
// out-param check to get wrong, unlike the teacher's source bug.
func (r *lruReplacer) victim() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best FrameID
	var bestTS uint64
	found := false
	for id, ts := range r.entries {
		if !found || ts < bestTS {
			best, bestTS, found = id, ts, true
		}
	}
	if !found {
		return 0, false
	}
	delete(r.entries, best)
	return best, true
}

// pin removes frameID from the replacer's candidate set. No-op if absent.
func (r *lruReplacer) pin(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, frameID)
}

// unpin inserts frameID with the next timestamp, refreshing it to
// most-recently-unpinned if already present.
func (r *lruReplacer) unpin(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock++
	r.entries[frameID] = r.clock
}

// size returns the number of frames currently tracked as eviction
// candidates.
func (r *lruReplacer) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
