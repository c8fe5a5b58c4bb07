// Package keyval defines the key/value/comparator contract the B+ tree
// index is built against (spec component H). Keys and values are fixed-size
// byte records so every leaf slot occupies the same number of bytes on a
// page, which is what lets a node's max_size be computed once from the
// page size instead of tracked per page.
package keyval

import "encoding/binary"

// KeySize is the width, in bytes, of every index key. 8 bytes is enough to
// hold a big-endian int64, which is how callers typically encode an
// ordered primary key.
const KeySize = 8

// ValueSize is the width, in bytes, of every index value. A value is
// conceptually a row identifier: a page id and a slot number within that
// page, matching the "(page_id, slot)" shape spec.md's GLOSSARY describes.
const ValueSize = 8

// Key is a fixed-size, totally ordered record.
type Key [KeySize]byte

// Value is a fixed-size opaque record — conceptually a row identifier.
type Value [ValueSize]byte

// Comparator defines a strict total order over keys. It returns a negative
// number if a < b, zero if a == b, and a positive number if a > b.
type Comparator func(a, b Key) int

// ByteOrderComparator orders keys by unsigned byte-lexicographic comparison,
// which matches ascending numeric order for keys built with Int64Key.
func ByteOrderComparator(a, b Key) int {
	for i := 0; i < KeySize; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Int64Key encodes a signed int64 as a big-endian, sign-flipped Key so that
// ByteOrderComparator sorts keys in the same order as the integers they
// represent.
func Int64Key(v int64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[:], uint64(v)^(1<<63))
	return k
}

// Int64 decodes a Key produced by Int64Key back into a signed int64.
func (k Key) Int64() int64 {
	return int64(binary.BigEndian.Uint64(k[:]) ^ (1 << 63))
}

// RID is the concrete row identifier most callers will pack into a Value:
// the page a tuple lives on, plus its slot index within that page.
type RID struct {
	PageID int32
	Slot   uint32
}

// Encode packs the RID into a Value.
func (r RID) Encode() Value {
	var v Value
	binary.BigEndian.PutUint32(v[0:4], uint32(r.PageID))
	binary.BigEndian.PutUint32(v[4:8], r.Slot)
	return v
}

// DecodeRID unpacks a Value produced by RID.Encode.
func DecodeRID(v Value) RID {
	return RID{
		PageID: int32(binary.BigEndian.Uint32(v[0:4])),
		Slot:   binary.BigEndian.Uint32(v[4:8]),
	}
}
