// Package nodeidx implements the hybrid node index: a compact, disk-backed
// monotonic sparse map from 64-bit OSM node ids to 2-D fixed-point
// coordinates (spec section 4.1). Two append-only files back it: idx.bin
// (fixed-size span anchors) and dat.bin (zig-zag varint delta payloads).
package nodeidx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInconsistentDuplicate is returned when the same node id is pushed
// twice with differing coordinates.
var ErrInconsistentDuplicate = errors.New("nodeidx: duplicate id with inconsistent coordinates")

// ErrNonMonotonicID is returned when ids are pushed out of order.
var ErrNonMonotonicID = errors.New("nodeidx: ids must be non-decreasing")

// ErrCorruptIndex is returned when the on-disk files are truncated or
// malformed.
var ErrCorruptIndex = errors.New("nodeidx: corrupt index")

// spanRecordSize is the fixed byte size of one anchor entry in idx.bin:
// FirstID (u64) + DatOffset (u64) + DatLen (u32) + Count (u32).
const spanRecordSize = 24

// span is one anchor entry, as stored in idx.bin.
type span struct {
	FirstID   uint64
	DatOffset uint64
	DatLen    uint32
	Count     uint32
}

func (s span) encode() []byte {
	b := make([]byte, spanRecordSize)
	binary.LittleEndian.PutUint64(b[0:8], s.FirstID)
	binary.LittleEndian.PutUint64(b[8:16], s.DatOffset)
	binary.LittleEndian.PutUint32(b[16:20], s.DatLen)
	binary.LittleEndian.PutUint32(b[20:24], s.Count)
	return b
}

func decodeSpan(b []byte) span {
	return span{
		FirstID:   binary.LittleEndian.Uint64(b[0:8]),
		DatOffset: binary.LittleEndian.Uint64(b[8:16]),
		DatLen:    binary.LittleEndian.Uint32(b[16:20]),
		Count:     binary.LittleEndian.Uint32(b[20:24]),
	}
}

// foldID folds an OSM-style signed id (negative ids denote proxy/relation
// members) into the unsigned id space the index stores, by absolute value.
func foldID(id int64) uint64 {
	if id < 0 {
		return uint64(-id)
	}
	return uint64(id)
}

func zigzagEncode(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }
func zigzagDecode(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func fmtSpanErr(id uint64) error {
	return fmt.Errorf("%w: id %d", ErrNonMonotonicID, id)
}
