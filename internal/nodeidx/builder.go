package nodeidx

import "io"

// DefaultSpanByteBudget bounds how many encoded payload bytes a single span
// may accumulate before the builder starts a fresh one; it keeps the
// sequential walk a reader performs within one span bounded, independent of
// how sparse or dense the overall id range is. Chosen to comfortably hold a
// few hundred entries of typical (small-delta) OSM node data.
const DefaultSpanByteBudget = 4096

// MaxIDGapVarintBytes bounds how many bytes the id delta alone may take
// before the builder prefers to start a new span (re-anchoring FirstID)
// rather than pay for an outsized gap varint.
const MaxIDGapVarintBytes = 4

// Builder accumulates pushed (id, x, y) triples into spans and writes the
// idx/dat file pair described in spec section 4.1. Ids must be pushed in
// non-decreasing order (after folding negative ids to their absolute
// value); Builder does not sort.
type Builder struct {
	idx io.Writer
	dat io.Writer

	spanByteBudget int

	datOffset uint64

	hasLast          bool
	lastID           uint64
	lastX, lastY     uint32
	spanOpen         bool
	spanFirstID      uint64
	spanAccID        uint64
	spanAccX         uint32
	spanAccY         uint32
	spanCount        uint32
	payload          *varintWriter
	spanStartOffset  uint64
}

// Option configures a Builder.
type Option func(*Builder)

// WithSpanByteBudget overrides DefaultSpanByteBudget.
func WithSpanByteBudget(n int) Option {
	return func(b *Builder) { b.spanByteBudget = n }
}

// NewBuilder creates a Builder writing anchors to idx and payloads to dat.
// Both are expected to be freshly truncated/empty files (or equivalent).
func NewBuilder(idx, dat io.Writer, opts ...Option) *Builder {
	b := &Builder{
		idx:            idx,
		dat:            dat,
		spanByteBudget: DefaultSpanByteBudget,
		payload:        &varintWriter{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Push appends one node's coordinates to the index. rawID is the signed OSM
// node id (folded to absolute value internally). Ids must be non-decreasing
// by absolute value; an exact repeat of the last (id, x, y) is silently
// ignored, while a repeated id with different coordinates is rejected.
func (b *Builder) Push(rawID int64, x, y uint32) error {
	id := foldID(rawID)

	if b.hasLast {
		if id < b.lastID {
			return fmtSpanErr(id)
		}
		if id == b.lastID {
			if x == b.lastX && y == b.lastY {
				return nil
			}
			return ErrInconsistentDuplicate
		}
	}

	if !b.spanOpen {
		b.openSpan(id)
	} else if b.shouldSplit(id, x, y) {
		if err := b.finishSpan(); err != nil {
			return err
		}
		b.openSpan(id)
	}

	dID := int64(id - b.spanAccID)
	dX := int64(int64(x) - int64(b.spanAccX))
	dY := int64(int64(y) - int64(b.spanAccY))
	b.payload.writeVarint(dID)
	b.payload.writeVarint(dX)
	b.payload.writeVarint(dY)

	b.spanAccID = id
	b.spanAccX = x
	b.spanAccY = y
	b.spanCount++

	b.lastID, b.lastX, b.lastY, b.hasLast = id, x, y, true
	return nil
}

// shouldSplit reports whether adding (id, x, y) to the currently open span
// would exceed the span's byte budget, or whether the id gap alone is wide
// enough that re-anchoring is cheaper than encoding it as a delta.
func (b *Builder) shouldSplit(id uint64, x, y uint32) bool {
	dID := int64(id - b.spanAccID)
	if uvarintLen(zigzagEncode(dID)) > MaxIDGapVarintBytes {
		return true
	}
	dX := int64(int64(x) - int64(b.spanAccX))
	dY := int64(int64(y) - int64(b.spanAccY))
	entryLen := uvarintLen(zigzagEncode(dID)) + uvarintLen(zigzagEncode(dX)) + uvarintLen(zigzagEncode(dY))
	return len(b.payload.buf)+entryLen > b.spanByteBudget
}

func (b *Builder) openSpan(firstID uint64) {
	b.spanOpen = true
	b.spanFirstID = firstID
	b.spanAccID = firstID
	b.spanAccX = 0
	b.spanAccY = 0
	b.spanCount = 0
	b.payload = &varintWriter{}
	b.spanStartOffset = b.datOffset
}

// finishSpan flushes the currently open span's payload to dat and its
// anchor record to idx.
func (b *Builder) finishSpan() error {
	if !b.spanOpen || b.spanCount == 0 {
		return nil
	}
	n, err := b.dat.Write(b.payload.buf)
	if err != nil {
		return err
	}
	s := span{
		FirstID:   b.spanFirstID,
		DatOffset: b.spanStartOffset,
		DatLen:    uint32(n),
		Count:     b.spanCount,
	}
	if _, err := b.idx.Write(s.encode()); err != nil {
		return err
	}
	b.datOffset += uint64(n)
	b.spanOpen = false
	return nil
}

// Finish flushes any open span. It must be called exactly once after all
// pushes are complete.
func (b *Builder) Finish() error {
	return b.finishSpan()
}
