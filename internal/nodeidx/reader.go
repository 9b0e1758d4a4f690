package nodeidx

import (
	"io"
	"sort"
)

// Reader resolves node ids to coordinates from an idx/dat file pair built
// by Builder. The full anchor list is held in memory (one span is 24
// bytes: even a planet-scale extract's index is a few hundred MB at most);
// payloads are read from dat on demand via ReaderAt.
type Reader struct {
	spans []span
	dat   io.ReaderAt
}

// Open constructs a Reader from the raw contents of idx.bin and a
// ReaderAt over dat.bin.
func Open(idxBytes []byte, dat io.ReaderAt) (*Reader, error) {
	if len(idxBytes)%spanRecordSize != 0 {
		return nil, ErrCorruptIndex
	}
	n := len(idxBytes) / spanRecordSize
	spans := make([]span, n)
	for i := 0; i < n; i++ {
		spans[i] = decodeSpan(idxBytes[i*spanRecordSize : (i+1)*spanRecordSize])
	}
	return &Reader{spans: spans, dat: dat}, nil
}

// spanFor returns the index into r.spans of the span that would contain
// id, or -1 if id falls before the first span's FirstID.
func (r *Reader) spanFor(id uint64) int {
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].FirstID > id })
	if i == 0 {
		return -1
	}
	return i - 1
}

// Get resolves a single node id (OSM-signed, folded by absolute value) to
// its stored coordinates. ok is false when the id was never pushed.
func (r *Reader) Get(rawID int64) (x, y uint32, ok bool, err error) {
	id := foldID(rawID)
	idx := r.spanFor(id)
	if idx < 0 {
		return 0, 0, false, nil
	}
	s := r.spans[idx]
	buf := make([]byte, s.DatLen)
	if _, err := r.dat.ReadAt(buf, int64(s.DatOffset)); err != nil {
		return 0, 0, false, err
	}
	return walkSpan(s, buf, id)
}

// walkSpan sequentially decodes a span's payload looking for id, stopping
// as soon as the running id accumulator reaches or passes it.
func walkSpan(s span, buf []byte, id uint64) (x, y uint32, ok bool, err error) {
	rd := &varintReader{buf: buf}
	curID := s.FirstID
	var curX, curY int64

	for i := uint32(0); i < s.Count; i++ {
		dID, err := rd.readVarint()
		if err != nil {
			return 0, 0, false, err
		}
		dX, err := rd.readVarint()
		if err != nil {
			return 0, 0, false, err
		}
		dY, err := rd.readVarint()
		if err != nil {
			return 0, 0, false, err
		}
		curID = uint64(int64(curID) + dID)
		curX += dX
		curY += dY
		if curID == id {
			return uint32(curX), uint32(curY), true, nil
		}
		if curID > id {
			return 0, 0, false, nil
		}
	}
	return 0, 0, false, nil
}

// Query is one entry in a batched lookup.
type Query struct {
	ID int64
	X  uint32
	Y  uint32
	OK bool
}

// GetBatch resolves many ids in one pass: queries are sorted by folded id,
// then spans are walked in anchor order, each span's payload decoded at
// most once regardless of how many queries land inside it.
func (r *Reader) GetBatch(ids []int64) ([]Query, error) {
	out := make([]Query, len(ids))
	order := make([]int, len(ids))
	for i, id := range ids {
		out[i] = Query{ID: id}
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return foldID(ids[order[a]]) < foldID(ids[order[b]])
	})

	qi := 0
	for si := range r.spans {
		s := r.spans[si]
		var upper uint64 = ^uint64(0)
		if si+1 < len(r.spans) {
			upper = r.spans[si+1].FirstID
		}

		// Collect the sorted-order indices that fall in [s.FirstID, upper).
		var inSpan []int
		for qi < len(order) && foldID(ids[order[qi]]) < s.FirstID {
			qi++ // ids before the first span never resolve
		}
		for qi < len(order) && foldID(ids[order[qi]]) < upper {
			inSpan = append(inSpan, order[qi])
			qi++
		}
		if len(inSpan) == 0 {
			continue
		}

		buf := make([]byte, s.DatLen)
		if _, err := r.dat.ReadAt(buf, int64(s.DatOffset)); err != nil {
			return nil, err
		}

		rd := &varintReader{buf: buf}
		curID := s.FirstID
		var curX, curY int64
		ii := 0
		for i := uint32(0); i < s.Count && ii < len(inSpan); i++ {
			dID, err := rd.readVarint()
			if err != nil {
				return nil, err
			}
			dX, err := rd.readVarint()
			if err != nil {
				return nil, err
			}
			dY, err := rd.readVarint()
			if err != nil {
				return nil, err
			}
			curID = uint64(int64(curID) + dID)
			curX += dX
			curY += dY
			// Any query id strictly below the scan position was never
			// present in this span (curID only increases); leave it
			// OK=false and advance past it so later, present ids in
			// the same span aren't starved.
			for ii < len(inSpan) && foldID(ids[inSpan[ii]]) < curID {
				ii++
			}
			for ii < len(inSpan) && foldID(ids[inSpan[ii]]) == curID {
				out[inSpan[ii]].X = uint32(curX)
				out[inSpan[ii]].Y = uint32(curY)
				out[inSpan[ii]].OK = true
				ii++
			}
		}
	}
	return out, nil
}
