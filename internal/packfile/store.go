package packfile

import "io"

// Store is a bare append-only file whose contents are opaque byte spans
// addressed by PackRecord (offset, length) pairs (spec section 3's
// "Feature pack file"). It never interprets what's written — feature
// packs, quick or optimal, are appended and located purely by the
// records a caller keeps alongside (in this repo, record lists stored
// in the tile database's "features" table).
type Store struct {
	w      io.Writer
	offset uint64
}

// NewStore wraps w (expected to be positioned at the current end of an
// existing pack file, or empty for a fresh one) for appends starting at
// offset.
func NewStore(w io.Writer, offset uint64) *Store {
	return &Store{w: w, offset: offset}
}

// Append writes data to the end of the store and returns the record
// addressing it.
func (s *Store) Append(data []byte) (PackRecord, error) {
	rec := PackRecord{Offset: s.offset, Length: uint32(len(data))}
	n, err := s.w.Write(data)
	if err != nil {
		return PackRecord{}, err
	}
	s.offset += uint64(n)
	return rec, nil
}

// Offset reports the current end-of-file offset (where the next Append
// will land).
func (s *Store) Offset() uint64 { return s.offset }

// Read fetches the bytes addressed by rec from ra.
func Read(ra io.ReaderAt, rec PackRecord) ([]byte, error) {
	buf := make([]byte, rec.Length)
	if rec.Length == 0 {
		return buf, nil
	}
	if _, err := ra.ReadAt(buf, int64(rec.Offset)); err != nil {
		return nil, err
	}
	return buf, nil
}
