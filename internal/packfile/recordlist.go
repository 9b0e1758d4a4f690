package packfile

import "encoding/binary"

// PackRecord addresses one opaque byte span within a PackFile (spec
// section 3's "Feature pack file": records are (offset, length) pairs
// into an append-only file).
type PackRecord struct {
	Offset uint64
	Length uint32
}

const packRecordSize = 12 // 8 (offset) + 4 (length)

// EncodeRecordList serializes an ordered list of pack records.
func EncodeRecordList(records []PackRecord) []byte {
	buf := make([]byte, len(records)*packRecordSize)
	for i, r := range records {
		off := i * packRecordSize
		binary.LittleEndian.PutUint64(buf[off:], r.Offset)
		binary.LittleEndian.PutUint32(buf[off+8:], r.Length)
	}
	return buf
}

// DecodeRecordList decodes a buffer produced by EncodeRecordList.
func DecodeRecordList(buf []byte) ([]PackRecord, error) {
	if len(buf)%packRecordSize != 0 {
		return nil, ErrCorruptPack
	}
	n := len(buf) / packRecordSize
	out := make([]PackRecord, n)
	for i := 0; i < n; i++ {
		off := i * packRecordSize
		out[i] = PackRecord{
			Offset: binary.LittleEndian.Uint64(buf[off:]),
			Length: binary.LittleEndian.Uint32(buf[off+8:]),
		}
	}
	return out, nil
}
