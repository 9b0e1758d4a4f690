package packfile

import (
	"encoding/binary"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/spatial"
)

// headerSize is the fixed prefix every feature pack starts with: u32
// feature_count, u8 segment_count, then 5 reserved (zero) bytes, for a
// flat 10-byte header regardless of segment_count (spec section 3).
const headerSize = 10

// Segment is one (child_tile, pack_record_list) entry in an optimal
// feature pack's header, naming which tile a body chunk belongs to.
type Segment struct {
	ChildTile spatial.Tile
	Records   []PackRecord
}

func encodeSegment(s Segment) []byte {
	w := &varintWriter{}
	var tb [9]byte
	binary.LittleEndian.PutUint32(tb[0:], s.ChildTile.X)
	binary.LittleEndian.PutUint32(tb[4:], s.ChildTile.Y)
	tb[8] = s.ChildTile.Z
	w.writeBytes(tb[:])
	w.writeUvarint(uint64(len(s.Records)))
	w.writeBytes(EncodeRecordList(s.Records))
	return w.buf
}

func decodeSegment(buf []byte, pos int) (Segment, int, error) {
	if pos+9 > len(buf) {
		return Segment{}, 0, ErrCorruptPack
	}
	tile := spatial.Tile{
		X: binary.LittleEndian.Uint32(buf[pos:]),
		Y: binary.LittleEndian.Uint32(buf[pos+4:]),
		Z: buf[pos+8],
	}
	pos += 9
	r := &varintReader{buf: buf, pos: pos}
	n, err := r.readUvarint()
	if err != nil {
		return Segment{}, 0, ErrCorruptPack
	}
	pos = r.pos
	recBytes := int(n) * packRecordSize
	if pos+recBytes > len(buf) {
		return Segment{}, 0, ErrCorruptPack
	}
	records, err := DecodeRecordList(buf[pos : pos+recBytes])
	if err != nil {
		return Segment{}, 0, err
	}
	pos += recBytes
	return Segment{ChildTile: tile, Records: records}, pos, nil
}

func writeHeader(featureCount uint32, segmentCount uint8) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], featureCount)
	buf[4] = segmentCount
	return buf
}

func readHeader(buf []byte) (featureCount uint32, segmentCount uint8, err error) {
	if len(buf) < headerSize {
		return 0, 0, ErrCorruptPack
	}
	return binary.LittleEndian.Uint32(buf[0:4]), buf[4], nil
}

// PackFeatures builds a "quick" feature pack: segment_count is 0, and the
// body is simply every feature, length-prefixed, in order (spec section
// 4.3).
func PackFeatures(features []Feature, coding *MetaCoding) ([]byte, error) {
	w := &varintWriter{}
	w.writeBytes(writeHeader(uint32(len(features)), 0))
	for _, feat := range features {
		fb, err := SerializeFeature(feat, coding)
		if err != nil {
			return nil, err
		}
		w.writeUvarint(uint64(len(fb)))
		w.writeBytes(fb)
	}
	w.writeByte(0) // terminator
	return w.buf, nil
}

// PackFeaturesOptimal builds an "optimal" feature pack: the header lists
// one (child_tile, pack_record_list) segment per entry in segments, and
// the body concatenates the corresponding already-packed child blobs in
// childPacks, each of which is itself a complete, self-delimiting feature
// pack (spec section 4.3). feature_count is the sum of each child's own
// count, so a reader can report total reachable features without
// descending.
func PackFeaturesOptimal(segments []Segment, childPacks [][]byte) ([]byte, error) {
	if len(segments) != len(childPacks) {
		return nil, ErrCorruptPack
	}
	if len(segments) > 255 {
		return nil, ErrCorruptPack
	}
	var total uint32
	for _, cp := range childPacks {
		fc, _, err := readHeader(cp)
		if err != nil {
			return nil, err
		}
		total += fc
	}
	w := &varintWriter{}
	w.writeBytes(writeHeader(total, uint8(len(segments))))
	for _, s := range segments {
		w.writeBytes(encodeSegment(s))
	}
	for _, cp := range childPacks {
		w.writeBytes(cp)
	}
	w.writeByte(0)
	return w.buf, nil
}

// packLen returns the number of bytes at the start of buf occupied by one
// complete, well-formed feature pack, recursing into segmented children
// to find their boundaries. It is used by both FeaturePackValid and
// UnpackFeatures.
func packLen(buf []byte) (int, error) {
	featureCount, segmentCount, err := readHeader(buf)
	if err != nil {
		return 0, err
	}
	pos := headerSize

	segs := make([]Segment, 0, segmentCount)
	for i := 0; i < int(segmentCount); i++ {
		seg, next, err := decodeSegment(buf, pos)
		if err != nil {
			return 0, err
		}
		pos = next
		segs = append(segs, seg)
	}

	if segmentCount == 0 {
		for i := uint32(0); i < featureCount; i++ {
			r := &varintReader{buf: buf, pos: pos}
			flen, err := r.readUvarint()
			if err != nil {
				return 0, ErrCorruptPack
			}
			pos = r.pos + int(flen)
			if pos > len(buf) {
				return 0, ErrCorruptPack
			}
		}
	} else {
		for range segs {
			childLen, err := packLen(buf[pos:])
			if err != nil {
				return 0, err
			}
			pos += childLen
		}
	}

	if pos >= len(buf) || buf[pos] != 0 {
		return 0, ErrCorruptPack
	}
	pos++
	return pos, nil
}

// FeaturePackValid checks the magic layout of a feature pack: a header of
// at least 10 bytes, internally consistent varint/segment framing, and a
// trailing null terminator with no leftover bytes (spec section 8).
func FeaturePackValid(p []byte) error {
	if len(p) < headerSize {
		return ErrCorruptPack
	}
	n, err := packLen(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrCorruptPack
	}
	return nil
}

// UnpackOptions configures UnpackFeatures' feature decoding.
type UnpackOptions struct {
	Coding *MetaCoding
	Masks  *fixedgeo.MaskSet
	Zoom   uint8
}

// UnpackFeatures iterates every feature reachable from pack, calling f for
// each. When query is non-nil, only segments (and, transitively, their
// descendants) whose child tile overlaps query are visited — the
// two-argument unpack_features form from spec section 4.3.
func UnpackFeatures(pack []byte, query *spatial.Tile, opts UnpackOptions, f func(Feature) error) error {
	featureCount, segmentCount, err := readHeader(pack)
	if err != nil {
		return err
	}
	pos := headerSize

	segs := make([]Segment, 0, segmentCount)
	for i := 0; i < int(segmentCount); i++ {
		seg, next, err := decodeSegment(pack, pos)
		if err != nil {
			return err
		}
		pos = next
		segs = append(segs, seg)
	}

	if segmentCount == 0 {
		for i := uint32(0); i < featureCount; i++ {
			r := &varintReader{buf: pack, pos: pos}
			flen, err := r.readUvarint()
			if err != nil {
				return ErrCorruptPack
			}
			start := r.pos
			pos = start + int(flen)
			if pos > len(pack) {
				return ErrCorruptPack
			}
			feat, err := DeserializeFeature(pack[start:pos], opts.Coding, opts.Masks, opts.Zoom)
			if err != nil {
				return err
			}
			if err := f(feat); err != nil {
				return err
			}
		}
		return nil
	}

	for _, seg := range segs {
		childLen, err := packLen(pack[pos:])
		if err != nil {
			return err
		}
		child := pack[pos : pos+childLen]
		pos += childLen
		if query == nil || spatial.Overlaps(seg.ChildTile, *query) {
			if err := UnpackFeatures(child, query, opts, f); err != nil {
				return err
			}
		}
	}
	return nil
}
