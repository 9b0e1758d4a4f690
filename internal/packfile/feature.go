package packfile

import (
	"math"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
)

// MetaValue is a tagged scalar: bool, string, signed integer, or double,
// matching the "ordered (key, encoded-value) pairs" metadata model of
// spec section 3.
type MetaValue struct {
	Kind    MetaKind
	Bool    bool
	Str     string
	Int     int64
	Numeric float64
}

// MetaKind tags the MetaValue variant.
type MetaKind uint8

const (
	MetaBool MetaKind = iota
	MetaString
	MetaInt
	MetaNumeric
)

// MetaEntry is one ordered (key, value) metadata pair.
type MetaEntry struct {
	Key   string
	Value MetaValue
}

// Feature is one on-disk feature record, per spec section 3: an id, a
// layer (an index into the layer-name dictionary), a visible zoom range,
// ordered metadata, and geometry.
type Feature struct {
	ID       uint64
	Layer    uint32
	ZoomMin  uint8
	ZoomMax  uint8
	Metadata []MetaEntry
	Geometry fixedgeo.Geometry
}

// Valid reports whether f has a usable id and layer (spec section 3:
// InvalidLayerID / InvalidFeatureID unconditionally reject a feature).
func (f Feature) Valid() bool {
	return f.Layer != InvalidLayerID && f.ID != InvalidFeatureID
}

func writeMetaValue(w *varintWriter, v MetaValue) {
	w.writeByte(byte(v.Kind))
	switch v.Kind {
	case MetaBool:
		if v.Bool {
			w.writeByte(1)
		} else {
			w.writeByte(0)
		}
	case MetaString:
		w.writeUvarint(uint64(len(v.Str)))
		w.writeBytes([]byte(v.Str))
	case MetaInt:
		w.writeVarint(v.Int)
	case MetaNumeric:
		var buf [8]byte
		bits := math.Float64bits(v.Numeric)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		w.writeBytes(buf[:])
	}
}

func readMetaValue(r *varintReader) (MetaValue, error) {
	kindByte, err := r.readByte()
	if err != nil {
		return MetaValue{}, err
	}
	kind := MetaKind(kindByte)
	switch kind {
	case MetaBool:
		b, err := r.readByte()
		if err != nil {
			return MetaValue{}, err
		}
		return MetaValue{Kind: MetaBool, Bool: b != 0}, nil
	case MetaString:
		n, err := r.readUvarint()
		if err != nil {
			return MetaValue{}, err
		}
		b, err := r.readBytes(int(n))
		if err != nil {
			return MetaValue{}, err
		}
		return MetaValue{Kind: MetaString, Str: string(b)}, nil
	case MetaInt:
		v, err := r.readVarint()
		if err != nil {
			return MetaValue{}, err
		}
		return MetaValue{Kind: MetaInt, Int: v}, nil
	case MetaNumeric:
		b, err := r.readBytes(8)
		if err != nil {
			return MetaValue{}, err
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		return MetaValue{Kind: MetaNumeric, Numeric: math.Float64frombits(bits)}, nil
	default:
		return MetaValue{}, ErrCorruptPack
	}
}

// metaInline/metaCoded tag whether a metadata entry follows as an inline
// (key, value) pair or a single dictionary index (spec section 3's shared
// "feature-meta-coding" dictionary).
const (
	metaInline byte = 0
	metaCoded  byte = 1
)

// SerializeFeature encodes f. When coding is non-nil, any (key, value)
// pair present in the dictionary is emitted as a single varint index;
// everything else (and all of f's fields besides metadata) is written
// inline. Geometry is written last and un-length-prefixed: fixedgeo's
// codec is self-delimiting given an exact feature-bytes slice.
func SerializeFeature(f Feature, coding *MetaCoding) ([]byte, error) {
	if !f.Valid() {
		return nil, ErrInvalidFeature
	}
	w := &varintWriter{}
	w.writeUvarint(f.ID)
	w.writeUvarint(uint64(f.Layer))
	w.writeByte(f.ZoomMin)
	w.writeByte(f.ZoomMax)
	w.writeUvarint(uint64(len(f.Metadata)))
	for _, m := range f.Metadata {
		if coding != nil {
			if idx, ok := coding.Lookup(m); ok {
				w.writeByte(metaCoded)
				w.writeUvarint(uint64(idx))
				continue
			}
		}
		w.writeByte(metaInline)
		w.writeUvarint(uint64(len(m.Key)))
		w.writeBytes([]byte(m.Key))
		writeMetaValue(w, m.Value)
	}
	w.writeBytes(fixedgeo.Serialize(f.Geometry))
	return w.buf, nil
}

// DeserializeFeature decodes a feature previously produced by
// SerializeFeature, applying masks (if non-nil) to its geometry at zoom.
func DeserializeFeature(data []byte, coding *MetaCoding, masks *fixedgeo.MaskSet, zoom uint8) (Feature, error) {
	r := &varintReader{buf: data}
	id, err := r.readUvarint()
	if err != nil {
		return Feature{}, err
	}
	layer, err := r.readUvarint()
	if err != nil {
		return Feature{}, err
	}
	zoomMin, err := r.readByte()
	if err != nil {
		return Feature{}, err
	}
	zoomMax, err := r.readByte()
	if err != nil {
		return Feature{}, err
	}
	metaCount, err := r.readUvarint()
	if err != nil {
		return Feature{}, err
	}
	meta := make([]MetaEntry, 0, metaCount)
	for i := uint64(0); i < metaCount; i++ {
		tag, err := r.readByte()
		if err != nil {
			return Feature{}, err
		}
		switch tag {
		case metaCoded:
			idx, err := r.readUvarint()
			if err != nil {
				return Feature{}, err
			}
			if coding == nil {
				return Feature{}, ErrCorruptPack
			}
			entry, ok := coding.Get(int(idx))
			if !ok {
				return Feature{}, ErrCorruptPack
			}
			meta = append(meta, entry)
		case metaInline:
			n, err := r.readUvarint()
			if err != nil {
				return Feature{}, err
			}
			keyBytes, err := r.readBytes(int(n))
			if err != nil {
				return Feature{}, err
			}
			val, err := readMetaValue(r)
			if err != nil {
				return Feature{}, err
			}
			meta = append(meta, MetaEntry{Key: string(keyBytes), Value: val})
		default:
			return Feature{}, ErrCorruptPack
		}
	}

	geom, err := fixedgeo.Deserialize(r.remaining(), masks, zoom)
	if err != nil {
		return Feature{}, err
	}

	return Feature{
		ID:       id,
		Layer:    uint32(layer),
		ZoomMin:  zoomMin,
		ZoomMax:  zoomMax,
		Metadata: meta,
		Geometry: geom,
	}, nil
}
