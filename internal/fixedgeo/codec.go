package fixedgeo

// Wire tags, written as the first byte of a serialized geometry.
const (
	tagNone     byte = 0
	tagPoint    byte = 1
	tagPolyline byte = 2
	tagPolygon  byte = 3
)

// RingMask is a per-zoom bitset over a single ring's vertices: bit j of
// ZoomBits[z] is set when vertex j survives simplification at zoom z.
// Indexing is zoom 0..MaxZoomLevel inclusive.
type RingMask struct {
	ZoomBits [][]byte
	NumVerts int
}

func newRingMask(numVerts int) RingMask {
	planes := make([][]byte, MaxZoomLevel+1)
	words := (numVerts + 7) / 8
	for z := range planes {
		planes[z] = make([]byte, words)
	}
	return RingMask{ZoomBits: planes, NumVerts: numVerts}
}

func (m RingMask) set(zoom uint8, vertex int) {
	m.ZoomBits[zoom][vertex/8] |= 1 << uint(vertex%8)
}

func (m RingMask) bit(zoom uint8, vertex int) bool {
	if int(zoom) >= len(m.ZoomBits) {
		zoom = MaxZoomLevel
	}
	plane := m.ZoomBits[zoom]
	if vertex/8 >= len(plane) {
		return false
	}
	return plane[vertex/8]&(1<<uint(vertex%8)) != 0
}

// MaskSet holds one RingMask per ring, in the same order VertexCounts
// produces them for a geometry.
type MaskSet struct {
	Rings []RingMask
}

// AllOnesMasks builds a mask set where every vertex of every ring is
// visible at every zoom level.
func AllOnesMasks(ringVertexCounts []int) MaskSet {
	ms := MaskSet{Rings: make([]RingMask, len(ringVertexCounts))}
	for i, n := range ringVertexCounts {
		rm := newRingMask(n)
		for z := range rm.ZoomBits {
			for v := 0; v < n; v++ {
				rm.set(uint8(z), v)
			}
		}
		ms.Rings[i] = rm
	}
	return ms
}

// AllZerosMasks builds a mask set where no vertex is visible at any zoom;
// applying it degenerates every ring to empty (and thus the geometry to
// null per spec section 4.2).
func AllZerosMasks(ringVertexCounts []int) MaskSet {
	ms := MaskSet{Rings: make([]RingMask, len(ringVertexCounts))}
	for i, n := range ringVertexCounts {
		ms.Rings[i] = newRingMask(n)
	}
	return ms
}

// Validate checks mask vertex counts against the ring sizes they'll be
// applied to.
func (ms MaskSet) Validate(ringVertexCounts []int) error {
	if len(ms.Rings) != len(ringVertexCounts) {
		return ErrMaskSizeMismatch
	}
	for i, n := range ringVertexCounts {
		if ms.Rings[i].NumVerts != n {
			return ErrMaskSizeMismatch
		}
	}
	return nil
}

// Serialize encodes a geometry as delta zig-zag varints, per spec section
// 4.2: a type tag, a (possibly empty) simplify-masks tag, then the packed
// geometry varints. Mask planes themselves are supplied at Deserialize
// time (they're produced by an external, offline simplification pass), so
// Serialize always writes an empty masks section.
func Serialize(g Geometry) []byte {
	w := &varintWriter{}

	switch g.Type {
	case GeomNone:
		w.writeByte(tagNone)
		return w.buf

	case GeomPoint:
		w.writeByte(tagPoint)
		w.writeByte(0) // empty simplify_masks section
		x, y := MagicOffset, MagicOffset
		w.writeUvarint(uint64(len(g.Points)))
		for _, p := range g.Points {
			w.writeVarint(p.X - x)
			w.writeVarint(p.Y - y)
			x, y = p.X, p.Y
		}
		return w.buf

	case GeomPolyline:
		w.writeByte(tagPolyline)
		w.writeByte(0)
		x, y := MagicOffset, MagicOffset
		w.writeUvarint(uint64(len(g.Lines)))
		for _, line := range g.Lines {
			w.writeUvarint(uint64(len(line)))
			for _, p := range line {
				w.writeVarint(p.X - x)
				w.writeVarint(p.Y - y)
				x, y = p.X, p.Y
			}
		}
		return w.buf

	case GeomPolygon:
		w.writeByte(tagPolygon)
		w.writeByte(0)
		x, y := MagicOffset, MagicOffset
		w.writeUvarint(uint64(len(g.Polygons)))
		for _, poly := range g.Polygons {
			w.writeUvarint(uint64(len(poly.Outer)))
			for _, p := range poly.Outer {
				w.writeVarint(p.X - x)
				w.writeVarint(p.Y - y)
				x, y = p.X, p.Y
			}
			w.writeUvarint(uint64(len(poly.Inners)))
			for _, in := range poly.Inners {
				w.writeUvarint(uint64(len(in)))
				for _, p := range in {
					w.writeVarint(p.X - x)
					w.writeVarint(p.Y - y)
					x, y = p.X, p.Y
				}
			}
		}
		return w.buf

	default:
		w.writeByte(tagNone)
		return w.buf
	}
}

// Deserialize decodes a geometry produced by Serialize, applying masks (if
// non-nil) at the given zoom level: a vertex whose bit is clear is dropped
// from the output ring but still delta-decoded so the running accumulator
// stays correct for subsequent vertices. Rings with fewer than 4 points
// after simplification are dropped; polygons left with no rings (or the
// null geometry itself) degenerate to GeomNone.
func Deserialize(data []byte, masks *MaskSet, zoom uint8) (Geometry, error) {
	r := &varintReader{buf: data}
	tag, err := r.readByte()
	if err != nil {
		return Geometry{}, err
	}

	switch tag {
	case tagNone:
		return Geometry{Type: GeomNone}, nil

	case tagPoint:
		if _, err := r.readByte(); err != nil { // simplify_masks tag (unused)
			return Geometry{}, err
		}
		n, err := r.readUvarint()
		if err != nil {
			return Geometry{}, err
		}
		x, y := MagicOffset, MagicOffset
		var ring RingMask
		hasMask := masks != nil && len(masks.Rings) > 0
		if hasMask {
			ring = masks.Rings[0]
		}
		pts := make([]Point, 0, n)
		for i := 0; i < int(n); i++ {
			dx, err := r.readVarint()
			if err != nil {
				return Geometry{}, err
			}
			dy, err := r.readVarint()
			if err != nil {
				return Geometry{}, err
			}
			x += dx
			y += dy
			if !hasMask || ring.bit(zoom, i) {
				pts = append(pts, Point{X: x, Y: y})
			}
		}
		if len(pts) == 0 {
			return Geometry{Type: GeomNone}, nil
		}
		return Geometry{Type: GeomPoint, Points: pts}, nil

	case tagPolyline:
		if _, err := r.readByte(); err != nil {
			return Geometry{}, err
		}
		ringCount, err := r.readUvarint()
		if err != nil {
			return Geometry{}, err
		}
		x, y := MagicOffset, MagicOffset
		var lines [][]Point
		ringIdx := 0
		for i := 0; i < int(ringCount); i++ {
			n, err := r.readUvarint()
			if err != nil {
				return Geometry{}, err
			}
			var ring RingMask
			hasMask := masks != nil && ringIdx < len(masks.Rings)
			if hasMask {
				ring = masks.Rings[ringIdx]
			}
			ringIdx++
			line := make([]Point, 0, n)
			for j := 0; j < int(n); j++ {
				dx, err := r.readVarint()
				if err != nil {
					return Geometry{}, err
				}
				dy, err := r.readVarint()
				if err != nil {
					return Geometry{}, err
				}
				x += dx
				y += dy
				if !hasMask || ring.bit(zoom, j) {
					line = append(line, Point{X: x, Y: y})
				}
			}
			if len(line) > 0 {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return Geometry{Type: GeomNone}, nil
		}
		return Geometry{Type: GeomPolyline, Lines: lines}, nil

	case tagPolygon:
		if _, err := r.readByte(); err != nil {
			return Geometry{}, err
		}
		polyCount, err := r.readUvarint()
		if err != nil {
			return Geometry{}, err
		}
		x, y := MagicOffset, MagicOffset
		var polys []SimplePolygon
		ringIdx := 0
		decodeRing := func(n int) ([]Point, error) {
			var ring RingMask
			hasMask := masks != nil && ringIdx < len(masks.Rings)
			if hasMask {
				ring = masks.Rings[ringIdx]
			}
			ringIdx++
			pts := make([]Point, 0, n)
			for j := 0; j < n; j++ {
				dx, err := r.readVarint()
				if err != nil {
					return nil, err
				}
				dy, err := r.readVarint()
				if err != nil {
					return nil, err
				}
				x += dx
				y += dy
				if !hasMask || ring.bit(zoom, j) {
					pts = append(pts, Point{X: x, Y: y})
				}
			}
			return pts, nil
		}

		for i := 0; i < int(polyCount); i++ {
			outerN, err := r.readUvarint()
			if err != nil {
				return Geometry{}, err
			}
			outer, err := decodeRing(int(outerN))
			if err != nil {
				return Geometry{}, err
			}
			innerCount, err := r.readUvarint()
			if err != nil {
				return Geometry{}, err
			}
			var inners [][]Point
			for k := 0; k < int(innerCount); k++ {
				innerN, err := r.readUvarint()
				if err != nil {
					return Geometry{}, err
				}
				in, err := decodeRing(int(innerN))
				if err != nil {
					return Geometry{}, err
				}
				if len(in) >= minRingVertices {
					inners = append(inners, in)
				}
			}
			if len(outer) >= minRingVertices {
				polys = append(polys, SimplePolygon{Outer: outer, Inners: inners})
			}
		}
		if len(polys) == 0 {
			return Geometry{Type: GeomNone}, nil
		}
		return Geometry{Type: GeomPolygon, Polygons: polys}, nil

	default:
		return Geometry{}, ErrInvalidTag
	}
}
