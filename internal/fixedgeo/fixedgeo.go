// Package fixedgeo implements the fixed-point coordinate system and tagged
// geometry union used to store points, polylines and polygons compactly on
// disk, plus the delta/varint codec, clipping and area routines that operate
// on them.
package fixedgeo

import "math"

// Coord is a signed fixed-point coordinate in the Web-Mercator projection at
// zoom 20, with a tile edge of TileSize pixels.
type Coord = int64

const (
	// TileSize is the pixel edge of a tile at any zoom level.
	TileSize = 4096
	// MaxZoomLevel is the finest zoom level the fixed-point plane represents.
	MaxZoomLevel = 20
	// WorldBits is log2 of the fixed coordinate plane's edge length.
	WorldBits = 32
	// WorldSize is the edge length of the fixed coordinate plane (TileSize << MaxZoomLevel).
	WorldSize Coord = TileSize << MaxZoomLevel
	// MagicOffset centers the delta-coded representation on the plane's
	// center (lon=0, lat=0 projects near here) so that deltas for points
	// near (0, 0) in degrees encode as small varints.
	MagicOffset Coord = WorldSize / 2
	// Overdraw is the extra margin added to a tile's clip box so stroked
	// lines at the tile edge render correctly.
	Overdraw Coord = 128

	// InvalidZoomLevel marks a feature visible at no zoom.
	InvalidZoomLevel uint8 = 63
)

// Point is a single fixed-point coordinate pair.
type Point struct {
	X, Y Coord
}

// GeomType tags the variant held by a Geometry.
type GeomType uint8

const (
	GeomNone GeomType = iota
	GeomPoint
	GeomPolyline
	GeomPolygon
)

// SimplePolygon is one outer ring followed by zero or more inner (hole) rings.
type SimplePolygon struct {
	Outer  []Point
	Inners [][]Point
}

// Geometry is the tagged union described by spec section 3: null, a point
// sequence, a polyline (ordered sequence of line-strings), or a polygon
// (ordered sequence of simple polygons, each one outer ring plus holes).
type Geometry struct {
	Type     GeomType
	Points   []Point         // GeomPoint
	Lines    [][]Point       // GeomPolyline
	Polygons []SimplePolygon // GeomPolygon
}

// IsNull reports whether g is the null geometry.
func (g Geometry) IsNull() bool {
	return g.Type == GeomNone
}

// minRingVertices is the minimum vertex count a closed ring must retain;
// rings below this are dropped (spec section 3).
const minRingVertices = 4

// closeRing appends the first point to the end if the ring isn't already
// closed, and reports whether the ring has enough vertices to keep.
func closeRing(ring []Point) ([]Point, bool) {
	if len(ring) == 0 {
		return nil, false
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	if len(ring) < minRingVertices {
		return nil, false
	}
	return ring, true
}

// NewPolygon builds a polygon geometry from raw rings, closing each ring and
// dropping undersized ones; an empty result degenerates to the null geometry
// per spec section 3.
func NewPolygon(polys []SimplePolygon) Geometry {
	var out []SimplePolygon
	for _, p := range polys {
		outer, ok := closeRing(p.Outer)
		if !ok {
			continue
		}
		var inners [][]Point
		for _, in := range p.Inners {
			if closed, ok := closeRing(in); ok {
				inners = append(inners, closed)
			}
		}
		out = append(out, SimplePolygon{Outer: outer, Inners: inners})
	}
	if len(out) == 0 {
		return Geometry{Type: GeomNone}
	}
	return Geometry{Type: GeomPolygon, Polygons: out}
}

// VertexCounts returns the per-ring vertex count in serialization order,
// used to size simplify masks. Point geometry counts as one pseudo-ring.
func VertexCounts(g Geometry) []int {
	switch g.Type {
	case GeomPoint:
		return []int{len(g.Points)}
	case GeomPolyline:
		counts := make([]int, len(g.Lines))
		for i, l := range g.Lines {
			counts[i] = len(l)
		}
		return counts
	case GeomPolygon:
		var counts []int
		for _, p := range g.Polygons {
			counts = append(counts, len(p.Outer))
			for _, in := range p.Inners {
				counts = append(counts, len(in))
			}
		}
		return counts
	default:
		return nil
	}
}

// Bounds is an axis-aligned box in fixed-point coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY Coord
}

// Expanded returns b grown by margin on all sides.
func (b Bounds) Expanded(margin Coord) Bounds {
	return Bounds{b.MinX - margin, b.MinY - margin, b.MaxX + margin, b.MaxY + margin}
}

// Contains reports whether p lies within b, inclusive.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// floatPoint is used internally by the simplify/clip helpers that need
// fractional intersections (Liang-Barsky parameters).
type floatPoint struct{ X, Y float64 }

func roundCoord(f float64) Coord {
	return Coord(math.Round(f))
}
