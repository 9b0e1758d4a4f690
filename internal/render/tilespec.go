// Package render implements the tile_spec computation and the get_tile
// rendering pipeline described in spec section 4.4: scanning stored
// feature packs for a query tile's subtree, decoding and clipping their
// geometry, grouping by layer and zoom band, optionally aggregating, and
// emitting Mapbox Vector Tile bytes.
package render

import (
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/spatial"
)

// bandHigh and bandMid are the two zoom bands get_tile groups features
// into, per zoom_level_bases={14,10}: "high" is used at z>=14, "mid" is
// the catch-all default below that (the last configured name acts as
// the default for everything under its threshold).
const (
	bandHigh = "high"
	bandMid  = "mid"
)

// ZoomBand returns the band name a query at zoom z renders features
// under.
func ZoomBand(z uint8) string {
	if z >= 14 {
		return bandHigh
	}
	return bandMid
}

// TileSpec is the pixel geometry of a render request: the query tile's
// unexpanded bounds (its true footprint, used for pixel projection) and
// its overdraw-expanded clip box, both in zoom-20 fixed-point units.
type TileSpec struct {
	Tile   spatial.Tile
	Shift  uint // MaxZoomLevel - Tile.Z; fixed units per output pixel
	Origin fixedgeo.Point
	Clip   fixedgeo.Bounds
}

// ComputeTileSpec computes t's tile_spec: t's own pixel-space bounds
// (tile index × kTileSize=4096), expanded to zoom 20 by left-shift
// Δz = kMaxZoomLevel - z, plus a kOverdraw-unit margin on the clip box
// so stroked lines at the tile edge render correctly.
func ComputeTileSpec(t spatial.Tile) TileSpec {
	shift := uint(fixedgeo.MaxZoomLevel) - uint(t.Z)
	minX := (fixedgeo.Coord(t.X) * fixedgeo.TileSize) << shift
	minY := (fixedgeo.Coord(t.Y) * fixedgeo.TileSize) << shift
	maxX := (fixedgeo.Coord(t.X+1) * fixedgeo.TileSize) << shift
	maxY := (fixedgeo.Coord(t.Y+1) * fixedgeo.TileSize) << shift
	box := fixedgeo.Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	return TileSpec{
		Tile:   t,
		Shift:  shift,
		Origin: fixedgeo.Point{X: minX, Y: minY},
		Clip:   box.Expanded(fixedgeo.Overdraw),
	}
}

// ToPixel projects a fixed-point coordinate into tile-local pixel space
// ([0, 4096] for a point on the tile's own footprint; overdraw margin
// points land slightly outside that range, which MVT tolerates).
func (s TileSpec) ToPixel(p fixedgeo.Point) (x, y float64) {
	scale := float64(int64(1) << s.Shift)
	return float64(p.X-s.Origin.X) / scale, float64(p.Y-s.Origin.Y) / scale
}
