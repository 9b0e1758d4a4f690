package render

import (
	"sync"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
)

// allWaterTile returns the cached MVT bytes emitted for a tile known to
// lie entirely within the "fully seaside" BQ tree (spec section 4.4 step
// 2). The encoded bytes are identical for every such tile regardless of
// its actual coordinates — a single water polygon spanning the full
// [0,4096]² tile extent under layer id 0 in the "high" band, encoded
// without the layer-name dictionary so its MVT layer carries the numeric
// fallback name — so it is built once and reused.
var (
	waterTileOnce  sync.Once
	waterTileBytes []byte
	waterTileErr   error
)

const waterLayerID uint32 = 0

func allWaterTile() ([]byte, error) {
	waterTileOnce.Do(func() {
		full := fixedgeo.SimplePolygon{Outer: []fixedgeo.Point{
			{X: 0, Y: 0},
			{X: fixedgeo.TileSize, Y: 0},
			{X: fixedgeo.TileSize, Y: fixedgeo.TileSize},
			{X: 0, Y: fixedgeo.TileSize},
			{X: 0, Y: 0},
		}}
		spec := TileSpec{Shift: 0, Origin: fixedgeo.Point{}, Clip: fixedgeo.Bounds{MaxX: fixedgeo.TileSize, MaxY: fixedgeo.TileSize}}
		groups := map[string]map[uint32][]renderedFeature{
			bandHigh: {
				waterLayerID: {{
					Geometry: fixedgeo.Geometry{Type: fixedgeo.GeomPolygon, Polygons: []fixedgeo.SimplePolygon{full}},
				}},
			},
		}
		waterTileBytes, waterTileErr = assembleMVT(groups, nil, spec)
	})
	return waterTileBytes, waterTileErr
}
