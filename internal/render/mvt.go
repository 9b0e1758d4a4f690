package render

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/packfile"
)

// renderedFeature is one feature's clipped (and, after aggregate, joined
// / subpixel-filtered) geometry together with the metadata MVT emits as
// feature properties.
type renderedFeature struct {
	Geometry fixedgeo.Geometry
	Metadata []packfile.MetaEntry
}

// assembleMVT encodes the grouped, clipped features per spec section
// 4.4 step 7 ("emit MVT per vector_tile.proto v2.1"). Grouping keys
// (band, layer id) iterate in sorted order so output is deterministic
// across runs. This reuses the exact orb/mvt call shape the teacher's
// gotiler.createMVT already established (mvt.NewLayer over a
// geojson.FeatureCollection, RemoveEmpty, mvt.Marshal) — our own
// fixed-point Clip already ran upstream, so unlike gotiler we skip
// Layer.Clip/Simplify/ProjectToTile and hand orb geometry that's
// already tile-local pixel space.
func assembleMVT(groups map[string]map[uint32][]renderedFeature, names *packfile.LayerNames, spec TileSpec) ([]byte, error) {
	bands := make([]string, 0, len(groups))
	for b := range groups {
		bands = append(bands, b)
	}
	sort.Strings(bands)

	var layers mvt.Layers
	for _, band := range bands {
		byLayer := groups[band]
		layerIDs := make([]uint32, 0, len(byLayer))
		for id := range byLayer {
			layerIDs = append(layerIDs, id)
		}
		sort.Slice(layerIDs, func(i, j int) bool { return layerIDs[i] < layerIDs[j] })

		for _, layerID := range layerIDs {
			fc := geojson.NewFeatureCollection()
			for _, rf := range byLayer[layerID] {
				geom := toOrbGeometry(rf.Geometry, spec)
				if geom == nil {
					continue
				}
				gf := geojson.NewFeature(geom)
				for _, m := range rf.Metadata {
					gf.Properties[m.Key] = metaValueToAny(m.Value)
				}
				fc.Append(gf)
			}
			if len(fc.Features) == 0 {
				continue
			}

			layerName := fmt.Sprintf("layer_%d", layerID)
			if n, ok := names.Name(layerID); ok {
				layerName = n
			}

			layer := mvt.NewLayer(layerName+"_"+band, fc)
			layer.RemoveEmpty(0, 0)
			if len(layer.Features) == 0 {
				continue
			}
			layers = append(layers, layer)
		}
	}

	if len(layers) == 0 {
		return nil, nil
	}
	return mvt.Marshal(layers)
}

func toOrbGeometry(g fixedgeo.Geometry, spec TileSpec) orb.Geometry {
	switch g.Type {
	case fixedgeo.GeomPoint:
		if len(g.Points) == 1 {
			x, y := spec.ToPixel(g.Points[0])
			return orb.Point{x, y}
		}
		mp := make(orb.MultiPoint, len(g.Points))
		for i, p := range g.Points {
			x, y := spec.ToPixel(p)
			mp[i] = orb.Point{x, y}
		}
		return mp

	case fixedgeo.GeomPolyline:
		if len(g.Lines) == 1 {
			return toOrbLineString(g.Lines[0], spec)
		}
		mls := make(orb.MultiLineString, len(g.Lines))
		for i, l := range g.Lines {
			mls[i] = toOrbLineString(l, spec)
		}
		return mls

	case fixedgeo.GeomPolygon:
		if len(g.Polygons) == 1 {
			return toOrbPolygon(g.Polygons[0], spec)
		}
		mp := make(orb.MultiPolygon, len(g.Polygons))
		for i, p := range g.Polygons {
			mp[i] = toOrbPolygon(p, spec)
		}
		return mp

	default:
		return nil
	}
}

func toOrbLineString(line []fixedgeo.Point, spec TileSpec) orb.LineString {
	ls := make(orb.LineString, len(line))
	for i, p := range line {
		x, y := spec.ToPixel(p)
		ls[i] = orb.Point{x, y}
	}
	return ls
}

func toOrbPolygon(poly fixedgeo.SimplePolygon, spec TileSpec) orb.Polygon {
	rings := make(orb.Polygon, 0, 1+len(poly.Inners))
	rings = append(rings, toOrbRing(poly.Outer, spec))
	for _, in := range poly.Inners {
		rings = append(rings, toOrbRing(in, spec))
	}
	return rings
}

func toOrbRing(ring []fixedgeo.Point, spec TileSpec) orb.Ring {
	r := make(orb.Ring, len(ring))
	for i, p := range ring {
		x, y := spec.ToPixel(p)
		r[i] = orb.Point{x, y}
	}
	return r
}

func metaValueToAny(v packfile.MetaValue) any {
	switch v.Kind {
	case packfile.MetaBool:
		return v.Bool
	case packfile.MetaString:
		return v.Str
	case packfile.MetaInt:
		return v.Int
	case packfile.MetaNumeric:
		return v.Numeric
	default:
		return nil
	}
}
