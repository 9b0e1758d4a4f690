package render

import "github.com/joeblew999/plat-geo/internal/fixedgeo"

// subpixelAreaThreshold is the minimum pixel-space area (in output
// pixels squared) a polygon ring set must cover to survive aggregation;
// anything smaller renders as noise at the target zoom and is dropped
// (spec section 4.4 step 6: "drop subpixel polygons").
const subpixelAreaThreshold = 1.0

// aggregateFeature applies step 6 of the render pipeline to one
// feature's already-clipped geometry: polylines split into several
// parts by clipping are rejoined wherever the parts still share an
// endpoint (aggregate_line_features in the original), and polygon rings
// smaller than one output pixel are dropped. Union of touching polygons
// across distinct features has no counterpart in the original's own
// aggregation step either — aggregate_line_features.h only ever merges
// fixed_polyline geometry, never fixed_polygon — so narrowing this to
// line-join + subpixel-drop matches the source, not just "optional";
// see DESIGN.md.
func aggregateFeature(rf renderedFeature, spec TileSpec) renderedFeature {
	switch rf.Geometry.Type {
	case fixedgeo.GeomPolyline:
		joined := joinPolylines(rf.Geometry.Lines)
		return renderedFeature{Geometry: fixedgeo.Geometry{Type: fixedgeo.GeomPolyline, Lines: joined}, Metadata: rf.Metadata}

	case fixedgeo.GeomPolygon:
		var kept []fixedgeo.SimplePolygon
		for _, p := range rf.Geometry.Polygons {
			if !isSubpixelPolygon(p, spec) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return renderedFeature{Geometry: fixedgeo.Geometry{Type: fixedgeo.GeomNone}, Metadata: rf.Metadata}
		}
		return renderedFeature{Geometry: fixedgeo.Geometry{Type: fixedgeo.GeomPolygon, Polygons: kept}, Metadata: rf.Metadata}

	default:
		return rf
	}
}

func isSubpixelPolygon(p fixedgeo.SimplePolygon, spec TileSpec) bool {
	area := fixedgeo.Area(fixedgeo.Geometry{Type: fixedgeo.GeomPolygon, Polygons: []fixedgeo.SimplePolygon{p}})
	scale := float64(int64(1) << spec.Shift)
	pixelArea := area / (scale * scale)
	if pixelArea < 0 {
		pixelArea = -pixelArea
	}
	return pixelArea < subpixelAreaThreshold
}

// joinPolylines repeatedly merges any two lines sharing an endpoint in
// any of the four tail/head orientations (spec section 4.4/9.2), until
// no further merge is possible.
func joinPolylines(lines [][]fixedgeo.Point) [][]fixedgeo.Point {
	remaining := append([][]fixedgeo.Point(nil), lines...)
	for {
		merged := false
		for i := 0; i < len(remaining) && !merged; i++ {
			for j := i + 1; j < len(remaining); j++ {
				if joinedLine, ok := joinPair(remaining[i], remaining[j]); ok {
					remaining[i] = joinedLine
					remaining = append(remaining[:j], remaining[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			return remaining
		}
	}
}

// joinPair joins a and b into a single line if they share an endpoint,
// reversing whichever part is needed to produce the correct
// directionality (tail-of-first → head-of-second).
func joinPair(a, b []fixedgeo.Point) ([]fixedgeo.Point, bool) {
	if len(a) == 0 || len(b) == 0 {
		return nil, false
	}
	aHead, aTail := a[0], a[len(a)-1]
	bHead, bTail := b[0], b[len(b)-1]

	switch {
	case aTail == bHead:
		return joinAt(a, b), true
	case aTail == bTail:
		return joinAt(a, reversePoints(b)), true
	case aHead == bTail:
		return joinAt(b, a), true
	case aHead == bHead:
		return joinAt(reversePoints(a), b), true
	default:
		return nil, false
	}
}

func joinAt(head, tail []fixedgeo.Point) []fixedgeo.Point {
	out := make([]fixedgeo.Point, 0, len(head)+len(tail)-1)
	out = append(out, head...)
	out = append(out, tail[1:]...)
	return out
}

func reversePoints(p []fixedgeo.Point) []fixedgeo.Point {
	out := make([]fixedgeo.Point, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}
