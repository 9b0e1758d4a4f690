package fixedgeo

// Clip intersects a geometry with an axis-aligned box (tile bounds plus
// overdraw margin), per spec section 4.2. Points outside the strict
// interior collapse to the null geometry. Polylines are clipped segment by
// segment with Liang-Barsky, producing possibly several output parts.
// Polygons are clipped ring by ring with Sutherland-Hodgman against the
// box — for an axis-aligned clip window (always the case here) this is
// equivalent to the general Vatti algorithm and considerably simpler; a
// general polygon-polygon Vatti clip isn't needed because the clip window
// is always a rectangle.
func Clip(g Geometry, box Bounds) Geometry {
	switch g.Type {
	case GeomPoint:
		var out []Point
		for _, p := range g.Points {
			if p.X > box.MinX && p.X < box.MaxX && p.Y > box.MinY && p.Y < box.MaxY {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return Geometry{Type: GeomNone}
		}
		return Geometry{Type: GeomPoint, Points: out}

	case GeomPolyline:
		var lines [][]Point
		for _, line := range g.Lines {
			lines = append(lines, clipPolyline(line, box)...)
		}
		if len(lines) == 0 {
			return Geometry{Type: GeomNone}
		}
		return Geometry{Type: GeomPolyline, Lines: lines}

	case GeomPolygon:
		var polys []SimplePolygon
		for _, poly := range g.Polygons {
			outer := clipRingSH(poly.Outer, box)
			if len(outer) < minRingVertices {
				continue
			}
			var inners [][]Point
			for _, in := range poly.Inners {
				clipped := clipRingSH(in, box)
				if len(clipped) >= minRingVertices {
					inners = append(inners, clipped)
				}
			}
			polys = append(polys, SimplePolygon{Outer: outer, Inners: inners})
		}
		if len(polys) == 0 {
			return Geometry{Type: GeomNone}
		}
		return Geometry{Type: GeomPolygon, Polygons: polys}

	default:
		return Geometry{Type: GeomNone}
	}
}

// clipPolyline runs Liang-Barsky per segment, joining consecutive
// in-window segments into the same output part and starting a new part
// whenever a segment is partially or fully clipped away.
func clipPolyline(line []Point, box Bounds) [][]Point {
	var parts [][]Point
	var cur []Point

	flush := func() {
		if len(cur) >= 2 {
			parts = append(parts, cur)
		}
		cur = nil
	}

	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		ca, cb, ok := liangBarsky(a, b, box)
		if !ok {
			flush()
			continue
		}
		if len(cur) == 0 {
			cur = append(cur, ca)
		} else if cur[len(cur)-1] != ca {
			flush()
			cur = append(cur, ca)
		}
		cur = append(cur, cb)
		if cb != b {
			// segment endpoint left the window; this part ends here.
			flush()
		}
	}
	flush()
	return parts
}

// liangBarsky clips segment a-b against box, returning the clipped
// endpoints and whether any part of the segment survives.
func liangBarsky(a, b Point, box Bounds) (Point, Point, bool) {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)

	tMin, tMax := 0.0, 1.0

	clipEdge := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > tMax {
				return false
			}
			if t > tMin {
				tMin = t
			}
		} else {
			if t < tMin {
				return false
			}
			if t < tMax {
				tMax = t
			}
		}
		return true
	}

	if !clipEdge(-dx, float64(a.X-box.MinX)) {
		return Point{}, Point{}, false
	}
	if !clipEdge(dx, float64(box.MaxX-a.X)) {
		return Point{}, Point{}, false
	}
	if !clipEdge(-dy, float64(a.Y-box.MinY)) {
		return Point{}, Point{}, false
	}
	if !clipEdge(dy, float64(box.MaxY-a.Y)) {
		return Point{}, Point{}, false
	}

	ca := Point{
		X: a.X + roundCoord(tMin*dx),
		Y: a.Y + roundCoord(tMin*dy),
	}
	cb := Point{
		X: a.X + roundCoord(tMax*dx),
		Y: a.Y + roundCoord(tMax*dy),
	}
	return ca, cb, true
}

// clipRingSH clips a closed ring against box using Sutherland-Hodgman,
// re-closing the result.
func clipRingSH(ring []Point, box Bounds) []Point {
	pts := ring
	pts = clipHalfPlane(pts, func(p Point) bool { return p.X >= box.MinX },
		func(a, b Point) Point { return intersectVertical(a, b, box.MinX) })
	pts = clipHalfPlane(pts, func(p Point) bool { return p.X <= box.MaxX },
		func(a, b Point) Point { return intersectVertical(a, b, box.MaxX) })
	pts = clipHalfPlane(pts, func(p Point) bool { return p.Y >= box.MinY },
		func(a, b Point) Point { return intersectHorizontal(a, b, box.MinY) })
	pts = clipHalfPlane(pts, func(p Point) bool { return p.Y <= box.MaxY },
		func(a, b Point) Point { return intersectHorizontal(a, b, box.MaxY) })

	if len(pts) == 0 {
		return nil
	}
	if pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	return pts
}

func clipHalfPlane(poly []Point, inside func(Point) bool, intersect func(a, b Point) Point) []Point {
	if len(poly) == 0 {
		return nil
	}
	var out []Point
	prev := poly[len(poly)-1]
	prevIn := inside(prev)
	for _, cur := range poly {
		curIn := inside(cur)
		if curIn {
			if !prevIn {
				out = append(out, intersect(prev, cur))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, intersect(prev, cur))
		}
		prev, prevIn = cur, curIn
	}
	return out
}

func intersectVertical(a, b Point, x Coord) Point {
	if a.X == b.X {
		return Point{X: x, Y: a.Y}
	}
	t := float64(x-a.X) / float64(b.X-a.X)
	return Point{X: x, Y: a.Y + roundCoord(t*float64(b.Y-a.Y))}
}

func intersectHorizontal(a, b Point, y Coord) Point {
	if a.Y == b.Y {
		return Point{X: a.X, Y: y}
	}
	t := float64(y-a.Y) / float64(b.Y-a.Y)
	return Point{X: a.X + roundCoord(t*float64(b.X-a.X)), Y: y}
}
