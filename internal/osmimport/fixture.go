package osmimport

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
)

// Source is the decoded shape a real OSM PBF reader would yield: spec
// section 1 keeps PBF parsing itself out of scope ("only the data they
// yield is described"), so this package consumes that data shape
// directly rather than bytes. LoadSource loads it from a small JSON
// interchange format any real parser's output can be projected onto.
type Source struct {
	Nodes   []SourceNode   `json:"nodes"`
	Objects []SourceObject `json:"objects"`
}

// SourceNode is one node record as RunPass1 wants it: a signed OSM id
// and raw 1e7-precision integer-degree coordinates.
type SourceNode struct {
	ID    int64 `json:"id"`
	LonE7 int64 `json:"lon_e7"`
	LatE7 int64 `json:"lat_e7"`
}

// SourceObject is one way/relation record, already resolved to a flat
// ring list in plain WGS84 degrees (member/node resolution is the
// parser's job, out of scope here, per spec section 1).
type SourceObject struct {
	ID    int64             `json:"id"`
	Kind  string            `json:"kind"` // "node", "way", or "relation"
	Tags  map[string]string `json:"tags"`
	Rings [][]LonLat        `json:"rings"`
}

// LonLat is one WGS84 vertex in degrees.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// LoadSource reads a Source fixture from path.
func LoadSource(path string) (*Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("osmimport: read source %q: %w", path, err)
	}
	var src Source
	if err := json.Unmarshal(b, &src); err != nil {
		return nil, fmt.Errorf("osmimport: parse source %q: %w", path, err)
	}
	return &src, nil
}

// NodeChan streams src's nodes into a channel for RunPass1, closing it
// once every node has been sent.
func (src *Source) NodeChan() <-chan Node {
	ch := make(chan Node)
	go func() {
		defer close(ch)
		for _, n := range src.Nodes {
			ch <- Node{ID: n.ID, LonE7: n.LonE7, LatE7: n.LatE7}
		}
	}()
	return ch
}

func kindFromString(s string) ObjectKind {
	switch s {
	case "way":
		return KindWay
	case "relation":
		return KindRelation
	default:
		return KindNode
	}
}

// geometryFromRings builds a fixedgeo.Geometry from WGS84 rings: a
// single unclosed ring of one point becomes a point, a single open ring
// becomes a polyline, and one or more closed rings become a polygon
// (the first ring is the outer, the rest are holes) — the simplest
// projection of "a way/relation's resolved geometry" onto the tagged
// union spec section 3 describes.
func geometryFromRings(rings [][]LonLat) fixedgeo.Geometry {
	if len(rings) == 0 {
		return fixedgeo.Geometry{Type: fixedgeo.GeomNone}
	}
	if len(rings) == 1 && len(rings[0]) == 1 {
		return fixedgeo.Geometry{Type: fixedgeo.GeomPoint, Points: []fixedgeo.Point{toFixed(rings[0][0])}}
	}
	closed := true
	for _, r := range rings {
		if len(r) < 3 || r[0] != r[len(r)-1] {
			closed = false
			break
		}
	}
	if !closed {
		lines := make([][]fixedgeo.Point, len(rings))
		for i, r := range rings {
			lines[i] = toFixedRing(r)
		}
		return fixedgeo.Geometry{Type: fixedgeo.GeomPolyline, Lines: lines}
	}
	poly := fixedgeo.SimplePolygon{Outer: toFixedRing(rings[0])}
	for _, r := range rings[1:] {
		poly.Inners = append(poly.Inners, toFixedRing(r))
	}
	return fixedgeo.NewPolygon([]fixedgeo.SimplePolygon{poly})
}

func toFixed(p LonLat) fixedgeo.Point { return fixedgeo.LonLatToFixed(p.Lon, p.Lat) }

func toFixedRing(r []LonLat) []fixedgeo.Point {
	out := make([]fixedgeo.Point, len(r))
	for i, p := range r {
		out[i] = toFixed(p)
	}
	return out
}

// ObjectChan streams src's objects into a channel for RunPass2.
func (src *Source) ObjectChan() <-chan Object {
	ch := make(chan Object)
	go func() {
		defer close(ch)
		for _, o := range src.Objects {
			o := o
			ch <- Object{
				ID:       o.ID,
				Kind:     kindFromString(o.Kind),
				Tags:     o.Tags,
				Geometry: func() fixedgeo.Geometry { return geometryFromRings(o.Rings) },
			}
		}
	}()
	return ch
}

// CoastlineSource is the decoded shape a real shapefile reader would
// yield (spec section 1: "the zip/shapefile reader... only the data
// they yield is described") — a flat list of WGS84 water polygons.
type CoastlineSource struct {
	Polygons [][][]LonLat `json:"polygons"` // each polygon: outer ring, then holes
}

// LoadCoastlines reads a CoastlineSource fixture from path and converts
// it to fixed-point polygons ready for BuildSeasideTree.
func LoadCoastlines(path string) ([]fixedgeo.SimplePolygon, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("osmimport: read coastlines %q: %w", path, err)
	}
	var src CoastlineSource
	if err := json.Unmarshal(b, &src); err != nil {
		return nil, fmt.Errorf("osmimport: parse coastlines %q: %w", path, err)
	}
	out := make([]fixedgeo.SimplePolygon, 0, len(src.Polygons))
	for _, rings := range src.Polygons {
		if len(rings) == 0 {
			continue
		}
		poly := fixedgeo.SimplePolygon{Outer: toFixedRing(rings[0])}
		for _, r := range rings[1:] {
			poly.Inners = append(poly.Inners, toFixedRing(r))
		}
		out = append(out, poly)
	}
	return out, nil
}
