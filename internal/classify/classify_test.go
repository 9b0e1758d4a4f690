package classify

import (
	"testing"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/packfile"
)

func square(side fixedgeo.Coord) fixedgeo.Geometry {
	return fixedgeo.NewPolygon([]fixedgeo.SimplePolygon{{
		Outer: []fixedgeo.Point{
			{X: 0, Y: 0}, {X: side, Y: 0}, {X: side, Y: side}, {X: 0, Y: side},
		},
	}})
}

func TestSetApprovedMin(t *testing.T) {
	p := New(func() fixedgeo.Geometry { return fixedgeo.Geometry{} })
	p.SetApprovedMin(8)
	if !p.Approved() {
		t.Fatalf("want approved")
	}
	min, max := p.ZoomRange()
	if min != 8 || max != fixedgeo.MaxZoomLevel+1 {
		t.Fatalf("want [8,%d], got [%d,%d]", fixedgeo.MaxZoomLevel+1, min, max)
	}
}

func TestSetApprovedMinByArea(t *testing.T) {
	calls := 0
	p := New(func() fixedgeo.Geometry {
		calls++
		return square(100)
	})
	p.SetApprovedMinByArea(
		AreaZoom{Zoom: 14, MaxArea: 50},
		AreaZoom{Zoom: 10, MaxArea: 20000},
		AreaZoom{Zoom: 4, MaxArea: -1},
	)
	if calls != 1 {
		t.Fatalf("want geometry forced exactly once, got %d calls", calls)
	}
	min, _ := p.ZoomRange()
	if min != 10 {
		t.Fatalf("want zoom 10 (area 10000 < 20000), got %d", min)
	}
}

func TestSetApprovedMinByAreaNoMatch(t *testing.T) {
	p := New(func() fixedgeo.Geometry { return square(1000) })
	p.SetApprovedMinByArea(AreaZoom{Zoom: 14, MaxArea: 10})
	if p.Approved() {
		t.Fatalf("want not approved when no threshold matches")
	}
}

func TestAddMetaDedupByKey(t *testing.T) {
	p := New(func() fixedgeo.Geometry { return fixedgeo.Geometry{} })
	p.AddMeta("highway", packfile.MetaValue{Kind: packfile.MetaString, Str: "primary"})
	p.AddMeta("highway", packfile.MetaValue{Kind: packfile.MetaString, Str: "residential"})
	p.AddMeta("name", packfile.MetaValue{Kind: packfile.MetaString, Str: "Elm Street"})

	meta := p.Metadata()
	if len(meta) != 2 {
		t.Fatalf("want 2 entries after dedup, got %d: %+v", len(meta), meta)
	}
	if meta[0].Key != "highway" || meta[0].Value.Str != "residential" {
		t.Fatalf("want last-write-wins for highway, got %+v", meta[0])
	}
}

func TestToFeatureRequiresApproval(t *testing.T) {
	p := New(func() fixedgeo.Geometry { return square(10) })
	if _, ok := p.ToFeature(1); ok {
		t.Fatalf("want not ok before approval")
	}
	p.SetTargetLayer(3)
	p.SetApproved(0, 5)
	f, ok := p.ToFeature(42)
	if !ok {
		t.Fatalf("want ok after approval")
	}
	if f.ID != 42 || f.Layer != 3 || f.ZoomMin != 0 || f.ZoomMax != 5 {
		t.Fatalf("unexpected feature: %+v", f)
	}
}
