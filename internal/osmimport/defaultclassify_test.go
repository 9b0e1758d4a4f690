package osmimport

import (
	"testing"

	"github.com/joeblew999/plat-geo/internal/classify"
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
)

func TestDefaultClassifierApprovesKnownTags(t *testing.T) {
	obj := Object{
		Tags:     map[string]string{"highway": "motorway"},
		Geometry: func() fixedgeo.Geometry { return squarePolygon(10) },
	}
	p := DefaultClassifier(obj)
	if !p.Approved() {
		t.Fatal("want a highway=motorway way to be approved")
	}
	roadID, _ := DefaultLayers.IndexOf("road")
	if p.TargetLayer() != roadID {
		t.Fatalf("want target layer %d (road), got %d", roadID, p.TargetLayer())
	}
	min, _ := p.ZoomRange()
	if min != 6 {
		t.Fatalf("want motorway min zoom 6, got %d", min)
	}
}

func TestDefaultClassifierRejectsUnknownTags(t *testing.T) {
	obj := Object{
		Tags:     map[string]string{"foo": "bar"},
		Geometry: func() fixedgeo.Geometry { return squarePolygon(10) },
	}
	p := DefaultClassifier(obj)
	if p.Approved() {
		t.Fatal("want an object with no recognized tag to stay unapproved")
	}
}

func TestBuildAreaGatedClassifierGatesByArea(t *testing.T) {
	base := func(o Object) *classify.PendingFeature {
		p := classify.New(o.Geometry)
		landuseID, _ := DefaultLayers.IndexOf("landuse")
		p.SetTargetLayer(landuseID)
		p.SetApproved(0, 20)
		return p
	}
	gated := BuildAreaGatedClassifier(base, "landuse", classify.AreaZoom{Zoom: 10, MaxArea: 1_000_000})

	small := Object{Geometry: func() fixedgeo.Geometry { return squarePolygon(10) }}
	p := gated(small)
	min, _ := p.ZoomRange()
	if min < 10 {
		t.Fatalf("want a small landuse polygon gated to a higher min zoom, got %d", min)
	}
}
