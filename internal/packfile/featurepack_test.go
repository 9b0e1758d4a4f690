package packfile

import (
	"testing"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/spatial"
)

func TestEmptyFeaturePack(t *testing.T) {
	p, err := PackFeatures(nil, nil)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(p) != headerSize+1 {
		t.Fatalf("want header(%d)+terminator(1) bytes, got %d", headerSize, len(p))
	}
	fc, sc, err := readHeader(p)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if fc != 0 || sc != 0 {
		t.Fatalf("want feature_count=0 segment_count=0, got %d %d", fc, sc)
	}
	if p[len(p)-1] != 0 {
		t.Fatalf("expected null terminator")
	}
	if err := FeaturePackValid(p); err != nil {
		t.Fatalf("valid: %v", err)
	}

	count := 0
	if err := UnpackFeatures(p, nil, UnpackOptions{}, func(Feature) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if count != 0 {
		t.Fatalf("want 0 features, got %d", count)
	}
}

func sampleFeature() Feature {
	return Feature{
		ID:      1,
		Layer:   0,
		ZoomMin: 0,
		ZoomMax: 20,
		Metadata: []MetaEntry{
			{Key: "name", Value: MetaValue{Kind: MetaString, Str: "test"}},
		},
		Geometry: fixedgeo.Geometry{
			Type:   fixedgeo.GeomPoint,
			Points: []fixedgeo.Point{{X: 100, Y: 200}},
		},
	}
}

func TestOneFeatureQuickPack(t *testing.T) {
	p, err := PackFeatures([]Feature{sampleFeature()}, nil)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if err := FeaturePackValid(p); err != nil {
		t.Fatalf("valid: %v", err)
	}

	var got []Feature
	if err := UnpackFeatures(p, nil, UnpackOptions{}, func(f Feature) error {
		got = append(got, f)
		return nil
	}); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 feature, got %d", len(got))
	}
	if got[0].ID != 1 || got[0].Geometry.Type != fixedgeo.GeomPoint {
		t.Fatalf("unexpected feature: %+v", got[0])
	}
}

func TestOneFeatureOptimalPackQueryOverlap(t *testing.T) {
	childPack, err := PackFeatures([]Feature{sampleFeature()}, nil)
	if err != nil {
		t.Fatalf("child pack: %v", err)
	}
	stored := spatial.Tile{X: 1, Y: 1, Z: 1}
	optimal, err := PackFeaturesOptimal(
		[]Segment{{ChildTile: stored}},
		[][]byte{childPack},
	)
	if err != nil {
		t.Fatalf("optimal pack: %v", err)
	}
	if err := FeaturePackValid(optimal); err != nil {
		t.Fatalf("valid: %v", err)
	}

	query := stored
	count := 0
	if err := UnpackFeatures(optimal, &query, UnpackOptions{}, func(Feature) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 feature for matching query tile, got %d", count)
	}

	disjoint := spatial.Tile{X: 0, Y: 0, Z: 1}
	count = 0
	if err := UnpackFeatures(optimal, &disjoint, UnpackOptions{}, func(Feature) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if count != 0 {
		t.Fatalf("want 0 features for disjoint query tile, got %d", count)
	}
}

// TestAntimeridianOptimalPack reproduces spec section 8's antimeridian
// property: a polyline straddling the 180-degree meridian, packed for the
// tile it falls in, must still produce a valid non-empty pack.
func TestAntimeridianOptimalPack(t *testing.T) {
	p1 := fixedgeo.LonLatToFixed(180.0, -16.7935)
	p2 := fixedgeo.LonLatToFixed(179.99978, -16.7936)

	f := Feature{
		ID:      2,
		Layer:   0,
		ZoomMin: 0,
		ZoomMax: 20,
		Geometry: fixedgeo.Geometry{
			Type:  fixedgeo.GeomPolyline,
			Lines: [][]fixedgeo.Point{{p1, p2}},
		},
	}

	childPack, err := PackFeatures([]Feature{f}, nil)
	if err != nil {
		t.Fatalf("child pack: %v", err)
	}
	tile := spatial.Tile{X: 1023, Y: 560, Z: 10}
	optimal, err := PackFeaturesOptimal(
		[]Segment{{ChildTile: tile}},
		[][]byte{childPack},
	)
	if err != nil {
		t.Fatalf("optimal pack: %v", err)
	}
	if len(optimal) == 0 {
		t.Fatalf("expected non-empty pack")
	}
	if err := FeaturePackValid(optimal); err != nil {
		t.Fatalf("valid: %v", err)
	}

	count := 0
	if err := UnpackFeatures(optimal, &tile, UnpackOptions{}, func(Feature) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 feature, got %d", count)
	}
}

func TestMetaCodingRoundTrip(t *testing.T) {
	coding := NewMetaCoding([]MetaEntry{
		{Key: "highway", Value: MetaValue{Kind: MetaString, Str: "residential"}},
	})
	f := sampleFeature()
	f.Metadata = []MetaEntry{
		{Key: "highway", Value: MetaValue{Kind: MetaString, Str: "residential"}},
		{Key: "name", Value: MetaValue{Kind: MetaString, Str: "Elm Street"}},
	}
	encoded, err := SerializeFeature(f, coding)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := DeserializeFeature(encoded, coding, nil, 0)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if len(decoded.Metadata) != 2 {
		t.Fatalf("want 2 metadata entries, got %d", len(decoded.Metadata))
	}
	if decoded.Metadata[0].Value.Str != "residential" {
		t.Fatalf("coded metadata mismatch: %+v", decoded.Metadata[0])
	}
	if decoded.Metadata[1].Value.Str != "Elm Street" {
		t.Fatalf("inline metadata mismatch: %+v", decoded.Metadata[1])
	}
}

func TestInvalidFeatureRejected(t *testing.T) {
	f := sampleFeature()
	f.Layer = InvalidLayerID
	if _, err := SerializeFeature(f, nil); err != ErrInvalidFeature {
		t.Fatalf("want ErrInvalidFeature, got %v", err)
	}
}

func TestLayerNamesRoundTrip(t *testing.T) {
	names := NewLayerNames([]string{"water", "roads", "buildings"})
	encoded := names.Serialize()
	decoded, err := DeserializeLayerNames(encoded)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if decoded.Len() != 3 {
		t.Fatalf("want 3 names, got %d", decoded.Len())
	}
	idx, ok := decoded.IndexOf("roads")
	if !ok || idx != 1 {
		t.Fatalf("want roads at index 1, got %d ok=%v", idx, ok)
	}
	name, ok := decoded.Name(2)
	if !ok || name != "buildings" {
		t.Fatalf("want buildings at index 2, got %q ok=%v", name, ok)
	}
}
