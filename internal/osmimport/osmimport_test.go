package osmimport

import (
	"bytes"
	"context"
	"testing"

	"github.com/joeblew999/plat-geo/internal/classify"
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/nodeidx"
	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
)

func TestRunPass1BuildsIndex(t *testing.T) {
	var idxBuf, datBuf bytes.Buffer
	builder := nodeidx.NewBuilder(&idxBuf, &datBuf)

	nodes := make(chan Node, 4)
	nodes <- Node{ID: 1, LonE7: 0, LatE7: 0}
	nodes <- Node{ID: 2, LonE7: 10_000_000, LatE7: 5_000_000}
	close(nodes)

	if err := RunPass1(builder, nodes); err != nil {
		t.Fatalf("pass1: %v", err)
	}

	reader, err := nodeidx.Open(idxBuf.Bytes(), bytes.NewReader(datBuf.Bytes()))
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	x, y, ok, err := reader.Get(1)
	if err != nil || !ok {
		t.Fatalf("get id=1: ok=%v err=%v", ok, err)
	}
	wantX := uint32(fixedgeo.NodeCoordOffset(0, false))
	wantY := uint32(fixedgeo.NodeCoordOffset(0, true))
	if x != wantX || y != wantY {
		t.Fatalf("want (%d,%d) got (%d,%d)", wantX, wantY, x, y)
	}
}

func squarePolygon(side fixedgeo.Coord) fixedgeo.Geometry {
	return fixedgeo.NewPolygon([]fixedgeo.SimplePolygon{{
		Outer: []fixedgeo.Point{{X: 0, Y: 0}, {X: side, Y: 0}, {X: side, Y: side}, {X: 0, Y: side}},
	}})
}

func TestRunPass2PreservesOrderAndSkipsUnapproved(t *testing.T) {
	objects := make(chan Object, 8)
	var order []int64
	for i := int64(1); i <= 6; i++ {
		objects <- Object{ID: i, Kind: KindWay, Geometry: func() fixedgeo.Geometry { return squarePolygon(100) }}
		order = append(order, i)
	}
	close(objects)

	classifier := func(o Object) *classify.PendingFeature {
		p := classify.New(o.Geometry)
		if o.ID%2 == 0 {
			p.SetApproved(uint8(o.ID), 20)
			p.SetTargetLayer(1)
		}
		return p
	}

	var got []uint64
	sink := sinkFunc(func(p classify.PendingFeature) error {
		min, _ := p.ZoomRange()
		got = append(got, uint64(min))
		return nil
	})

	if err := RunPass2(context.Background(), objects, classifier, sink, 3, nil); err != nil {
		t.Fatalf("pass2: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 approved features (even ids), got %d", len(got))
	}
	for i, want := range []uint64{2, 4, 6} {
		if got[i] != want {
			t.Fatalf("want approved features in input order [2 4 6], got %v", got)
		}
	}
}

type sinkFunc func(classify.PendingFeature) error

func (f sinkFunc) Write(p classify.PendingFeature) error { return f(p) }

func TestRunPass2ReportsProgress(t *testing.T) {
	objects := make(chan Object, 4)
	for i := int64(1); i <= 4; i++ {
		objects <- Object{ID: i, Geometry: func() fixedgeo.Geometry { return fixedgeo.Geometry{} }}
	}
	close(objects)

	bus := NewProgressBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	classifier := func(o Object) *classify.PendingFeature { return classify.New(o.Geometry) }
	sink := sinkFunc(func(classify.PendingFeature) error { return nil })

	if err := RunPass2(context.Background(), objects, classifier, sink, 2, bus); err != nil {
		t.Fatalf("pass2: %v", err)
	}

	var last Progress
	for i := 0; i < 4; i++ {
		last = <-ch
	}
	if last.Processed != 4 {
		t.Fatalf("want final processed=4, got %d", last.Processed)
	}
}

func TestFeatureWriterAndCompactGroup(t *testing.T) {
	db, err := tiledb.Open(t.TempDir(), "import-test")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var packBuf bytes.Buffer
	store := packfile.NewStore(&packBuf, 0)

	w := NewFeatureWriter(store, db, 10, nil, nil)
	for i := 0; i < 3; i++ {
		p := classify.New(func() fixedgeo.Geometry { return squarePolygon(10) })
		p.SetApproved(0, 20)
		p.SetTargetLayer(0)
		if err := w.Write(*p); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	shard := spatial.Tile{X: 0, Y: 0, Z: 10}
	key := spatial.TileToKey(shard, 0)
	blob, ok, err := db.FeaturesGet(key)
	if err != nil || !ok {
		t.Fatalf("features get: ok=%v err=%v", ok, err)
	}
	records, err := packfile.DecodeRecordList(blob)
	if err != nil || len(records) != 1 {
		t.Fatalf("decode record list: %+v err=%v", records, err)
	}
	packBytes, err := packfile.Read(bytes.NewReader(packBuf.Bytes()), records[0])
	if err != nil {
		t.Fatalf("read pack: %v", err)
	}
	count := 0
	if err := packfile.UnpackFeatures(packBytes, nil, packfile.UnpackOptions{}, func(packfile.Feature) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if count != 3 {
		t.Fatalf("want 3 features in shard pack, got %d", count)
	}

	root := spatial.Tile{X: 0, Y: 0, Z: 8}
	if err := CompactGroup(db, store, root, []spatial.Tile{shard}, records, [][]byte{packBytes}); err != nil {
		t.Fatalf("compact: %v", err)
	}
	rootKey := spatial.TileToKey(root, 0)
	rootBlob, ok, err := db.FeaturesGet(rootKey)
	if err != nil || !ok {
		t.Fatalf("root features get: ok=%v err=%v", ok, err)
	}
	rootRecords, err := packfile.DecodeRecordList(rootBlob)
	if err != nil || len(rootRecords) != 1 {
		t.Fatalf("decode root record list: %+v err=%v", rootRecords, err)
	}
	optimalBytes, err := packfile.Read(bytes.NewReader(packBuf.Bytes()), rootRecords[0])
	if err != nil {
		t.Fatalf("read optimal pack: %v", err)
	}
	if err := packfile.FeaturePackValid(optimalBytes); err != nil {
		t.Fatalf("optimal pack invalid: %v", err)
	}
	count = 0
	if err := packfile.UnpackFeatures(optimalBytes, &shard, packfile.UnpackOptions{}, func(packfile.Feature) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unpack optimal: %v", err)
	}
	if count != 3 {
		t.Fatalf("want 3 features via compacted pack, got %d", count)
	}
}

func TestBuildSeasideTree(t *testing.T) {
	water := squarePolygon(fixedgeo.WorldSize)
	tree := BuildSeasideTree(water.Polygons, 2)
	if !tree.Contains(spatial.Tile{X: 1, Y: 1, Z: 2}) {
		t.Fatalf("want whole-world water polygon to fully contain every tile")
	}
}
