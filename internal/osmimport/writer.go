package osmimport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/joeblew999/plat-geo/internal/classify"
	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
)

// DefaultShardZoom is the tile zoom level FeatureWriter buckets
// approved features at before packing: coarse enough that a shard holds
// a meaningful batch of features, fine enough that a render request only
// ever has to fetch a handful of shards per query tile (via the
// ancestor/descendant key-range scan internal/render performs).
const DefaultShardZoom = 12

// FeatureWriter implements Sink: it buffers approved features into
// per-shard-tile buckets behind a mutex (RunPass2 itself calls Write
// only from its single in-order assembly stage), and on Finish packs
// each bucket as a "quick"
// feature pack (spec section 4.3) appended to the shared pack-file
// Store, with a pack-record-list pointer stored under the shard tile's
// key in the tile database's "features" table (spec section 3: "the
// pack file is owned separately but referenced by offsets stored in
// features/tiles entries").
type FeatureWriter struct {
	mu        sync.Mutex
	shardZoom uint8
	buckets   map[spatial.Tile][]packfile.Feature
	nextID    uint64
	coding    *packfile.MetaCoding
	names     *packfile.LayerNames

	store *packfile.Store
	db    *tiledb.DB
}

// NewFeatureWriter creates a writer appending quick packs to store and
// indexing them in db, bucketing features at shardZoom.
func NewFeatureWriter(store *packfile.Store, db *tiledb.DB, shardZoom uint8, coding *packfile.MetaCoding, names *packfile.LayerNames) *FeatureWriter {
	return &FeatureWriter{
		shardZoom: shardZoom,
		buckets:   make(map[spatial.Tile][]packfile.Feature),
		coding:    coding,
		names:     names,
		store:     store,
		db:        db,
	}
}

// shardFor returns the shard tile the centroid of a feature's geometry
// bounds falls under, at the writer's shard zoom.
func (w *FeatureWriter) shardFor(g fixedgeo.Geometry) spatial.Tile {
	minX, minY, maxX, maxY, ok := geometryBounds(g)
	if !ok {
		return spatial.Tile{X: 0, Y: 0, Z: w.shardZoom}
	}
	shift := uint(fixedgeo.WorldBits - int(w.shardZoom))
	cx := uint32((minX + maxX) / 2)
	cy := uint32((minY + maxY) / 2)
	return spatial.Tile{X: cx >> shift, Y: cy >> shift, Z: w.shardZoom}
}

// geometryBounds walks every vertex of g and returns its axis-aligned
// bounding box. ok is false for the null geometry.
func geometryBounds(g fixedgeo.Geometry) (minX, minY, maxX, maxY fixedgeo.Coord, ok bool) {
	consider := func(p fixedgeo.Point) {
		if !ok {
			minX, minY, maxX, maxY, ok = p.X, p.Y, p.X, p.Y, true
			return
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	switch g.Type {
	case fixedgeo.GeomPoint:
		for _, p := range g.Points {
			consider(p)
		}
	case fixedgeo.GeomPolyline:
		for _, line := range g.Lines {
			for _, p := range line {
				consider(p)
			}
		}
	case fixedgeo.GeomPolygon:
		for _, poly := range g.Polygons {
			for _, p := range poly.Outer {
				consider(p)
			}
			for _, in := range poly.Inners {
				for _, p := range in {
					consider(p)
				}
			}
		}
	}
	return
}

// Write implements Sink: it assigns the feature an id, buckets it by its
// geometry's shard tile, and buffers it for Finish to flush.
func (w *FeatureWriter) Write(p classify.PendingFeature) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	feat, ok := p.ToFeature(w.nextID)
	if !ok {
		return nil
	}
	shard := w.shardFor(feat.Geometry)
	w.buckets[shard] = append(w.buckets[shard], feat)
	return nil
}

// Finish packs and persists every buffered shard. It must be called
// exactly once after all writes complete.
func (w *FeatureWriter) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	shards := make([]spatial.Tile, 0, len(w.buckets))
	for t := range w.buckets {
		shards = append(shards, t)
	}
	sort.Slice(shards, func(i, j int) bool {
		return spatial.TileToKey(shards[i], 0) < spatial.TileToKey(shards[j], 0)
	})

	for _, shard := range shards {
		features := w.buckets[shard]
		blob, err := packfile.PackFeatures(features, w.coding)
		if err != nil {
			return fmt.Errorf("osmimport: pack shard %v: %w", shard, err)
		}
		rec, err := w.store.Append(blob)
		if err != nil {
			return fmt.Errorf("osmimport: append shard %v: %w", shard, err)
		}
		key := spatial.TileToKey(shard, 0)
		if err := w.db.FeaturesPut(key, packfile.EncodeRecordList([]packfile.PackRecord{rec})); err != nil {
			return fmt.Errorf("osmimport: index shard %v: %w", shard, err)
		}
	}
	return nil
}
