package osmimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joeblew999/plat-geo/internal/nodeidx"
	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/render"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
)

// CompactZoom is the coarser root zoom RunPack groups ingest shards
// (written at DefaultShardZoom) under, per spec section 4.3's "optimal"
// pack: a single composed pack with a segment per child tile.
const CompactZoom = 6

// PrepareMaxZoom is the deepest zoom RunTiles pre-renders, per spec
// section 4.4 step 3's "max_prepared_zoom_level".
const PrepareMaxZoom = 8

// CoastlineCheckZoom is the zoom BuildSeasideTree samples tiles at
// before the BQ tree collapses full quadrants upward.
const CoastlineCheckZoom = 10

// Importer owns the on-disk state one tiles-import run reads and
// writes: the tile database (meta/features/tiles), the append-only
// feature-pack file, and the node-index temp files pass 1 builds (spec
// section 5: "Temp files (idx.bin, dat.bin) are owned by the importer
// and removed on scope exit").
type Importer struct {
	dir   string
	db    *tiledb.DB
	pack  *os.File
	store *packfile.Store
}

// Open creates (or reuses) dbFname as a directory holding the tile
// database and the pack file, ready for import tasks.
func Open(dbFname string) (*Importer, error) {
	if err := os.MkdirAll(dbFname, 0755); err != nil {
		return nil, fmt.Errorf("osmimport: create %q: %w", dbFname, err)
	}
	db, err := tiledb.Open(dbFname, "tiles")
	if err != nil {
		return nil, err
	}
	packPath := filepath.Join(dbFname, "pack.dat")
	f, err := os.OpenFile(packPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("osmimport: open pack file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		db.Close()
		return nil, err
	}
	return &Importer{
		dir:   dbFname,
		db:    db,
		pack:  f,
		store: packfile.NewStore(f, uint64(info.Size())),
	}, nil
}

// DB returns the underlying tile database handle.
func (im *Importer) DB() *tiledb.DB { return im.db }

// PackFile returns the pack file, readable by the render pipeline.
func (im *Importer) PackFile() *os.File { return im.pack }

// Close releases the database and pack file handles.
func (im *Importer) Close() error {
	err1 := im.pack.Close()
	err2 := im.db.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// nodeIdxPaths returns the temp idx.bin/dat.bin paths pass 1 writes to.
func (im *Importer) nodeIdxPaths() (idxPath, datPath string) {
	return filepath.Join(im.dir, "idx.bin"), filepath.Join(im.dir, "dat.bin")
}

// RunFeatures implements the "features" task: clears previously
// ingested feature/tile state, runs pass 1 over src's nodes (building
// the hybrid node index), then pass 2 over src's objects (classify +
// shard + pack), freezing and persisting the layer-name and
// feature-meta-coding dictionaries used along the way. The node index
// itself is built for parity with a real PBF ingest pipeline (spec
// section 5) even though this repo's fixture objects already carry
// resolved geometry, so RunFeatures doesn't need to query it back.
func (im *Importer) RunFeatures(ctx context.Context, src *Source, classifier Classifier, coding *packfile.MetaCoding, workers int) error {
	if err := im.clearFeatures(); err != nil {
		return err
	}

	idxPath, datPath := im.nodeIdxPaths()
	idxFile, err := os.Create(idxPath)
	if err != nil {
		return fmt.Errorf("osmimport: create idx file: %w", err)
	}
	defer os.Remove(idxPath)
	defer idxFile.Close()
	datFile, err := os.Create(datPath)
	if err != nil {
		return fmt.Errorf("osmimport: create dat file: %w", err)
	}
	defer os.Remove(datPath)
	defer datFile.Close()

	builder := nodeidx.NewBuilder(idxFile, datFile)
	if err := RunPass1(builder, src.NodeChan()); err != nil {
		return err
	}

	writer := NewFeatureWriter(im.store, im.db, DefaultShardZoom, coding, DefaultLayers)
	progress := NewProgressBus()
	if err := RunPass2(ctx, src.ObjectChan(), classifier, writer, workers, progress); err != nil {
		return err
	}
	if err := writer.Finish(); err != nil {
		return err
	}

	if err := PersistLayerNames(im.db, DefaultLayers); err != nil {
		return err
	}
	if err := PersistMetaCoding(im.db, coding); err != nil {
		return err
	}
	return nil
}

// clearFeatures drops every existing "features" and "tiles" row ahead
// of a fresh "features" task run, per spec section 6's CLI table
// ("features task clears DB first").
func (im *Importer) clearFeatures() error {
	return im.db.ClearFeaturesAndTiles()
}

// RunCoastlines implements the "coastlines" task: decodes coastlinesFname
// and persists the fully-seaside BQ tree.
func (im *Importer) RunCoastlines(coastlinesFname string) error {
	polys, err := LoadCoastlines(coastlinesFname)
	if err != nil {
		return err
	}
	tree := BuildSeasideTree(polys, CoastlineCheckZoom)
	return PersistSeasideTree(im.db, tree)
}

// RunPack implements the "pack" task: compacts every ingest shard at
// DefaultShardZoom into coarser optimal packs rooted at CompactZoom,
// one CompactGroup call per distinct coarse ancestor.
func (im *Importer) RunPack() error {
	lo, hi := uint64(0), ^uint64(0)
	rows, err := im.db.FeaturesScanRange(lo, hi)
	if err != nil {
		return err
	}

	groups := make(map[spatial.Tile][]tiledb.KV)
	for _, row := range rows {
		t := spatial.KeyToTile(row.Key)
		if t.Z != DefaultShardZoom {
			continue // already compacted, or a coarser root from a prior run
		}
		root := ancestorAt(t, CompactZoom)
		groups[root] = append(groups[root], row)
	}

	roots := make([]spatial.Tile, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return spatial.TileToKey(roots[i], 0) < spatial.TileToKey(roots[j], 0)
	})

	for _, root := range roots {
		rows := groups[root]
		leaves := make([]spatial.Tile, len(rows))
		records := make([]packfile.PackRecord, len(rows))
		packs := make([][]byte, len(rows))
		for i, row := range rows {
			leaves[i] = spatial.KeyToTile(row.Key)
			recs, err := packfile.DecodeRecordList(row.Value)
			if err != nil || len(recs) != 1 {
				return fmt.Errorf("osmimport: pack task: shard %v record list: %w", leaves[i], err)
			}
			records[i] = recs[0]
			blob, err := packfile.Read(im.pack, recs[0])
			if err != nil {
				return err
			}
			packs[i] = blob
		}
		if err := CompactGroup(im.db, im.store, root, leaves, records, packs); err != nil {
			return err
		}
	}
	return nil
}

// ancestorAt returns t's ancestor tile at zoom z (z must be <= t.Z).
func ancestorAt(t spatial.Tile, z uint8) spatial.Tile {
	if z >= t.Z {
		return t
	}
	shift := t.Z - z
	return spatial.Tile{X: t.X >> shift, Y: t.Y >> shift, Z: z}
}

// RunTiles implements the "tiles" task: renders and stores an MVT for
// every tile from zoom 0 to PrepareMaxZoom that has any approved
// feature coverage, then records the deepest zoom prepared.
func (im *Importer) RunTiles() error {
	seaside, _, err := LoadSeasideTree(im.db)
	if err != nil {
		return err
	}
	names, _, err := LoadLayerNames(im.db)
	if err != nil {
		return err
	}
	coding, _, err := LoadMetaCoding(im.db)
	if err != nil {
		return err
	}

	opts := render.Options{Coding: coding, Names: names, IgnorePrepared: true}
	for z := uint8(0); z <= PrepareMaxZoom; z++ {
		n := uint32(1) << z
		for x := uint32(0); x < n; x++ {
			for y := uint32(0); y < n; y++ {
				t := spatial.Tile{X: x, Y: y, Z: z}
				data, err := render.GetTile(im.db, im.pack, seaside, t, opts)
				if err != nil {
					return fmt.Errorf("osmimport: prepare tile %v: %w", t, err)
				}
				if len(data) == 0 {
					continue
				}
				if err := im.db.TilesPut(spatial.TileToKey(t, 0), data); err != nil {
					return err
				}
			}
		}
	}
	return PersistMaxPreparedZoom(im.db, PrepareMaxZoom)
}

// Stats reports simple import counts: how many features/tiles rows are
// stored and how many bytes the pack file holds.
type Stats struct {
	FeatureRows int
	TileRows    int
	PackBytes   uint64
}

// RunStats implements the "stats" task.
func (im *Importer) RunStats() (Stats, error) {
	featureRows, err := im.db.FeaturesScanRange(0, ^uint64(0))
	if err != nil {
		return Stats{}, err
	}
	tileRows, err := im.db.TilesScanRange(0, ^uint64(0))
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		FeatureRows: len(featureRows),
		TileRows:    len(tileRows),
		PackBytes:   im.store.Offset(),
	}, nil
}

// RunAll runs coastlines, features, pack, then tiles in sequence — the
// "all" task.
func (im *Importer) RunAll(ctx context.Context, src *Source, coastlinesFname string, classifier Classifier, coding *packfile.MetaCoding, workers int) error {
	if coastlinesFname != "" {
		if err := im.RunCoastlines(coastlinesFname); err != nil {
			return err
		}
	}
	if err := im.RunFeatures(ctx, src, classifier, coding, workers); err != nil {
		return err
	}
	if err := im.RunPack(); err != nil {
		return err
	}
	return im.RunTiles()
}
