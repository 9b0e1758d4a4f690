package render

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
	"github.com/joeblew999/plat-geo/internal/tileerr"
)

// Options configures one GetTile call.
type Options struct {
	// Coding/Names/Masks are the shared dictionaries frozen at ingest
	// time (spec section 3); nil is valid and falls back to inline
	// metadata / numeric layer names / no simplification.
	Coding *packfile.MetaCoding
	Names  *packfile.LayerNames
	Masks  *fixedgeo.MaskSet

	// PreparedEnabled gates step 3 of the pipeline (serving a stored
	// "tiles" entry instead of rendering live); MaxPreparedZoom bounds
	// which zooms it applies to. IgnorePrepared forces a live render
	// regardless.
	PreparedEnabled bool
	MaxPreparedZoom uint8
	IgnorePrepared  bool

	// Compress deflates the resulting MVT bytes (spec section 4.4 step
	// 8's compress_result_).
	Compress bool
}

// GetTile implements the get_tile pipeline (spec section 4.4): the
// seaside shortcut, the prepared-tile cache, the feature scan/clip/
// group/aggregate/encode path, and optional deflate.
func GetTile(db *tiledb.DB, store io.ReaderAt, seaside *spatial.BQTree, query spatial.Tile, opts Options) ([]byte, error) {
	spec := ComputeTileSpec(query)

	if seaside != nil && seaside.Contains(query) {
		data, err := allWaterTile()
		if err != nil {
			return nil, fmt.Errorf("render: all-water tile: %w", err)
		}
		return compressIfNeeded(data, opts.Compress)
	}

	if opts.PreparedEnabled && !opts.IgnorePrepared && query.Z <= opts.MaxPreparedZoom {
		key := spatial.TileToKey(query, 0)
		if data, ok, err := db.TilesGet(key); err != nil {
			return nil, fmt.Errorf("render: prepared tile lookup %v: %w", query, err)
		} else if ok {
			return data, nil
		}
	}

	rows, err := gatherFeatureRows(db, query)
	if err != nil {
		return nil, fmt.Errorf("render: gather %v: %w", query, err)
	}

	groups := make(map[string]map[uint32][]renderedFeature)
	band := ZoomBand(query.Z)

	unpackOpts := packfile.UnpackOptions{Coding: opts.Coding, Masks: opts.Masks, Zoom: query.Z}
	for _, row := range rows {
		records, err := packfile.DecodeRecordList(row.Value)
		if err != nil {
			return nil, fmt.Errorf("render: decode record list %v: %w", query, tileerr.ErrCorrupt)
		}
		for _, rec := range records {
			packBytes, err := packfile.Read(store, rec)
			if err != nil {
				return nil, fmt.Errorf("render: read pack %v: %w", query, err)
			}
			err = packfile.UnpackFeatures(packBytes, &query, unpackOpts, func(feat packfile.Feature) error {
				if query.Z < feat.ZoomMin || query.Z > feat.ZoomMax {
					return nil
				}
				clipped := fixedgeo.Clip(feat.Geometry, spec.Clip)
				if clipped.IsNull() {
					return nil
				}
				if groups[band] == nil {
					groups[band] = make(map[uint32][]renderedFeature)
				}
				groups[band][feat.Layer] = append(groups[band][feat.Layer], renderedFeature{
					Geometry: clipped,
					Metadata: feat.Metadata,
				})
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("render: unpack %v: %w", query, err)
			}
		}
	}

	for b, byLayer := range groups {
		for layerID, feats := range byLayer {
			aggregated := make([]renderedFeature, len(feats))
			for i, rf := range feats {
				aggregated[i] = aggregateFeature(rf, spec)
			}
			groups[b][layerID] = aggregated
		}
	}

	data, err := assembleMVT(groups, opts.Names, spec)
	if err != nil {
		return nil, fmt.Errorf("render: assemble mvt %v: %w", query, err)
	}
	return compressIfNeeded(data, opts.Compress)
}

// gatherFeatureRows scans the features KV table for every entry
// covering the query tile's subtree (spec section 4.4 step 4): ancestors
// of query at every coarser zoom (an object stored coarse can still
// cover a finer query tile), plus every zoom from query.Z+1 up to
// kMaxZoomLevel restricted to query's own subtree.
func gatherFeatureRows(db *tiledb.DB, query spatial.Tile) ([]tiledb.KV, error) {
	var all []tiledb.KV

	for z := int(query.Z); z >= 0; z-- {
		shift := uint(query.Z) - uint(z)
		t := spatial.Tile{X: query.X >> shift, Y: query.Y >> shift, Z: uint8(z)}
		lo, hi := spatial.TileKeyRange(t)
		rows, err := db.FeaturesScanRange(lo, hi)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	for z := int(query.Z) + 1; z <= fixedgeo.MaxZoomLevel; z++ {
		lo, hi, ok := spatial.SubtreeKeyRange(query, uint8(z))
		if !ok {
			continue
		}
		rows, err := db.FeaturesScanRange(lo, hi)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	return all, nil
}

// compressIfNeeded deflates data (spec section 4.4 step 8) when asked.
// Plain DEFLATE, not gzip: the spec names the wire codec itself, not an
// archive format, so stdlib compress/flate is the literal thing asked
// for rather than a stand-in for a missing library.
func compressIfNeeded(data []byte, compress bool) ([]byte, error) {
	if !compress || len(data) == 0 {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("render: deflate: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("render: deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("render: deflate: %w", err)
	}
	return buf.Bytes(), nil
}
