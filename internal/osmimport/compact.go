package osmimport

import (
	"fmt"
	"sort"

	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
	"github.com/joeblew999/plat-geo/internal/tileerr"
)

// CompactGroup merges a set of already-ingested leaf shard packs (each
// previously written by FeatureWriter.Finish under leaves[i], addressed
// by records[i] in store) into a single "optimal" feature pack rooted
// at a coarser tile, replacing their individual "features" KV entries
// with one entry at root's key. spatial.BuildQuadTree validates that
// every leaf genuinely lies within root's subtree before anything is
// written — the same check a hand-rolled recursive bounds walk would
// perform, reused here from the spec's own quad-tree package rather than
// duplicated.
func CompactGroup(db *tiledb.DB, store *packfile.Store, root spatial.Tile, leaves []spatial.Tile, records []packfile.PackRecord, packs [][]byte) error {
	if len(leaves) != len(records) || len(leaves) != len(packs) {
		return fmt.Errorf("osmimport: compact %v: mismatched leaves/records/packs: %w", root, tileerr.ErrInconsistent)
	}

	order := make([]int, len(leaves))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return spatial.TileToKey(leaves[order[a]], 0) < spatial.TileToKey(leaves[order[b]], 0)
	})

	inputs := make([]spatial.QuadInput, len(order))
	for rank, i := range order {
		inputs[rank] = spatial.QuadInput{Tile: leaves[i], Offset: uint32(rank), Size: 1}
	}
	qt, err := spatial.BuildQuadTree(root, inputs)
	if err != nil {
		return fmt.Errorf("osmimport: compact %v: %w", root, err)
	}
	if got := len(qt.Walk(root)); got == 0 && len(order) > 0 {
		return fmt.Errorf("osmimport: compact %v: quad tree lost leaves: %w", root, tileerr.ErrInconsistent)
	}

	segments := make([]packfile.Segment, len(order))
	childPacks := make([][]byte, len(order))
	for rank, i := range order {
		segments[rank] = packfile.Segment{ChildTile: leaves[i], Records: []packfile.PackRecord{records[i]}}
		childPacks[rank] = packs[i]
	}

	optimal, err := packfile.PackFeaturesOptimal(segments, childPacks)
	if err != nil {
		return fmt.Errorf("osmimport: compact %v: build optimal pack: %w", root, err)
	}
	rec, err := store.Append(optimal)
	if err != nil {
		return fmt.Errorf("osmimport: compact %v: append: %w", root, err)
	}
	key := spatial.TileToKey(root, 0)
	if err := db.FeaturesPut(key, packfile.EncodeRecordList([]packfile.PackRecord{rec})); err != nil {
		return fmt.Errorf("osmimport: compact %v: index: %w", root, err)
	}
	return nil
}
