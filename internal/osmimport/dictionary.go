package osmimport

import (
	"encoding/binary"
	"fmt"

	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/tiledb"
)

// LayerNamesMetaKey and MetaCodingMetaKey are the meta-table keys spec
// section 6 assigns the two shared dictionaries: "any feature can be
// serialized against them once frozen after ingest" (spec section 3).
const (
	LayerNamesMetaKey = "layer-names"
	MetaCodingMetaKey = "feature-meta-coding"

	// MaxPreparedZoomMetaKey stores the deepest zoom prepare_tiles
	// pre-rendered, so get_tile knows how far its "serve the stored
	// MVT" shortcut (spec section 4.4 step 3) reaches.
	MaxPreparedZoomMetaKey = "max-prepared-zoomlevel"
)

// PersistLayerNames freezes names into the meta table.
func PersistLayerNames(db *tiledb.DB, names *packfile.LayerNames) error {
	if err := db.MetaPut(LayerNamesMetaKey, names.Serialize()); err != nil {
		return fmt.Errorf("osmimport: persist layer names: %w", err)
	}
	return nil
}

// LoadLayerNames reads the frozen layer-name dictionary, if one was ever
// persisted.
func LoadLayerNames(db *tiledb.DB) (*packfile.LayerNames, bool, error) {
	data, ok, err := db.MetaGet(LayerNamesMetaKey)
	if err != nil || !ok {
		return nil, ok, err
	}
	names, err := packfile.DeserializeLayerNames(data)
	if err != nil {
		return nil, false, fmt.Errorf("osmimport: load layer names: %w", err)
	}
	return names, true, nil
}

// PersistMetaCoding freezes coding into the meta table.
func PersistMetaCoding(db *tiledb.DB, coding *packfile.MetaCoding) error {
	if err := db.MetaPut(MetaCodingMetaKey, coding.Serialize()); err != nil {
		return fmt.Errorf("osmimport: persist meta coding: %w", err)
	}
	return nil
}

// LoadMetaCoding reads the frozen feature-meta-coding dictionary, if one
// was ever persisted.
func LoadMetaCoding(db *tiledb.DB) (*packfile.MetaCoding, bool, error) {
	data, ok, err := db.MetaGet(MetaCodingMetaKey)
	if err != nil || !ok {
		return nil, ok, err
	}
	coding, err := packfile.DeserializeMetaCoding(data)
	if err != nil {
		return nil, false, fmt.Errorf("osmimport: load meta coding: %w", err)
	}
	return coding, true, nil
}

// PersistMaxPreparedZoom records the deepest zoom prepare_tiles rendered.
func PersistMaxPreparedZoom(db *tiledb.DB, z uint8) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(z))
	if err := db.MetaPut(MaxPreparedZoomMetaKey, buf[:n]); err != nil {
		return fmt.Errorf("osmimport: persist max prepared zoom: %w", err)
	}
	return nil
}

// LoadMaxPreparedZoom reads the deepest zoom prepare_tiles rendered, if
// any tiles were ever prepared.
func LoadMaxPreparedZoom(db *tiledb.DB) (uint8, bool, error) {
	data, ok, err := db.MetaGet(MaxPreparedZoomMetaKey)
	if err != nil || !ok {
		return 0, ok, err
	}
	z, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, false, fmt.Errorf("osmimport: load max prepared zoom: corrupt value")
	}
	return uint8(z), true, nil
}
