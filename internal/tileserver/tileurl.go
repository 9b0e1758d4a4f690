// Package tileserver implements the HTTP surface described in spec
// section 6: the tile endpoint, bundled glyph PBFs, static asset
// fallback, and the CORS preamble, wired to internal/render and
// internal/tiledb. Grounded on internal/server.Server's CORS-header and
// http.FileServer idiom, generalized from its "/tiles/" static mount to
// live MVT rendering.
package tileserver

import (
	"regexp"
	"strconv"

	"github.com/joeblew999/plat-geo/internal/fixedgeo"
	"github.com/joeblew999/plat-geo/internal/spatial"
)

// tileURLPattern matches "/{z}/{x}/{y}.mvt" with three non-negative decimal
// integers, e.g. "/8/134/84.mvt" (spec section 8's worked example).
var tileURLPattern = regexp.MustCompile(`^/([0-9]+)/([0-9]+)/([0-9]+)\.mvt$`)

// ParseTileURL parses a request path into a tile coordinate. It reports
// false for any path that doesn't match the "/{z}/{x}/{y}.mvt" shape or
// whose z exceeds fixedgeo.MaxZoomLevel.
func ParseTileURL(path string) (spatial.Tile, bool) {
	m := tileURLPattern.FindStringSubmatch(path)
	if m == nil {
		return spatial.Tile{}, false
	}
	z, err1 := strconv.ParseUint(m[1], 10, 8)
	x, err2 := strconv.ParseUint(m[2], 10, 32)
	y, err3 := strconv.ParseUint(m[3], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return spatial.Tile{}, false
	}
	if z > fixedgeo.MaxZoomLevel {
		return spatial.Tile{}, false
	}
	return spatial.Tile{X: uint32(x), Y: uint32(y), Z: uint8(z)}, true
}
