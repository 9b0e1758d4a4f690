package tileserver

import (
	"testing"

	"github.com/joeblew999/plat-geo/internal/spatial"
)

func TestParseTileURL(t *testing.T) {
	tests := []struct {
		path string
		want spatial.Tile
		ok   bool
	}{
		{path: "/8/134/84.mvt", want: spatial.Tile{X: 134, Y: 84, Z: 8}, ok: true},
		{path: "/0/0/0.mvt", want: spatial.Tile{X: 0, Y: 0, Z: 0}, ok: true},
		{path: "/8/134/84.png", ok: false},
		{path: "/glyphs/foo.pbf", ok: false},
		{path: "/", ok: false},
	}
	for _, tc := range tests {
		got, ok := ParseTileURL(tc.path)
		if ok != tc.ok {
			t.Fatalf("%q: want ok=%v, got %v", tc.path, tc.ok, ok)
		}
		if ok && got != tc.want {
			t.Fatalf("%q: want %+v, got %+v", tc.path, tc.want, got)
		}
	}
}
