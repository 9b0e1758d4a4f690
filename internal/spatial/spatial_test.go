package spatial

import (
	"reflect"
	"sort"
	"testing"
)

func TestTileKeyRoundTrip(t *testing.T) {
	cases := []Tile{
		{0, 0, 0},
		{1, 1, 1},
		{134, 84, 8},
		{547241, 371634, 20},
	}
	for _, tile := range cases {
		key := TileToKey(tile, 7)
		got := KeyToTile(key)
		if got != tile {
			t.Fatalf("tile %v: round trip got %v", tile, got)
		}
		if n := KeyToN(key); n != 7 {
			t.Fatalf("tile %v: want n=7 got %d", tile, n)
		}
	}
}

func TestKeyOrderingAncestorsBeforeDescendants(t *testing.T) {
	ancestor := TileToKey(Tile{0, 0, 1}, 0)
	descendant := TileToKey(Tile{0, 0, 2}, 0)
	if ancestor >= descendant {
		t.Fatalf("expected ancestor key < descendant key, got %d >= %d", ancestor, descendant)
	}
}

func TestQuadTreeEmpty(t *testing.T) {
	qt, err := BuildQuadTree(Tile{0, 0, 0}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := qt.Walk(Tile{0, 0, 0}); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := qt.Walk(Tile{1, 1, 2}); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestQuadTreeSingleRootLeaf(t *testing.T) {
	root := Tile{4, 5, 6}
	qt, err := BuildQuadTree(root, []QuadInput{{Tile: root, Offset: 42, Size: 23}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []PackRange{{42, 23}}

	if got := qt.Walk(Tile{8, 8, 6}); len(got) != 0 {
		t.Fatalf("query outside: expected empty, got %v", got)
	}
	if got := qt.Walk(Tile{8, 8, 5}); len(got) != 0 {
		t.Fatalf("query outside above: expected empty, got %v", got)
	}
	if got := qt.Walk(Tile{0, 0, 2}); !reflect.DeepEqual(got, want) {
		t.Fatalf("query above: want %v got %v", want, got)
	}
	if got := qt.Walk(root); !reflect.DeepEqual(got, want) {
		t.Fatalf("query root: want %v got %v", want, got)
	}
	if got := qt.Walk(Tile{8, 10, 7}); !reflect.DeepEqual(got, want) {
		t.Fatalf("query child: want %v got %v", want, got)
	}
}

func TestQuadTreeOutsideRootRejected(t *testing.T) {
	root := Tile{0, 0, 1}
	if _, err := BuildQuadTree(root, []QuadInput{{Tile: Tile{0, 1, 1}, Offset: 0, Size: 0}}); err == nil {
		t.Fatalf("expected error for sibling tile")
	}
	if _, err := BuildQuadTree(root, []QuadInput{{Tile: Tile{0, 0, 0}, Offset: 0, Size: 0}}); err == nil {
		t.Fatalf("expected error for ancestor tile")
	}
	if _, err := BuildQuadTree(root, []QuadInput{{Tile: Tile{2, 2, 2}, Offset: 0, Size: 0}}); err == nil {
		t.Fatalf("expected error for disjoint deeper tile")
	}
}

func TestQuadTreeWorkedExample(t *testing.T) {
	root := Tile{0, 0, 1}
	inputs := []QuadInput{
		{Tile: Tile{0, 0, 2}, Offset: 1, Size: 3},
		{Tile: Tile{0, 2, 4}, Offset: 5, Size: 1},
		{Tile: Tile{0, 0, 4}, Offset: 4, Size: 1},
	}
	qt, err := BuildQuadTree(root, inputs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	sortRanges := func(rs []PackRange) []PackRange {
		out := append([]PackRange(nil), rs...)
		sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
		return out
	}

	if got := sortRanges(qt.Walk(Tile{0, 0, 0})); !reflect.DeepEqual(got, []PackRange{{1, 5}}) {
		t.Fatalf("query (0,0,0): want [{1 5}] got %v", got)
	}
	if got := sortRanges(qt.Walk(Tile{0, 0, 3})); !reflect.DeepEqual(got, []PackRange{{1, 3}, {4, 1}}) {
		t.Fatalf("query (0,0,3): want [{1 3} {4 1}] got %v", got)
	}
	if got := sortRanges(qt.Walk(Tile{0, 2, 4})); !reflect.DeepEqual(got, []PackRange{{1, 3}, {5, 1}}) {
		t.Fatalf("query (0,2,4): want [{1 3} {5 1}] got %v", got)
	}
}

func sortTiles(ts []Tile) []Tile {
	out := append([]Tile(nil), ts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func TestBQTreeDefaultEmpty(t *testing.T) {
	bq := BuildBQTree(nil)
	for _, tile := range []Tile{{0, 0, 0}, {1, 1, 2}, {5, 5, 10}} {
		if bq.Contains(tile) {
			t.Fatalf("expected empty tree to contain nothing, got true for %v", tile)
		}
	}
}

func TestBQTreeWholeWorldFull(t *testing.T) {
	bq := BuildBQTree([]Tile{{0, 0, 0}})
	if !bq.Contains(Tile{0, 0, 0}) {
		t.Fatalf("expected root to be contained")
	}
	if !bq.Contains(Tile{3, 2, 5}) {
		t.Fatalf("expected arbitrary descendant to be contained")
	}
}

func TestBQTreeTwoLeaves(t *testing.T) {
	bq := BuildBQTree([]Tile{{0, 1, 2}, {3, 3, 2}})
	if bq.Contains(Tile{0, 0, 0}) {
		t.Fatalf("expected root not fully contained")
	}
	got := sortTiles(bq.AllLeafs(Tile{0, 0, 0}))
	want := sortTiles([]Tile{{0, 1, 2}, {3, 3, 2}})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v got %v", want, got)
	}
}

func TestBQTreeCollapsing(t *testing.T) {
	bq := BuildBQTree([]Tile{{0, 0, 1}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1}})
	got := bq.AllLeafs(Tile{0, 0, 0})
	want := []Tile{{0, 0, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v got %v", want, got)
	}
}
