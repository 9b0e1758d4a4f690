package spatial

// BQTree is a bit-quadtree recording which tiles are entirely contained in
// some region (e.g. ocean, from coastline polygons), per spec section 4.3.
// The tree's implicit root is always the whole-world tile (0, 0, 0).
type BQTree struct {
	nodes []bqNode
	// rootFull is set when the entire world collapsed to a single FULL
	// node; in that case nodes is empty and every query answers true.
	rootFull bool
	rootIdx  int
	hasTree  bool
}

const (
	bqEmpty = iota
	bqFull
	bqInner
)

type bqSlot struct {
	kind  int
	child int
}

type bqNode struct {
	tile     Tile
	children [4]bqSlot
}

// BuildBQTree constructs a tree from a set of tiles each claimed to be
// entirely inside the target region. Claims need not be disjoint from one
// another in depth (a shallower claim subsumes any deeper ones beneath
// it); claims that are collectively exhaustive at some level collapse
// into a single FULL ancestor automatically.
func BuildBQTree(fullTiles []Tile) *BQTree {
	t := &BQTree{}
	root := Tile{0, 0, 0}
	kind, idx := t.build(root, fullTiles)
	if kind == bqFull {
		t.rootFull = true
	} else if kind == bqInner {
		t.rootIdx = idx
		t.hasTree = true
	}
	return t
}

// build returns (bqFull, -1) if tile collapses fully, (bqEmpty, -1) if no
// claim touches tile's subtree, or (bqInner, idx) with idx into t.nodes.
func (t *BQTree) build(tile Tile, claims []Tile) (int, int) {
	for _, c := range claims {
		if c == tile {
			return bqFull, -1
		}
	}

	var relevant []Tile
	for _, c := range claims {
		if c.Z > tile.Z && isAncestorOrEqual(tile, c) {
			relevant = append(relevant, c)
		}
	}
	if len(relevant) == 0 {
		return bqEmpty, -1
	}

	var buckets [4][]Tile
	for _, c := range relevant {
		q := quadrantAt(c, tile.Z)
		buckets[q] = append(buckets[q], c)
	}

	n := bqNode{tile: tile}
	allFull := true
	for q := 0; q < 4; q++ {
		childTile := child(tile, uint8(q))
		kind, idx := t.build(childTile, buckets[q])
		switch kind {
		case bqFull:
			n.children[q] = bqSlot{kind: bqFull}
		case bqEmpty:
			n.children[q] = bqSlot{kind: bqEmpty}
			allFull = false
		case bqInner:
			n.children[q] = bqSlot{kind: bqInner, child: idx}
			allFull = false
		}
	}
	if allFull {
		return bqFull, -1
	}
	t.nodes = append(t.nodes, n)
	return bqInner, len(t.nodes) - 1
}

// Contains reports whether t is entirely within the region the tree
// describes.
func (bq *BQTree) Contains(t Tile) bool {
	if bq.rootFull {
		return true
	}
	if !bq.hasTree {
		return false
	}
	return bq.contains(bq.rootIdx, t)
}

func (bq *BQTree) contains(idx int, t Tile) bool {
	n := &bq.nodes[idx]
	if n.tile == t {
		return false // an inner node reached exactly means not fully FULL
	}
	q := quadrantAt(t, n.tile.Z)
	switch n.children[q].kind {
	case bqFull:
		return true
	case bqEmpty:
		return false
	case bqInner:
		return bq.contains(n.children[q].child, t)
	}
	return false
}

// AllLeafs yields every stored FULL tile at or under q.
func (bq *BQTree) AllLeafs(q Tile) []Tile {
	if bq.rootFull {
		if isAncestorOrEqual(q, Tile{0, 0, 0}) {
			return []Tile{{0, 0, 0}}
		}
		return nil
	}
	if !bq.hasTree {
		return nil
	}
	return bq.collect(bq.rootIdx, q)
}

// collect walks the node at idx, returning every FULL tile at or below it
// that also lies at-or-under q (q may be an ancestor of this node, in
// which case everything beneath qualifies).
func (bq *BQTree) collect(idx int, q Tile) []Tile {
	n := &bq.nodes[idx]
	if !Overlaps(n.tile, q) {
		return nil
	}
	var out []Tile
	for i, s := range n.children {
		ct := child(n.tile, uint8(i))
		switch s.kind {
		case bqFull:
			if isAncestorOrEqual(q, ct) {
				out = append(out, ct)
			}
		case bqInner:
			out = append(out, bq.collect(s.child, q)...)
		}
	}
	return out
}
