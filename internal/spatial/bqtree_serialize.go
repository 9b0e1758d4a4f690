package spatial

import "errors"

// ErrCorruptBQTree is returned when a serialized BQ tree fails its
// layout checks.
var ErrCorruptBQTree = errors.New("spatial: corrupt bq tree")

const (
	bqTagEmpty byte = 0
	bqTagFull  byte = 1
	bqTagInner byte = 2
)

// Serialize encodes the tree as a tag-prefixed pre-order walk, for
// storage under the tile database's "fully-seaside-tree" meta key (spec
// section 6). The shape (EMPTY/FULL/INNER tags, no coordinates stored —
// they're implicit from recursion depth and quadrant) mirrors how
// BuildBQTree itself never stores a tile's coordinates either, deriving
// them purely from the traversal path.
func (bq *BQTree) Serialize() []byte {
	switch {
	case bq.rootFull:
		return []byte{bqTagFull}
	case !bq.hasTree:
		return []byte{bqTagEmpty}
	default:
		buf := []byte{bqTagInner}
		return bq.appendNode(buf, bq.rootIdx)
	}
}

func (bq *BQTree) appendNode(buf []byte, idx int) []byte {
	n := bq.nodes[idx]
	for _, s := range n.children {
		switch s.kind {
		case bqEmpty:
			buf = append(buf, bqTagEmpty)
		case bqFull:
			buf = append(buf, bqTagFull)
		case bqInner:
			buf = append(buf, bqTagInner)
			buf = bq.appendNode(buf, s.child)
		}
	}
	return buf
}

// DeserializeBQTree decodes a tree previously written by Serialize.
func DeserializeBQTree(data []byte) (*BQTree, error) {
	if len(data) == 0 {
		return nil, ErrCorruptBQTree
	}
	t := &BQTree{}
	switch data[0] {
	case bqTagEmpty:
		if len(data) != 1 {
			return nil, ErrCorruptBQTree
		}
		return t, nil
	case bqTagFull:
		if len(data) != 1 {
			return nil, ErrCorruptBQTree
		}
		t.rootFull = true
		return t, nil
	case bqTagInner:
		idx, next, err := t.decodeNode(data, 1, Tile{0, 0, 0})
		if err != nil {
			return nil, err
		}
		if next != len(data) {
			return nil, ErrCorruptBQTree
		}
		t.rootIdx = idx
		t.hasTree = true
		return t, nil
	default:
		return nil, ErrCorruptBQTree
	}
}

func (t *BQTree) decodeNode(data []byte, pos int, tile Tile) (idx int, next int, err error) {
	n := bqNode{tile: tile}
	for q := 0; q < 4; q++ {
		if pos >= len(data) {
			return 0, 0, ErrCorruptBQTree
		}
		tag := data[pos]
		pos++
		switch tag {
		case bqTagEmpty:
			n.children[q] = bqSlot{kind: bqEmpty}
		case bqTagFull:
			n.children[q] = bqSlot{kind: bqFull}
		case bqTagInner:
			childIdx, childNext, err := t.decodeNode(data, pos, child(tile, uint8(q)))
			if err != nil {
				return 0, 0, err
			}
			pos = childNext
			n.children[q] = bqSlot{kind: bqInner, child: childIdx}
		default:
			return 0, 0, ErrCorruptBQTree
		}
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1, pos, nil
}
