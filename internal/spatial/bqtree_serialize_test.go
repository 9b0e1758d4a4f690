package spatial

import "testing"

func TestBQTreeSerializeRoundTripEmpty(t *testing.T) {
	bq := BuildBQTree(nil)
	decoded, err := DeserializeBQTree(bq.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if decoded.Contains(Tile{1, 1, 2}) {
		t.Fatalf("want empty tree to contain nothing")
	}
}

func TestBQTreeSerializeRoundTripWholeWorld(t *testing.T) {
	bq := BuildBQTree([]Tile{{0, 0, 0}})
	decoded, err := DeserializeBQTree(bq.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !decoded.Contains(Tile{7, 3, 6}) {
		t.Fatalf("want arbitrary descendant contained")
	}
}

func TestBQTreeSerializeRoundTripTwoLeaves(t *testing.T) {
	bq := BuildBQTree([]Tile{{0, 1, 2}, {3, 3, 2}})
	decoded, err := DeserializeBQTree(bq.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !decoded.Contains(Tile{0, 1, 2}) || !decoded.Contains(Tile{3, 3, 2}) {
		t.Fatalf("want both leaves contained")
	}
	if decoded.Contains(Tile{0, 0, 0}) {
		t.Fatalf("want root not fully contained")
	}
	if decoded.Contains(Tile{1, 1, 2}) {
		t.Fatalf("want untouched sibling tile not contained")
	}
}

func TestDeserializeBQTreeRejectsTruncated(t *testing.T) {
	bq := BuildBQTree([]Tile{{0, 1, 2}, {3, 3, 2}})
	data := bq.Serialize()
	if _, err := DeserializeBQTree(data[:len(data)-1]); err == nil {
		t.Fatalf("want error for truncated input")
	}
}
