package nodeidx

import (
	"bytes"
	"errors"
	"testing"
)

type byteReaderAt struct{ b []byte }

func (r byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, r.b[off:])
	return n, nil
}

func buildIndex(t *testing.T, opts ...Option) (*Builder, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	idx := &bytes.Buffer{}
	dat := &bytes.Buffer{}
	return NewBuilder(idx, dat, opts...), idx, dat
}

func openReader(t *testing.T, idx, dat *bytes.Buffer) *Reader {
	t.Helper()
	r, err := Open(idx.Bytes(), byteReaderAt{dat.Bytes()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r
}

func TestRoundTrip(t *testing.T) {
	b, idx, dat := buildIndex(t)
	nodes := []struct {
		ID   int64
		X, Y uint32
	}{
		{1, 10, 20},
		{2, 11, 25},
		{5, 1000, 2000},
		{1000000, 5, 5},
	}
	for _, n := range nodes {
		if err := b.Push(n.ID, n.X, n.Y); err != nil {
			t.Fatalf("push %d: %v", n.ID, err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	r := openReader(t, idx, dat)
	for _, n := range nodes {
		x, y, ok, err := r.Get(n.ID)
		if err != nil {
			t.Fatalf("get %d: %v", n.ID, err)
		}
		if !ok || x != n.X || y != n.Y {
			t.Fatalf("get %d: want (%d,%d) got (%d,%d) ok=%v", n.ID, n.X, n.Y, x, y, ok)
		}
	}
}

func TestGetMissingID(t *testing.T) {
	b, idx, dat := buildIndex(t)
	_ = b.Push(1, 1, 1)
	_ = b.Push(10, 2, 2)
	_ = b.Finish()

	r := openReader(t, idx, dat)
	_, _, ok, err := r.Get(5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss for id 5")
	}
	_, _, ok, err = r.Get(999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss for id 999 past end")
	}
}

func TestNegativeIDFolding(t *testing.T) {
	b, idx, dat := buildIndex(t)
	if err := b.Push(-5, 7, 9); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	r := openReader(t, idx, dat)
	x, y, ok, err := r.Get(5)
	if err != nil || !ok || x != 7 || y != 9 {
		t.Fatalf("want (7,9) ok=true, got (%d,%d) ok=%v err=%v", x, y, ok, err)
	}
	x, y, ok, err = r.Get(-5)
	if err != nil || !ok || x != 7 || y != 9 {
		t.Fatalf("negative lookup: want (7,9) ok=true, got (%d,%d) ok=%v err=%v", x, y, ok, err)
	}
}

func TestExactDuplicatePushIgnored(t *testing.T) {
	b, idx, dat := buildIndex(t)
	if err := b.Push(1, 10, 20); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := b.Push(1, 10, 20); err != nil {
		t.Fatalf("exact duplicate push should be ignored, got: %v", err)
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	r := openReader(t, idx, dat)
	x, y, ok, err := r.Get(1)
	if err != nil || !ok || x != 10 || y != 20 {
		t.Fatalf("want (10,20), got (%d,%d) ok=%v err=%v", x, y, ok, err)
	}
}

func TestInconsistentDuplicateRejected(t *testing.T) {
	b, _, _ := buildIndex(t)
	if err := b.Push(1, 10, 20); err != nil {
		t.Fatalf("push: %v", err)
	}
	err := b.Push(1, 11, 20)
	if !errors.Is(err, ErrInconsistentDuplicate) {
		t.Fatalf("expected ErrInconsistentDuplicate, got %v", err)
	}
}

func TestBatchQueryUnsortedWithDuplicates(t *testing.T) {
	b, idx, dat := buildIndex(t)
	ids := []struct {
		ID   int64
		X, Y uint32
	}{
		{1, 1, 1}, {2, 2, 2}, {3, 3, 3}, {4, 4, 4}, {100, 100, 100},
	}
	for _, n := range ids {
		_ = b.Push(n.ID, n.X, n.Y)
	}
	_ = b.Finish()

	r := openReader(t, idx, dat)
	queries := []int64{100, 3, 3, 1, 999, 2}
	res, err := r.GetBatch(queries)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	want := map[int64][2]uint32{1: {1, 1}, 2: {2, 2}, 3: {3, 3}, 100: {100, 100}}
	for i, q := range queries {
		exp, shouldFind := want[q]
		if res[i].OK != shouldFind {
			t.Fatalf("query %d (id=%d): ok=%v want=%v", i, q, res[i].OK, shouldFind)
		}
		if shouldFind && (res[i].X != exp[0] || res[i].Y != exp[1]) {
			t.Fatalf("query %d (id=%d): got (%d,%d) want (%d,%d)", i, q, res[i].X, res[i].Y, exp[0], exp[1])
		}
	}
}

// TestBatchQueryMissingIDDoesNotStarveLaterIDs reproduces the scenario
// where a queried id is absent but falls between two present ids within
// the same span: the missing id must not stall the batch cursor and
// starve ids after it in sorted order.
func TestBatchQueryMissingIDDoesNotStarveLaterIDs(t *testing.T) {
	b, idx, dat := buildIndex(t)
	ids := []struct {
		ID   int64
		X, Y uint32
	}{
		{1, 1, 1}, {2, 2, 2}, {3, 3, 3}, {4, 4, 4}, {100, 100, 100},
	}
	for _, n := range ids {
		_ = b.Push(n.ID, n.X, n.Y)
	}
	_ = b.Finish()

	r := openReader(t, idx, dat)
	queries := []int64{2, 50, 100}
	res, err := r.GetBatch(queries)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if !res[0].OK || res[0].X != 2 || res[0].Y != 2 {
		t.Fatalf("id 2: want (2,2) ok=true, got (%d,%d) ok=%v", res[0].X, res[0].Y, res[0].OK)
	}
	if res[1].OK {
		t.Fatalf("id 50: want ok=false (never pushed), got ok=true")
	}
	if !res[2].OK || res[2].X != 100 || res[2].Y != 100 {
		t.Fatalf("id 100: want (100,100) ok=true, got (%d,%d) ok=%v — a missing id earlier in the batch must not starve it", res[2].X, res[2].Y, res[2].OK)
	}
}

// TestArtificialSpanSplit reproduces the scenario where id gaps are all 1
// but a pair of huge coordinate jumps forces the builder to split into two
// spans once the current span's payload would exceed its byte budget.
func TestArtificialSpanSplit(t *testing.T) {
	b, idx, _ := buildIndex(t, WithSpanByteBudget(16))
	const big = 1 << 28
	nodes := []struct {
		ID   int64
		X, Y uint32
	}{
		{42, 2, 3},
		{43, 2, 7},
		{44, big + 14, big + 15},
		{45, big + 16, big + 17},
	}
	for _, n := range nodes {
		if err := b.Push(n.ID, n.X, n.Y); err != nil {
			t.Fatalf("push %d: %v", n.ID, err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	spanCount := idx.Len() / spanRecordSize
	if spanCount != 2 {
		t.Fatalf("expected 2 spans, got %d", spanCount)
	}
}

func TestNonMonotonicPushRejected(t *testing.T) {
	b, _, _ := buildIndex(t)
	_ = b.Push(10, 1, 1)
	err := b.Push(5, 1, 1)
	if !errors.Is(err, ErrNonMonotonicID) {
		t.Fatalf("expected ErrNonMonotonicID, got %v", err)
	}
}
