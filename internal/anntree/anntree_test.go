package anntree

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/hammervdb/internal/block"
	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
	"github.com/xDarkicex/hammervdb/internal/util"
)

func newTestTree(t *testing.T, capacity int) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.bin")
	store, err := block.Open(path)
	if err != nil {
		t.Fatalf("block.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return Open(store, capacity)
}

func randomQV(rng *rand.Rand, bytes int) quant.QV {
	qv := make(quant.QV, bytes)
	rng.Read(qv)
	return qv
}

func recordID(n byte) util.RecordID {
	var id util.RecordID
	id[15] = n
	return id
}

func TestModesMajority(t *testing.T) {
	a := quant.QV{0b00000001}
	b := quant.QV{0b00000001}
	c := quant.QV{0b00000000}
	m := Modes([]quant.QV{a, b, c})
	if m[0] != 0b00000001 {
		t.Fatalf("expected majority bit set, got %08b", m[0])
	}
}

func TestModesTieBreaksZero(t *testing.T) {
	a := quant.QV{0b00000001}
	b := quant.QV{0b00000000}
	m := Modes([]quant.QV{a, b})
	if m[0] != 0 {
		t.Fatalf("expected tie to resolve to 0, got %08b", m[0])
	}
}

func TestNodeSerializeRoundTrip(t *testing.T) {
	n := NewLeaf()
	n.IsRoot = true
	n.Vectors = []quant.QV{{0x01, 0x02}, {0xFF, 0x00}}
	n.IDs = []util.RecordID{recordID(1), recordID(2)}
	v1, _ := filter.FloatValue(0.5)
	n.Metadata = [][]filter.KV{
		{{Key: "class", Value: filter.StringValue("a")}},
		{{Key: "score", Value: v1}},
	}
	n.recomputeLeafSummary()

	raw, err := Serialize(n)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.Kind != n.Kind || got.IsRoot != n.IsRoot {
		t.Fatalf("kind/isroot mismatch")
	}
	if len(got.Vectors) != len(n.Vectors) || !quant.Equal(got.Vectors[0], n.Vectors[0]) {
		t.Fatalf("vectors mismatch: %v vs %v", got.Vectors, n.Vectors)
	}
	if got.IDs[0] != n.IDs[0] || got.IDs[1] != n.IDs[1] {
		t.Fatalf("ids mismatch")
	}
	if got.Metadata[0][0].Value.String != "a" {
		t.Fatalf("metadata string mismatch")
	}
	if !got.Summary.Equal(n.Summary) {
		t.Fatalf("summary mismatch")
	}
}

func TestInternalNodeSerializeRoundTrip(t *testing.T) {
	n := NewInternal()
	n.Vectors = []quant.QV{{0x01}, {0x02}}
	n.Children = []uint64{5, 9}
	n.ParentID = 3

	raw, err := Serialize(n)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.ParentID != 3 || len(got.Children) != 2 || got.Children[1] != 9 {
		t.Fatalf("internal node round-trip mismatch: %+v", got)
	}
}

func TestInsertSingleAndSearch(t *testing.T) {
	tr := newTestTree(t, 8)
	qv, err := quant.Quantize(constVector(128, 1.0))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	kvs := []filter.KV{{Key: "k", Value: filter.StringValue("v")}}
	if err := tr.Insert(qv, recordID(1), kvs); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := tr.Search(qv, 1, filter.Eq("k", "v"), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
	if results[0].ID != recordID(1) {
		t.Fatalf("unexpected id %v", results[0].ID)
	}
}

func constVector(d int, v float32) []float32 {
	out := make([]float32, d)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSplitTriggersAndCalibrateClearsFull(t *testing.T) {
	capacity := 8
	tr := newTestTree(t, capacity)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 40; i++ {
		qv := randomQV(rng, 16)
		kvs := []filter.KV{{Key: "i", Value: filter.IntValue(int64(i))}}
		if err := tr.Insert(qv, recordID(byte(i)), kvs); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	if err := tr.Calibrate(); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	summary, err := tr.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Depth < 2 {
		t.Fatalf("expected depth >= 2, got %d", summary.Depth)
	}
	if summary.AnyFull {
		t.Fatalf("expected no full node after calibrate")
	}
	if summary.LeafCount < 1 {
		t.Fatalf("expected at least one leaf")
	}
}

func TestParentChildConsistencyAfterInserts(t *testing.T) {
	capacity := 4
	tr := newTestTree(t, capacity)
	rng := rand.New(rand.NewSource(7))

	ids := make(map[util.RecordID]bool)
	for i := 0; i < 30; i++ {
		qv := randomQV(rng, 16)
		id := recordID(byte(i))
		ids[id] = true
		if err := tr.Insert(qv, id, nil); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	root, err := tr.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if err := checkParentChild(tr, root); err != nil {
		t.Fatalf("parent/child consistency violated: %v", err)
	}
}

func checkParentChild(tr *Tree, node *Node) error {
	if node.Kind == KindLeaf {
		return nil
	}
	if len(node.Vectors) != len(node.Children) {
		return ErrCapacityInvariant
	}
	for _, childID := range node.Children {
		child, err := tr.loadNode(childID)
		if err != nil {
			return err
		}
		if child.ParentID != node.SelfID {
			return ErrCapacityInvariant
		}
		if err := checkParentChild(tr, child); err != nil {
			return err
		}
	}
	return nil
}

func TestRangeFilterPrunesDuringSearch(t *testing.T) {
	capacity := 8
	tr := newTestTree(t, capacity)
	rng := rand.New(rand.NewSource(3))

	scores := []float32{0.1, 0.5, 0.9}
	for i, sc := range scores {
		qv := randomQV(rng, 16)
		v, err := filter.FloatValue(sc)
		if err != nil {
			t.Fatalf("FloatValue: %v", err)
		}
		kvs := []filter.KV{{Key: "score", Value: v}}
		if err := tr.Insert(qv, recordID(byte(i)), kvs); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	query := randomQV(rng, 16)
	results, err := tr.Search(query, 10, filter.Gte("score", 0.6), 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	for _, r := range results {
		for _, kv := range r.KVs {
			if kv.Key == "score" && kv.Value.Float < 0.6 {
				t.Fatalf("returned record below filter bound: %v", kv.Value.Float)
			}
		}
	}
}
