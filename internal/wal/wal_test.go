package wal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
)

func newTestWAL(t *testing.T) *WAL {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wal.db")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func vec128() []float32 {
	v := make([]float32, 128)
	for i := range v {
		v[i] = 1.0
	}
	return v
}

func TestAppendAndPending(t *testing.T) {
	w := newTestWAL(t)
	kvs := []filter.KV{{Key: "k", Value: filter.StringValue("v")}}
	if _, err := w.Append([][]float32{vec128()}, [][]filter.KV{kvs}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	pending, err := w.Pending(3600)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(pending))
	}
	if pending[0].KVs[0][0].Value.String != "v" {
		t.Fatalf("kv round-trip mismatch: %+v", pending[0].KVs)
	}
}

func TestAppendGroupsMultipleVectorsIntoOneRow(t *testing.T) {
	w := newTestWAL(t)
	kvsA := []filter.KV{{Key: "k", Value: filter.StringValue("a")}}
	kvsB := []filter.KV{{Key: "k", Value: filter.StringValue("b")}}
	if _, err := w.Append([][]float32{vec128(), vec128()}, [][]filter.KV{kvsA, kvsB}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	pending, err := w.Pending(3600)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending row for the grouped append, got %d", len(pending))
	}
	if len(pending[0].Vectors) != 2 || len(pending[0].KVs) != 2 {
		t.Fatalf("expected a 2-vector group, got %d vectors, %d kv-lists", len(pending[0].Vectors), len(pending[0].KVs))
	}
	if pending[0].KVs[0][0].Value.String != "a" || pending[0].KVs[1][0].Value.String != "b" {
		t.Fatalf("group kv order mismatch: %+v", pending[0].KVs)
	}
}

func TestMarkCommittedRemovesFromPending(t *testing.T) {
	w := newTestWAL(t)
	kvs := []filter.KV{{Key: "k", Value: filter.StringValue("v")}}
	hash, err := contentHash([]quant.QV{mustQuantize(t)}, [][]filter.KV{kvs})
	if err != nil {
		t.Fatalf("contentHash: %v", err)
	}
	if _, err := w.Append([][]float32{vec128()}, [][]filter.KV{kvs}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.MarkCommitted(hash); err != nil {
		t.Fatalf("MarkCommitted: %v", err)
	}

	pending, err := w.Pending(3600)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending entries after commit, got %d", len(pending))
	}

	committed, err := w.CommittedBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("CommittedBefore: %v", err)
	}
	if len(committed) != 1 {
		t.Fatalf("expected 1 committed entry, got %d", len(committed))
	}
}

func TestDuplicateAppendProducesTwoRows(t *testing.T) {
	w := newTestWAL(t)
	kvs := []filter.KV{{Key: "k", Value: filter.StringValue("v")}}
	if _, err := w.Append([][]float32{vec128()}, [][]filter.KV{kvs}); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if _, err := w.Append([][]float32{vec128()}, [][]filter.KV{kvs}); err != nil {
		t.Fatalf("Append 2: %v", err)
	}

	pending, err := w.Pending(3600)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows for duplicate append, got %d", len(pending))
	}
}

func mustQuantize(t *testing.T) quant.QV {
	t.Helper()
	// matches vec128()'s all-positive vector: every bit set.
	out := make(quant.QV, 16)
	for i := range out {
		out[i] = 0xFF
	}
	return out
}
