package hammervdb

import (
	"testing"
	"time"
)

func vec128(sign float32) []float32 {
	v := make([]float32, 128)
	for i := range v {
		v[i] = sign
	}
	return v
}

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(WithStoragePath(t.TempDir()), WithMetrics(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateNamespaceRejectsDuplicate(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.CreateNamespace("items"); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}
	if _, err := db.CreateNamespace("items"); err != ErrNamespaceExists {
		t.Fatalf("expected ErrNamespaceExists, got %v", err)
	}
}

func TestNamespaceNotFound(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.Namespace("missing"); err != ErrNamespaceNotFound {
		t.Fatalf("expected ErrNamespaceNotFound, got %v", err)
	}
}

func TestIngestCommitQueryThroughDatabase(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.CreateNamespace("items", WithCapacity(8)); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}

	if err := db.Ingest("items", vec128(1.0), []KV{}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := db.Commit("items"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	results, err := db.Query("items", vec128(1.0), nil, 5, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestQueryRejectsNonPositiveK(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.CreateNamespace("items"); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}
	if _, err := db.Query("items", vec128(1.0), nil, 0, 0); err != ErrInvalidK {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
}

func TestRecoverPointInTimeSwapsNamespaceHandle(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.CreateNamespace("items", WithCapacity(8)); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}

	if err := db.Ingest("items", vec128(1.0), nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := db.Commit("items"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	before, _ := db.Namespace("items")
	beforeVersion := before.Version()

	// WAL timestamps have whole-second resolution; a cutoff one second
	// ahead lies in a later second than the record's append.
	if err := db.RecoverPointInTime("items", time.Now().Add(time.Second)); err != nil {
		t.Fatalf("RecoverPointInTime: %v", err)
	}

	after, err := db.Namespace("items")
	if err != nil {
		t.Fatalf("Namespace after recovery: %v", err)
	}
	if after.Version() != beforeVersion+1 {
		t.Fatalf("expected version %d after recovery, got %d", beforeVersion+1, after.Version())
	}

	results, err := after.Query(vec128(1.0), nil, 5, 0)
	if err != nil {
		t.Fatalf("Query after recovery: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected recovered record to survive, got %d results", len(results))
	}
}
