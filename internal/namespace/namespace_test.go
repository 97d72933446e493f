package namespace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/obs"
)

func vec128(sign float32) []float32 {
	v := make([]float32, 128)
	for i := range v {
		v[i] = sign
	}
	return v
}

func openTestNamespace(t *testing.T) *Namespace {
	t.Helper()
	root := t.TempDir()
	breaker := obs.NewCircuitBreaker(obs.DefaultCircuitBreakerConfig("test"))
	ns, err := Open("test", root, 8, nil, breaker)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ns.Close() })
	return ns
}

func TestOpenBootstrapsV0AndCurrentSymlink(t *testing.T) {
	root := t.TempDir()
	breaker := obs.NewCircuitBreaker(obs.DefaultCircuitBreakerConfig("boot"))
	ns, err := Open("boot", root, 8, nil, breaker)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ns.Close()

	if ns.Version != 0 {
		t.Fatalf("expected bootstrap version 0, got %d", ns.Version)
	}
	target, err := os.Readlink(filepath.Join(root, "current"))
	if err != nil {
		t.Fatalf("Readlink(current): %v", err)
	}
	if target != "v0" {
		t.Fatalf("expected current -> v0, got %q", target)
	}
	if _, err := os.Stat(filepath.Join(root, "v0", "vectors.bin")); err != nil {
		t.Fatalf("expected v0/vectors.bin to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "v0", "wal", "wal.db")); err != nil {
		t.Fatalf("expected v0/wal/wal.db to exist: %v", err)
	}
}

func TestIngestCommitQueryRoundTrip(t *testing.T) {
	ns := openTestNamespace(t)

	kvs := []filter.KV{{Key: "tag", Value: filter.StringValue("a")}}
	if err := ns.Ingest(vec128(1.0), kvs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := ns.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	results, err := ns.Query(vec128(1.0), nil, 5, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Distance != 0 {
		t.Fatalf("expected exact match at distance 0, got %d", results[0].Distance)
	}
}

func TestCommitWithNoPendingEntriesIsNoop(t *testing.T) {
	ns := openTestNamespace(t)
	if err := ns.Commit(); err != nil {
		t.Fatalf("Commit on empty wal: %v", err)
	}
	results, err := ns.Query(vec128(1.0), nil, 5, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestQueryDeduplicatesByRecordID(t *testing.T) {
	ns := openTestNamespace(t)
	if err := ns.Ingest(vec128(1.0), nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := ns.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	results, err := ns.Query(vec128(1.0), nil, 5, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	seen := make(map[[16]byte]bool)
	for _, r := range results {
		if seen[r.ID] {
			t.Fatalf("duplicate record id %v in results", r.ID)
		}
		seen[r.ID] = true
	}
}

// TestPointInTimeRecoveryExcludesLaterCommits exercises the time-cut
// contract: a record committed before the cutoff survives recovery, a
// record committed at or after it does not.
func TestPointInTimeRecoveryExcludesLaterCommits(t *testing.T) {
	ns := openTestNamespace(t)

	if err := ns.Ingest(vec128(1.0), []filter.KV{{Key: "gen", Value: filter.StringValue("old")}}); err != nil {
		t.Fatalf("Ingest A: %v", err)
	}
	if err := ns.Commit(); err != nil {
		t.Fatalf("Commit A: %v", err)
	}

	// WAL timestamps have whole-second resolution, so the cutoff must fall
	// in a later second than A's append.
	time.Sleep(1100 * time.Millisecond)
	cutoff := time.Now()

	if err := ns.Ingest(vec128(-1.0), []filter.KV{{Key: "gen", Value: filter.StringValue("new")}}); err != nil {
		t.Fatalf("Ingest B: %v", err)
	}
	if err := ns.Commit(); err != nil {
		t.Fatalf("Commit B: %v", err)
	}

	fresh, err := ns.RecoverPointInTime(cutoff, nil)
	if err != nil {
		t.Fatalf("RecoverPointInTime: %v", err)
	}
	defer fresh.Close()

	if fresh.Version != ns.Version+1 {
		t.Fatalf("expected recovery to create version %d, got %d", ns.Version+1, fresh.Version)
	}

	results, err := fresh.Query(vec128(1.0), nil, 10, 4)
	if err != nil {
		t.Fatalf("Query fresh: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly the pre-cutoff record, got %d results", len(results))
	}

	reopened, err := Open("test", ns.Root, ns.Capacity, nil, obs.NewCircuitBreaker(obs.DefaultCircuitBreakerConfig("test-reopen")))
	if err != nil {
		t.Fatalf("Open after PITR: %v", err)
	}
	defer reopened.Close()
	if reopened.Version != fresh.Version {
		t.Fatalf("expected current to now point at the recovered version %d, got %d", fresh.Version, reopened.Version)
	}
}
