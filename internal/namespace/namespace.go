// Package namespace owns one ANN tree plus one WAL per namespace, serves
// ingest/query/PITR requests, and resolves the `current` version
// symlink.
package namespace

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/xDarkicex/hammervdb/internal/anntree"
	"github.com/xDarkicex/hammervdb/internal/block"
	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/obs"
	"github.com/xDarkicex/hammervdb/internal/quant"
	"github.com/xDarkicex/hammervdb/internal/wal"
)

// Namespace owns one ANN tree and one WAL. Reads and writes are
// serialized at this level with a reader/writer lock: commits and
// ingests take the writer lock; queries on a quiescent tree take the
// reader lock, safe because node records are immutable between commits.
type Namespace struct {
	mu sync.RWMutex

	Name     string
	Root     string
	Version  int
	Capacity int

	store *block.Store
	tree  *anntree.Tree
	wal   *wal.WAL

	breaker *obs.CircuitBreaker
	metrics *obs.Metrics

	// refused latches once a commit or query surfaces block.ErrCorruptChain,
	// so health probes keep reporting the namespace as refused even after
	// the failing operation itself has returned.
	refused atomic.Bool
}

// Open resolves root's current version (bootstrapping v0 if new) and
// opens its block store and WAL.
func Open(name, root string, capacity int, metrics *obs.Metrics, breaker *obs.CircuitBreaker) (*Namespace, error) {
	versionDir, version, err := currentVersionDir(root)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: resolving current version: %w", name, err)
	}
	return openAt(name, root, versionDir, version, capacity, metrics, breaker)
}

func openAt(name, root, versionDir string, version, capacity int, metrics *obs.Metrics, breaker *obs.CircuitBreaker) (*Namespace, error) {
	store, err := block.Open(filepath.Join(versionDir, vectorsFileName))
	if err != nil {
		return nil, fmt.Errorf("namespace %s: opening block store: %w", name, err)
	}
	w, err := wal.Open(filepath.Join(versionDir, walDirName, walFileName))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("namespace %s: opening wal: %w", name, err)
	}

	return &Namespace{
		Name:     name,
		Root:     root,
		Version:  version,
		Capacity: capacity,
		store:    store,
		tree:     anntree.Open(store, capacity),
		wal:      w,
		breaker:  breaker,
		metrics:  metrics,
	}, nil
}

// CircuitClosed reports whether this namespace's commit circuit breaker is
// currently closed (i.e. not refusing commits).
func (ns *Namespace) CircuitClosed() bool {
	return ns.breaker.State() == obs.CircuitClosed
}

// Refused reports whether a commit or query has ever surfaced a corrupt
// block chain for this namespace. It latches true and does not clear on
// its own; recovering onto a fresh version via RecoverPointInTime returns
// a new Namespace whose Refused starts false.
func (ns *Namespace) Refused() bool {
	return ns.refused.Load()
}

// Close releases the namespace's block store and WAL.
func (ns *Namespace) Close() error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if err := ns.wal.Close(); err != nil {
		return err
	}
	return ns.store.Close()
}

// Ingest appends one vector+metadata pair to the WAL, as a single-item
// group. The record becomes query-visible after the next commit.
func (ns *Namespace) Ingest(vector []float32, kvs []filter.KV) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	_, err := ns.wal.Append([][]float32{vector}, [][]filter.KV{kvs})
	if err != nil {
		return err
	}
	if ns.metrics != nil {
		ns.metrics.Ingests.Inc()
	}
	return nil
}

// IngestBatch appends vectors and kvLists as a single WAL row: one group
// committed together under one content hash.
func (ns *Namespace) IngestBatch(vectors [][]float32, kvLists [][]filter.KV) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, err := ns.wal.Append(vectors, kvLists); err != nil {
		return err
	}
	if ns.metrics != nil {
		ns.metrics.Ingests.Add(float64(len(vectors)))
	}
	return nil
}

// Query quantizes vector and runs a filtered top-k ANN search. Results
// are deduplicated by record id on the return path, tolerating the
// duplicate ids a replayed commit can produce.
func (ns *Namespace) Query(vector []float32, f filter.Filter, topK, alpha int) ([]anntree.Result, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	qv, err := quant.Quantize(vector)
	if err != nil {
		if ns.metrics != nil {
			ns.metrics.SearchErrors.Inc()
		}
		return nil, err
	}

	results, err := ns.tree.Search(qv, topK, f, alpha)
	if ns.metrics != nil {
		ns.metrics.SearchQueries.Inc()
		if err != nil {
			ns.metrics.SearchErrors.Inc()
		}
	}
	if err != nil {
		if errors.Is(err, block.ErrCorruptChain) {
			ns.refused.Store(true)
		}
		return nil, err
	}

	seen := make(map[[16]byte]bool, len(results))
	out := results[:0]
	for _, r := range results {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out, nil
}
