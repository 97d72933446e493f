package hammervdb

import (
	"time"

	"github.com/xDarkicex/hammervdb/internal/anntree"
	"github.com/xDarkicex/hammervdb/internal/filter"
	internalns "github.com/xDarkicex/hammervdb/internal/namespace"
)

// Result is one search hit, ordered by ascending Hamming distance from the
// query vector.
type Result = anntree.Result

// KV is a single piece of record metadata.
type KV = filter.KV

// Filter is a boolean expression over record metadata, built with the
// constructors below (Eq, In, Gt, Gte, Lt, Lte, And, Or).
type Filter = filter.Filter

// Value constructors, re-exported so callers never need to import
// internal/filter directly.
var (
	StringValue = filter.StringValue
	IntValue    = filter.IntValue
	FloatValue  = filter.FloatValue
)

// Filter constructors, re-exported from internal/filter.
var (
	Eq  = filter.Eq
	In  = filter.In
	Gt  = filter.Gt
	Gte = filter.Gte
	Lt  = filter.Lt
	Lte = filter.Lte
	And = filter.And
	Or  = filter.Or
)

// NamespaceStats reports point-in-time counters for one namespace.
type NamespaceStats struct {
	Name    string
	Version int
}

// DatabaseStats reports database-wide counters.
type DatabaseStats struct {
	NamespaceCount int
	Namespaces     map[string]NamespaceStats
	Timestamp      time.Time
}

// Namespace is a handle to one open namespace: its own ANN tree and WAL,
// addressed by name under a Database.
type Namespace struct {
	inner *internalns.Namespace
}

// Name returns the namespace's name.
func (ns *Namespace) Name() string { return ns.inner.Name }

// Version returns the namespace's currently active version number.
func (ns *Namespace) Version() int { return ns.inner.Version }

// Ingest appends one (vector, metadata) pair to this namespace's WAL.
func (ns *Namespace) Ingest(vector []float32, kvs []KV) error {
	return ns.inner.Ingest(vector, kvs)
}

// IngestBatch appends vectors and kvLists as a single WAL row: one group
// committed together under one content hash.
func (ns *Namespace) IngestBatch(vectors [][]float32, kvLists [][]KV) error {
	return ns.inner.IngestBatch(vectors, kvLists)
}

// Query runs a filtered top-k ANN search against this namespace's current
// committed state. alpha <= 0 uses anntree.DefaultAlpha (4); the
// namespace's WithAlpha setting is not consulted.
func (ns *Namespace) Query(vector []float32, f Filter, topK, alpha int) ([]Result, error) {
	return ns.inner.Query(vector, f, topK, alpha)
}

// Commit drains pending WAL entries into the ANN tree.
func (ns *Namespace) Commit() error {
	return ns.inner.Commit()
}
