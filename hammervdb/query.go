package hammervdb

import (
	"time"
)

// Ingest appends one (vector, metadata) pair to a namespace's WAL. The
// record becomes query-visible after the next Commit.
func (db *Database) Ingest(name string, vector []float32, kvs []KV) error {
	ns, err := db.Namespace(name)
	if err != nil {
		return err
	}
	return wrapError("namespace", "Ingest", ns.Ingest(vector, kvs))
}

// IngestBatch appends vectors and kvLists as a single WAL row: one group
// committed together under one content hash.
func (db *Database) IngestBatch(name string, vectors [][]float32, kvLists [][]KV) error {
	ns, err := db.Namespace(name)
	if err != nil {
		return err
	}
	return wrapError("namespace", "IngestBatch", ns.IngestBatch(vectors, kvLists))
}

// Query runs a filtered top-k ANN search against a namespace's current
// committed state. alpha <= 0 uses anntree.DefaultAlpha (4); the
// namespace's WithAlpha setting is not consulted.
func (db *Database) Query(name string, vector []float32, f Filter, topK, alpha int) ([]Result, error) {
	if topK <= 0 {
		return nil, ErrInvalidK
	}
	ns, err := db.Namespace(name)
	if err != nil {
		return nil, err
	}
	results, err := ns.Query(vector, f, topK, alpha)
	if err != nil {
		return nil, wrapError("namespace", "Query", err)
	}
	return results, nil
}

// Commit drains a namespace's pending WAL entries into its ANN tree.
// Callers drive commit scheduling; hammervdb does not run a background
// ticker.
func (db *Database) Commit(name string) error {
	ns, err := db.Namespace(name)
	if err != nil {
		return err
	}
	return wrapError("namespace", "Commit", ns.Commit())
}

// RecoverPointInTime creates a new version of the named namespace
// containing only committed records whose WAL append fell in a whole
// second strictly before ts's second (WAL timestamps and ts are compared
// at one-second resolution), swaps `current`
// to it, and replaces the database's handle for that namespace.
func (db *Database) RecoverPointInTime(name string, ts time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	ns, ok := db.namespaces[name]
	if !ok {
		return ErrNamespaceNotFound
	}

	fresh, err := ns.inner.RecoverPointInTime(ts, db.metrics)
	if err != nil {
		return wrapError("namespace", "RecoverPointInTime", err)
	}
	if err := ns.inner.Close(); err != nil {
		fresh.Close()
		return wrapError("namespace", "RecoverPointInTime", err)
	}
	db.namespaces[name] = &Namespace{inner: fresh}
	return nil
}
