package hammervdb

import (
	"fmt"
	"path/filepath"
	"sync"

	internalns "github.com/xDarkicex/hammervdb/internal/namespace"
	"github.com/xDarkicex/hammervdb/internal/obs"
)

// DefaultCapacity is the per-node split threshold used when a namespace is
// created without WithCapacity.
const DefaultCapacity = 128

// Database manages a set of named namespaces rooted under one storage
// path, the way libravdb.Database manages collections.
type Database struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
	config     *Config
	metrics    *obs.Metrics
	breakers   *obs.CircuitBreakerManager
	health     *obs.HealthChecker
	closed     bool
}

// New creates a Database rooted at the configured storage path.
func New(opts ...Option) (*Database, error) {
	config := &Config{
		StoragePath:    "./data",
		MetricsEnabled: true,
		MaxNamespaces:  100,
	}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("hammervdb: applying option: %w", err)
		}
	}

	var metrics *obs.Metrics
	if config.MetricsEnabled {
		metrics = obs.NewMetrics()
	}

	db := &Database{
		namespaces: make(map[string]*Namespace),
		config:     config,
		metrics:    metrics,
		breakers:   obs.NewCircuitBreakerManager(),
	}
	db.health = obs.NewHealthChecker(db.probeNamespaces)
	return db, nil
}

// probeNamespaces reports the circuit state of every open namespace, for
// the health checker.
func (db *Database) probeNamespaces() []obs.NamespaceProbe {
	db.mu.RLock()
	defer db.mu.RUnlock()
	probes := make([]obs.NamespaceProbe, 0, len(db.namespaces))
	for name, ns := range db.namespaces {
		probes = append(probes, obs.NamespaceProbe{
			Name:          name,
			CircuitClosed: ns.inner.CircuitClosed(),
			Refused:       ns.inner.Refused(),
		})
	}
	return probes
}

// CreateNamespace opens (creating if new) the namespace called name,
// rooted at StoragePath/name.
func (db *Database) CreateNamespace(name string, opts ...NamespaceOption) (*Namespace, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if _, exists := db.namespaces[name]; exists {
		return nil, ErrNamespaceExists
	}
	if len(db.namespaces) >= db.config.MaxNamespaces {
		return nil, ErrTooManyNamespaces
	}

	nsConfig := &NamespaceConfig{Capacity: DefaultCapacity, Alpha: 4}
	for _, opt := range opts {
		if err := opt(nsConfig); err != nil {
			return nil, fmt.Errorf("hammervdb: applying namespace option: %w", err)
		}
	}

	breaker := db.breakers.GetOrCreate(name, obs.DefaultCircuitBreakerConfig(name))
	root := filepath.Join(db.config.StoragePath, name)
	inner, err := internalns.Open(name, root, nsConfig.Capacity, db.metrics, breaker)
	if err != nil {
		return nil, fmt.Errorf("hammervdb: opening namespace %s: %w", name, err)
	}

	ns := &Namespace{inner: inner}
	db.namespaces[name] = ns
	return ns, nil
}

// Namespace returns the already-open namespace called name.
func (db *Database) Namespace(name string) (*Namespace, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	ns, ok := db.namespaces[name]
	if !ok {
		return nil, ErrNamespaceNotFound
	}
	return ns, nil
}

// ListNamespaces returns the names of every open namespace.
func (db *Database) ListNamespaces() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.namespaces))
	for name := range db.namespaces {
		names = append(names, name)
	}
	return names
}

// Health returns the current aggregated health status.
func (db *Database) Health() *obs.HealthStatus {
	return db.health.Check()
}

// Stats returns database-wide statistics.
func (db *Database) Stats() *DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	stats := &DatabaseStats{
		NamespaceCount: len(db.namespaces),
		Namespaces:     make(map[string]NamespaceStats, len(db.namespaces)),
	}
	for name, ns := range db.namespaces {
		stats.Namespaces[name] = NamespaceStats{Name: name, Version: ns.Version()}
	}
	return stats
}

// Close closes every open namespace.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	var firstErr error
	for _, ns := range db.namespaces {
		if err := ns.inner.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	db.closed = true
	return firstErr
}
