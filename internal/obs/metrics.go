// Package obs holds the Prometheus metrics, health checker, and circuit
// breaker shared across namespaces.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram this database exposes.
type Metrics struct {
	Ingests        prometheus.Counter
	CommitRuns     prometheus.Counter
	CommitInserts  prometheus.Counter
	CommitErrors   prometheus.Counter
	CommitLatency  prometheus.Histogram
	SearchQueries  prometheus.Counter
	SearchErrors   prometheus.Counter
	SearchLatency  prometheus.Histogram
	PITRRuns       prometheus.Counter
	PITRErrors     prometheus.Counter
	PITRLatency    prometheus.Histogram
}

// NewMetrics registers and returns the metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		Ingests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_ingests_total",
			Help: "Total vectors appended to a WAL",
		}),
		CommitRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_commit_runs_total",
			Help: "Total commit-service passes",
		}),
		CommitInserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_commit_inserts_total",
			Help: "Total records inserted into ANN trees by commits",
		}),
		CommitErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_commit_errors_total",
			Help: "Total commit passes that failed",
		}),
		CommitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "hammervdb_commit_latency_seconds",
			Help: "Commit pass latency",
		}),
		SearchQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_search_queries_total",
			Help: "Total search queries",
		}),
		SearchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_search_errors_total",
			Help: "Total search queries that failed",
		}),
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "hammervdb_search_latency_seconds",
			Help: "Search latency",
		}),
		PITRRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_pitr_runs_total",
			Help: "Total point-in-time recovery runs",
		}),
		PITRErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hammervdb_pitr_errors_total",
			Help: "Total point-in-time recovery runs that failed",
		}),
		PITRLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "hammervdb_pitr_latency_seconds",
			Help: "Point-in-time recovery latency",
		}),
	}
}
