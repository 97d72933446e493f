package namespace

import (
	"fmt"
	"time"

	"github.com/xDarkicex/hammervdb/internal/obs"
)

// RecoverPointInTime creates a new namespace version containing only
// records whose source WAL entry was committed with added_ts < ts, both
// taken at whole-second resolution (an entry appended in ts's own second
// is not included), then
// atomically retargets `current` to it. It returns the freshly opened
// namespace; the caller is responsible for swapping its own handle to the
// returned value and closing the old one.
func (ns *Namespace) RecoverPointInTime(ts time.Time, metrics *obs.Metrics) (*Namespace, error) {
	start := time.Now()
	next, err := ns.recoverLocked(ts, metrics)
	if metrics != nil {
		metrics.PITRRuns.Inc()
		metrics.PITRLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PITRErrors.Inc()
		}
	}
	return next, err
}

func (ns *Namespace) recoverLocked(ts time.Time, metrics *obs.Metrics) (*Namespace, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	versions, err := listVersions(ns.Root)
	if err != nil {
		return nil, err
	}
	nStar := maxVersion(versions) + 1

	versionDir, err := createVersionDir(ns.Root, nStar)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: creating version %d: %w", ns.Name, nStar, err)
	}

	fresh, err := openAt(ns.Name, ns.Root, versionDir, nStar, ns.Capacity, metrics, ns.breaker)
	if err != nil {
		return nil, err
	}

	entries, err := ns.wal.CommittedBefore(ts)
	if err != nil {
		fresh.Close()
		return nil, err
	}

	for _, entry := range entries {
		for i, qv := range entry.Vectors {
			id, err := newRecordID()
			if err != nil {
				fresh.Close()
				return nil, err
			}
			if err := fresh.tree.Insert(qv, id, entry.KVs[i]); err != nil {
				fresh.Close()
				return nil, err
			}
		}
		if _, err := fresh.wal.AppendQuantized(entry.Vectors, entry.KVs); err != nil {
			fresh.Close()
			return nil, err
		}
		// entry.Hash is the deterministic content hash already computed by
		// the source WAL; AppendQuantized recomputes the identical value
		// from the same group, so it is safe to mark by it directly
		// rather than re-deriving it from the new row.
		if err := fresh.wal.MarkCommitted(entry.Hash); err != nil {
			fresh.Close()
			return nil, err
		}
	}

	if err := fresh.tree.Calibrate(); err != nil {
		fresh.Close()
		return nil, err
	}

	if err := swapCurrentAtomic(ns.Root, nStar); err != nil {
		fresh.Close()
		return nil, err
	}

	return fresh, nil
}
