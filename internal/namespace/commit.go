package namespace

import (
	"errors"
	"time"

	"github.com/xDarkicex/hammervdb/internal/block"
)

// pendingWindowSeconds bounds how far back Pending looks for uncommitted
// entries. Commit drains everything not yet committed, so this window is
// effectively unbounded in practice.
const pendingWindowSeconds = 10 * 365 * 24 * 3600

// Commit drains pending WAL entries, inserts each into the ANN tree under
// a fresh id, calibrates once, and marks every consumed entry committed.
// A circuit breaker guards the pass: repeated failed passes (any error,
// block store or WAL) trip it and further commits are rejected until it
// cools down.
func (ns *Namespace) Commit() error {
	start := time.Now()
	err := ns.breaker.Execute(func() error {
		ns.mu.Lock()
		defer ns.mu.Unlock()
		return ns.commitLocked()
	})
	if ns.metrics != nil {
		ns.metrics.CommitRuns.Inc()
		ns.metrics.CommitLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			ns.metrics.CommitErrors.Inc()
		}
	}
	return err
}

func (ns *Namespace) commitLocked() error {
	pending, err := ns.wal.Pending(pendingWindowSeconds)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	for _, entry := range pending {
		for i, qv := range entry.Vectors {
			id, err := newRecordID()
			if err != nil {
				return err
			}
			if err := ns.tree.Insert(qv, id, entry.KVs[i]); err != nil {
				if errors.Is(err, block.ErrCorruptChain) {
					ns.refused.Store(true)
				}
				return err
			}
			if ns.metrics != nil {
				ns.metrics.CommitInserts.Inc()
			}
		}
	}

	if err := ns.tree.Calibrate(); err != nil {
		return err
	}

	for _, entry := range pending {
		if err := ns.wal.MarkCommitted(entry.Hash); err != nil {
			return err
		}
	}
	return nil
}
