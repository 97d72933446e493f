package wal

import (
	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
)

// AppendQuantized inserts a row whose vectors are already quantized QVs
// rather than raw floats, used by point-in-time recovery to replay a
// whole entry's group into a fresh namespace's WAL for bookkeeping
// without re-quantizing.
func (w *WAL) AppendQuantized(qvs []quant.QV, kvsList [][]filter.KV) (int64, error) {
	return w.appendGroup(qvs, kvsList)
}
