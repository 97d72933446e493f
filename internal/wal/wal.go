// Package wal implements the write-ahead log: a small relational store
// with one table, operated in WAL journal mode with a long busy timeout,
// keyed by a deterministic content hash.
package wal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
)

// WAL is the pending/committed batch log for one namespace.
type WAL struct {
	db *sql.DB
}

// Entry is one appended row: a group of one or more (vector, metadata)
// pairs committed together under a single content hash. Vectors[i] pairs
// with KVs[i].
type Entry struct {
	ID          int64
	Hash        int64
	Vectors     []quant.QV
	KVs         [][]filter.KV
	AddedTS     time.Time
	CommittedTS *time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS wal (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	hash          INTEGER NOT NULL,
	payload_bytes BLOB NOT NULL,
	metadata_json TEXT NOT NULL,
	added_ts      INTEGER NOT NULL,
	committed_ts  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_wal_added_ts ON wal(added_ts);
CREATE INDEX IF NOT EXISTS idx_wal_hash ON wal(hash);
`

// Open opens or creates the WAL database at path in WAL journal mode with
// a long busy timeout.
func Open(path string) (*WAL, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("wal: opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("wal: creating schema: %w", err)
	}
	return &WAL{db: db}, nil
}

// Close releases the underlying database handle.
func (w *WAL) Close() error {
	return w.db.Close()
}

// contentHash computes the 64-bit deterministic content hash over a group
// of (QV, KV-list) pairs, bitcast to a signed integer for storage.
func contentHash(qvs []quant.QV, kvsList [][]filter.KV) (int64, error) {
	h := fnv.New64a()
	for _, qv := range qvs {
		h.Write(qv)
	}
	metaJSON, err := marshalKVGroups(kvsList)
	if err != nil {
		return 0, err
	}
	h.Write(metaJSON)
	return int64(h.Sum64()), nil
}

type kvJSON struct {
	Key   string      `json:"key"`
	Kind  int         `json:"kind"`
	Value interface{} `json:"value"`
}

func marshalKVsOne(kvs []filter.KV) []kvJSON {
	out := make([]kvJSON, len(kvs))
	for i, kv := range kvs {
		var v interface{}
		switch kv.Value.Kind {
		case filter.KindString:
			v = kv.Value.String
		case filter.KindInteger:
			v = kv.Value.Integer
		case filter.KindFloat:
			v = kv.Value.Float
		}
		out[i] = kvJSON{Key: kv.Key, Kind: int(kv.Value.Kind), Value: v}
	}
	return out
}

func unmarshalKVsOne(raw []kvJSON) ([]filter.KV, error) {
	out := make([]filter.KV, len(raw))
	for i, r := range raw {
		var value filter.Value
		switch filter.ValueKind(r.Kind) {
		case filter.KindString:
			s, _ := r.Value.(string)
			value = filter.StringValue(s)
		case filter.KindInteger:
			n, _ := r.Value.(float64)
			value = filter.IntValue(int64(n))
		case filter.KindFloat:
			n, _ := r.Value.(float64)
			var err error
			value, err = filter.FloatValue(float32(n))
			if err != nil {
				return nil, err
			}
		}
		out[i] = filter.KV{Key: r.Key, Value: value}
	}
	return out, nil
}

// marshalKVGroups encodes one row's whole group of per-vector KV-lists.
func marshalKVGroups(kvsList [][]filter.KV) ([]byte, error) {
	out := make([][]kvJSON, len(kvsList))
	for i, kvs := range kvsList {
		out[i] = marshalKVsOne(kvs)
	}
	return json.Marshal(out)
}

func unmarshalKVGroups(data []byte) ([][]filter.KV, error) {
	var raw [][]kvJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([][]filter.KV, len(raw))
	for i, sub := range raw {
		kvs, err := unmarshalKVsOne(sub)
		if err != nil {
			return nil, err
		}
		out[i] = kvs
	}
	return out, nil
}

// appendGroup inserts one row holding an already-quantized group, hashed
// as a unit over its concatenated vectors and metadata.
func (w *WAL) appendGroup(qvs []quant.QV, kvsList [][]filter.KV) (int64, error) {
	hash, err := contentHash(qvs, kvsList)
	if err != nil {
		return 0, err
	}
	var payload []byte
	for _, qv := range qvs {
		payload = append(payload, qv...)
	}
	metaJSON, err := marshalKVGroups(kvsList)
	if err != nil {
		return 0, err
	}
	res, err := w.db.Exec(
		`INSERT INTO wal (hash, payload_bytes, metadata_json, added_ts, committed_ts) VALUES (?, ?, ?, ?, NULL)`,
		hash, payload, string(metaJSON), time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("wal: append: %w", err)
	}
	return res.LastInsertId()
}

// Append quantizes every vector in the group and inserts one row holding
// the whole group, content-hashed as a unit. vectors and kvsList must be
// the same length, with kvsList[i] the metadata for vectors[i].
func (w *WAL) Append(vectors [][]float32, kvsList [][]filter.KV) (int64, error) {
	if len(vectors) != len(kvsList) {
		return 0, fmt.Errorf("wal: group vector/metadata length mismatch: %d vectors, %d kv-lists", len(vectors), len(kvsList))
	}
	qvs := make([]quant.QV, len(vectors))
	for i, v := range vectors {
		qv, err := quant.Quantize(v)
		if err != nil {
			return 0, err
		}
		qvs[i] = qv
	}
	return w.appendGroup(qvs, kvsList)
}

// AppendBatch appends one row per group in groups/kvsLists, which must be
// the same length; each group becomes its own content-hashed row.
func (w *WAL) AppendBatch(groups [][][]float32, kvsLists [][][]filter.KV) error {
	if len(groups) != len(kvsLists) {
		return fmt.Errorf("wal: batch length mismatch: %d groups, %d kv-lists", len(groups), len(kvsLists))
	}
	for i := range groups {
		if _, err := w.Append(groups[i], kvsLists[i]); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns rows with added_ts >= now - windowSeconds and no
// committed_ts, ordered by added_ts ascending so commits process entries
// in arrival order.
func (w *WAL) Pending(windowSeconds int64) ([]Entry, error) {
	cutoff := time.Now().Unix() - windowSeconds
	rows, err := w.db.Query(
		`SELECT id, hash, payload_bytes, metadata_json, added_ts FROM wal
		 WHERE added_ts >= ? AND committed_ts IS NULL ORDER BY added_ts ASC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("wal: pending: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows, false)
}

// CommittedBefore returns rows with added_ts < ts that have already been
// committed, ordered by added_ts ascending.
func (w *WAL) CommittedBefore(ts time.Time) ([]Entry, error) {
	rows, err := w.db.Query(
		`SELECT id, hash, payload_bytes, metadata_json, added_ts, committed_ts FROM wal
		 WHERE added_ts < ? AND committed_ts IS NOT NULL ORDER BY added_ts ASC`,
		ts.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("wal: committed_before: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows, true)
}

func scanEntries(rows *sql.Rows, withCommitted bool) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e            Entry
			addedUnix    int64
			committedVal sql.NullInt64
			payload      []byte
			metaJSON     []byte
		)
		if withCommitted {
			if err := rows.Scan(&e.ID, &e.Hash, &payload, &metaJSON, &addedUnix, &committedVal); err != nil {
				return nil, err
			}
		} else {
			if err := rows.Scan(&e.ID, &e.Hash, &payload, &metaJSON, &addedUnix); err != nil {
				return nil, err
			}
		}
		kvsList, err := unmarshalKVGroups(metaJSON)
		if err != nil {
			return nil, err
		}
		if len(kvsList) == 0 {
			return nil, fmt.Errorf("wal: row %d has an empty group", e.ID)
		}
		byteLen := len(payload) / len(kvsList)
		qvs := make([]quant.QV, len(kvsList))
		for i := range qvs {
			qvs[i] = quant.QV(payload[i*byteLen : (i+1)*byteLen])
		}
		e.Vectors = qvs
		e.KVs = kvsList
		e.AddedTS = time.Unix(addedUnix, 0)
		if committedVal.Valid {
			ts := time.Unix(committedVal.Int64, 0)
			e.CommittedTS = &ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkCommitted sets committed_ts = now for every row matching hash.
func (w *WAL) MarkCommitted(hash int64) error {
	_, err := w.db.Exec(`UPDATE wal SET committed_ts = ? WHERE hash = ? AND committed_ts IS NULL`, time.Now().Unix(), hash)
	if err != nil {
		return fmt.Errorf("wal: mark_committed: %w", err)
	}
	return nil
}
