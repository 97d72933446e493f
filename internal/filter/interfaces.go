// Package filter implements a metadata filter grammar: a boolean
// expression over per-record key/value metadata, with a matching
// evaluator (Match) and a sound subtree-pruning evaluator (Prune) driven
// off a per-node aggregate Summary.
package filter

import "fmt"

// ValueKind discriminates the tagged union of metadata value types.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInteger
	KindFloat
)

// Value is a single metadata value: exactly one of String/Integer/Float is
// meaningful, selected by Kind.
type Value struct {
	Kind    ValueKind
	String  string
	Integer int64
	Float   float32
}

// StringValue builds a string-valued Value.
func StringValue(s string) Value { return Value{Kind: KindString, String: s} }

// IntValue builds an integer-valued Value.
func IntValue(i int64) Value { return Value{Kind: KindInteger, Integer: i} }

// FloatValue builds a float-valued Value, rejecting NaN: this system rejects
// NaN at the boundary rather than defining a NaN total order.
func FloatValue(f float32) (Value, error) {
	if f != f {
		return Value{}, fmt.Errorf("filter: float metadata value is NaN")
	}
	return Value{Kind: KindFloat, Float: f}, nil
}

// Equal implements |a-b| < 1e-6 float equality and exact equality for
// strings and integers.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.String == o.String
	case KindInteger:
		return v.Integer == o.Integer
	case KindFloat:
		d := v.Float - o.Float
		if d < 0 {
			d = -d
		}
		return d < 1e-6
	default:
		return false
	}
}

// AsFloat64 returns the value's numeric reading for ordering comparisons
// (Gt/Gte/Lt/Lte), and whether the value carries a number at all.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInteger:
		return float64(v.Integer), true
	case KindFloat:
		return float64(v.Float), true
	default:
		return 0, false
	}
}

// KV is a single key/value metadata pair. A record's metadata is an
// ordered list of KV, duplicates allowed.
type KV struct {
	Key   string
	Value Value
}

// Filter is a boolean expression over a record's metadata.
type Filter interface {
	// Match evaluates the filter against one record's KV-list. A missing
	// key causes the leaf predicate to be false.
	Match(kvs []KV) bool

	// Prune decides whether a subtree summarized by summary cannot
	// contain any record matching this filter. Prune must be a sound
	// over-approximation: if Match is true for some record in the
	// subtree, Prune must return false. It may be conservative (always
	// returning false costs only performance, never correctness).
	Prune(summary Summary) bool

	// String renders the filter for diagnostics/logging.
	String() string
}
