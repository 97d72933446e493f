package filter

import (
	"fmt"
	"strconv"
)

// RangeOp identifies which numeric comparison a RangeFilter performs.
type RangeOp int

const (
	OpGt RangeOp = iota
	OpGte
	OpLt
	OpLte
)

func (op RangeOp) String() string {
	switch op {
	case OpGt:
		return "Gt"
	case OpGte:
		return "Gte"
	case OpLt:
		return "Lt"
	case OpLte:
		return "Lte"
	default:
		return "?"
	}
}

// RangeFilter matches records where some numeric value for Key compares to
// X per Op.
type RangeFilter struct {
	Key string
	Op  RangeOp
	X   float64
}

func Gt(key string, x float64) *RangeFilter  { return &RangeFilter{Key: key, Op: OpGt, X: x} }
func Gte(key string, x float64) *RangeFilter { return &RangeFilter{Key: key, Op: OpGte, X: x} }
func Lt(key string, x float64) *RangeFilter  { return &RangeFilter{Key: key, Op: OpLt, X: x} }
func Lte(key string, x float64) *RangeFilter { return &RangeFilter{Key: key, Op: OpLte, X: x} }

func (f *RangeFilter) Match(kvs []KV) bool {
	for _, kv := range kvs {
		if kv.Key != f.Key {
			continue
		}
		v, ok := kv.Value.AsFloat64()
		if !ok {
			continue
		}
		if kv.Value.Kind == KindFloat {
			v = float32Reading(kv.Value.Float)
		}
		if compare(f.Op, v, f.X) {
			return true
		}
	}
	return false
}

func compare(op RangeOp, v, x float64) bool {
	switch op {
	case OpGt:
		return v > x
	case OpGte:
		return v >= x
	case OpLt:
		return v < x
	case OpLte:
		return v <= x
	default:
		return false
	}
}

// float32Reading widens a float32 metadata value to the float64 of its
// shortest decimal form, so a stored 0.6 compares equal to a threshold of
// 0.6 rather than as 0.6000000238. The mapping keeps float32 order.
func float32Reading(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	return v
}

// numericRange returns the combined (min, max) across whatever int and
// float ranges are present for a key, and whether any numeric range was
// recorded at all.
func numericRange(ks *KeySummary) (min, max float64, ok bool) {
	if ks == nil {
		return 0, 0, false
	}
	first := true
	if ks.HasInt {
		min, max, first = float64(ks.IntMin), float64(ks.IntMax), false
		ok = true
	}
	if ks.HasFloat {
		fmin, fmax := float32Reading(ks.FloatMin), float32Reading(ks.FloatMax)
		if first {
			min, max = fmin, fmax
		} else {
			if fmin < min {
				min = fmin
			}
			if fmax > max {
				max = fmax
			}
		}
		ok = true
	}
	return min, max, ok
}

// Prune reports whether a subtree summary rules out any record in it ever
// matching. A naive check comparing min > x for Gt can prune a subtree
// that actually contains a matching record (e.g. range [0,10], x=5: min=0
// is not > 5, so that check would prune even though max=10 > 5 does
// match). The sound check instead compares against the bound on the side
// of the range that could satisfy the predicate: max for Gt/Gte, min for
// Lt/Lte.
func (f *RangeFilter) Prune(summary Summary) bool {
	min, max, ok := numericRange(summary[f.Key])
	if !ok {
		return true
	}
	switch f.Op {
	case OpGt:
		return !(max > f.X)
	case OpGte:
		return !(max >= f.X)
	case OpLt:
		return !(min < f.X)
	case OpLte:
		return !(min <= f.X)
	default:
		return false
	}
}

func (f *RangeFilter) String() string {
	return fmt.Sprintf("%s(%s, %v)", f.Op, f.Key, f.X)
}
