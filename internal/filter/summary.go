package filter

// KeySummary is the per-key aggregate kept at a tree node: the set of
// string values seen for this key anywhere beneath the node, and the
// min/max of numeric values seen for it (integer and float tracked
// separately since they are distinct MetadataValue variants).
type KeySummary struct {
	Strings  map[string]struct{}
	HasInt   bool
	IntMin   int64
	IntMax   int64
	HasFloat bool
	FloatMin float32
	FloatMax float32
}

// Summary is a node metadata summary: key -> aggregate. It is an algebraic
// value with a commutative, associative Combine and a deterministic
// InsertKV update, so recomputation from children is order-independent and
// tests can compare summaries directly.
type Summary map[string]*KeySummary

// NewSummary returns an empty summary.
func NewSummary() Summary {
	return make(Summary)
}

// InsertKV folds one KV pair into the summary, returning the same summary
// for chaining.
func (s Summary) InsertKV(kv KV) Summary {
	ks, ok := s[kv.Key]
	if !ok {
		ks = &KeySummary{}
		s[kv.Key] = ks
	}
	switch kv.Value.Kind {
	case KindString:
		if ks.Strings == nil {
			ks.Strings = make(map[string]struct{})
		}
		ks.Strings[kv.Value.String] = struct{}{}
	case KindInteger:
		if !ks.HasInt {
			ks.HasInt = true
			ks.IntMin = kv.Value.Integer
			ks.IntMax = kv.Value.Integer
		} else {
			if kv.Value.Integer < ks.IntMin {
				ks.IntMin = kv.Value.Integer
			}
			if kv.Value.Integer > ks.IntMax {
				ks.IntMax = kv.Value.Integer
			}
		}
	case KindFloat:
		if !ks.HasFloat {
			ks.HasFloat = true
			ks.FloatMin = kv.Value.Float
			ks.FloatMax = kv.Value.Float
		} else {
			if kv.Value.Float < ks.FloatMin {
				ks.FloatMin = kv.Value.Float
			}
			if kv.Value.Float > ks.FloatMax {
				ks.FloatMax = kv.Value.Float
			}
		}
	}
	return s
}

// InsertKVs folds every KV pair of a record into the summary.
func (s Summary) InsertKVs(kvs []KV) Summary {
	for _, kv := range kvs {
		s.InsertKV(kv)
	}
	return s
}

// Combine unions two summaries: string sets union, numeric ranges take the
// component-wise min/max of present ranges. It is commutative and
// associative, so combining children in any order yields the same result.
func Combine(a, b Summary) Summary {
	out := NewSummary()
	for k, ks := range a {
		out[k] = cloneKeySummary(ks)
	}
	for k, ks := range b {
		if existing, ok := out[k]; ok {
			mergeKeySummary(existing, ks)
		} else {
			out[k] = cloneKeySummary(ks)
		}
	}
	return out
}

// CombineAll folds Combine over a slice of summaries (used to recompute an
// internal node's summary from all of its children).
func CombineAll(summaries []Summary) Summary {
	out := NewSummary()
	for _, s := range summaries {
		out = Combine(out, s)
	}
	return out
}

func cloneKeySummary(ks *KeySummary) *KeySummary {
	clone := &KeySummary{
		HasInt:   ks.HasInt,
		IntMin:   ks.IntMin,
		IntMax:   ks.IntMax,
		HasFloat: ks.HasFloat,
		FloatMin: ks.FloatMin,
		FloatMax: ks.FloatMax,
	}
	if ks.Strings != nil {
		clone.Strings = make(map[string]struct{}, len(ks.Strings))
		for v := range ks.Strings {
			clone.Strings[v] = struct{}{}
		}
	}
	return clone
}

func mergeKeySummary(dst, src *KeySummary) {
	if src.Strings != nil {
		if dst.Strings == nil {
			dst.Strings = make(map[string]struct{}, len(src.Strings))
		}
		for v := range src.Strings {
			dst.Strings[v] = struct{}{}
		}
	}
	if src.HasInt {
		if !dst.HasInt {
			dst.HasInt = true
			dst.IntMin = src.IntMin
			dst.IntMax = src.IntMax
		} else {
			if src.IntMin < dst.IntMin {
				dst.IntMin = src.IntMin
			}
			if src.IntMax > dst.IntMax {
				dst.IntMax = src.IntMax
			}
		}
	}
	if src.HasFloat {
		if !dst.HasFloat {
			dst.HasFloat = true
			dst.FloatMin = src.FloatMin
			dst.FloatMax = src.FloatMax
		} else {
			if src.FloatMin < dst.FloatMin {
				dst.FloatMin = src.FloatMin
			}
			if src.FloatMax > dst.FloatMax {
				dst.FloatMax = src.FloatMax
			}
		}
	}
}

// Equal reports whether two summaries are structurally identical; used by
// round-trip tests rather than by production code.
func (s Summary) Equal(o Summary) bool {
	if len(s) != len(o) {
		return false
	}
	for k, ks := range s {
		oks, ok := o[k]
		if !ok {
			return false
		}
		if ks.HasInt != oks.HasInt || ks.IntMin != oks.IntMin || ks.IntMax != oks.IntMax {
			return false
		}
		if ks.HasFloat != oks.HasFloat || ks.FloatMin != oks.FloatMin || ks.FloatMax != oks.FloatMax {
			return false
		}
		if len(ks.Strings) != len(oks.Strings) {
			return false
		}
		for v := range ks.Strings {
			if _, ok := oks.Strings[v]; !ok {
				return false
			}
		}
	}
	return true
}
