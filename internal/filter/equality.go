package filter

import "fmt"

// EqFilter matches records where some value for Key equals Value
// (string equality).
type EqFilter struct {
	Key   string
	Value string
}

// Eq builds an equality filter.
func Eq(key, value string) *EqFilter {
	return &EqFilter{Key: key, Value: value}
}

func (f *EqFilter) Match(kvs []KV) bool {
	for _, kv := range kvs {
		if kv.Key == f.Key && kv.Value.Kind == KindString && kv.Value.String == f.Value {
			return true
		}
	}
	return false
}

// Prune reports the subtree as prunable if summary has no entry for Key or
// its string set does not contain Value.
func (f *EqFilter) Prune(summary Summary) bool {
	ks, ok := summary[f.Key]
	if !ok || ks.Strings == nil {
		return true
	}
	_, ok = ks.Strings[f.Value]
	return !ok
}

func (f *EqFilter) String() string {
	return fmt.Sprintf("Eq(%s, %q)", f.Key, f.Value)
}

// InFilter matches records where some value for Key is a member of Values.
type InFilter struct {
	Key    string
	Values []string
}

// In builds a membership filter.
func In(key string, values ...string) *InFilter {
	return &InFilter{Key: key, Values: values}
}

func (f *InFilter) Match(kvs []KV) bool {
	for _, kv := range kvs {
		if kv.Key != f.Key || kv.Value.Kind != KindString {
			continue
		}
		for _, v := range f.Values {
			if kv.Value.String == v {
				return true
			}
		}
	}
	return false
}

// Prune reports the subtree as prunable if no value in Values is present
// in summary's string set for Key.
func (f *InFilter) Prune(summary Summary) bool {
	ks, ok := summary[f.Key]
	if !ok || ks.Strings == nil {
		return true
	}
	for _, v := range f.Values {
		if _, ok := ks.Strings[v]; ok {
			return false
		}
	}
	return true
}

func (f *InFilter) String() string {
	return fmt.Sprintf("In(%s, %v)", f.Key, f.Values)
}
