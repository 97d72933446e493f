package filter

import "strings"

// AndFilter is a short-circuiting conjunction of child filters.
type AndFilter struct {
	Filters []Filter
}

// And builds a conjunction of filters.
func And(filters ...Filter) *AndFilter {
	return &AndFilter{Filters: filters}
}

func (f *AndFilter) Match(kvs []KV) bool {
	for _, child := range f.Filters {
		if !child.Match(kvs) {
			return false
		}
	}
	return true
}

// Prune reports the subtree as prunable if any conjunct prunes it: a
// record matching the whole And must match every conjunct, so if one
// conjunct can be proven absent the whole conjunction is absent.
func (f *AndFilter) Prune(summary Summary) bool {
	for _, child := range f.Filters {
		if child.Prune(summary) {
			return true
		}
	}
	return false
}

func (f *AndFilter) String() string {
	parts := make([]string, len(f.Filters))
	for i, child := range f.Filters {
		parts[i] = "(" + child.String() + ")"
	}
	return strings.Join(parts, " AND ")
}

// OrFilter is a short-circuiting disjunction of child filters.
type OrFilter struct {
	Filters []Filter
}

// Or builds a disjunction of filters.
func Or(filters ...Filter) *OrFilter {
	return &OrFilter{Filters: filters}
}

func (f *OrFilter) Match(kvs []KV) bool {
	for _, child := range f.Filters {
		if child.Match(kvs) {
			return true
		}
	}
	return false
}

// Prune reports the subtree as prunable only if every disjunct prunes it:
// a single non-pruned disjunct is enough to keep the subtree reachable.
func (f *OrFilter) Prune(summary Summary) bool {
	for _, child := range f.Filters {
		if !child.Prune(summary) {
			return false
		}
	}
	return len(f.Filters) > 0
}

func (f *OrFilter) String() string {
	parts := make([]string, len(f.Filters))
	for i, child := range f.Filters {
		parts[i] = "(" + child.String() + ")"
	}
	return strings.Join(parts, " OR ")
}
