// Package util holds small data-structure helpers shared by the ANN tree and
// query service: a bounded top-k candidate heap and 128-bit record ids.
package util

import (
	"container/heap"

	"github.com/xDarkicex/hammervdb/internal/filter"
)

// RecordID is the 128-bit record identifier assigned at commit time. It is
// opaque and compared byte-wise.
type RecordID [16]byte

// Candidate is one scored search result: a record id at a Hamming distance
// from the query vector, carrying its metadata along so callers never need
// a second lookup by id to recover it.
type Candidate struct {
	ID       RecordID
	Distance int
	KVs      []filter.KV
}

// candidateHeap is a max-heap over Distance so the largest element sits at
// the root; TopK uses this to evict the worst candidate in O(log k) when a
// better one arrives.
type candidateHeap []Candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].Distance > h[j].Distance }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(Candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopK keeps the k smallest-distance candidates seen across a sequence of
// Offer calls, using a bounded max-heap so memory never exceeds k entries.
type TopK struct {
	k int
	h candidateHeap
}

// NewTopK returns a collector that retains at most k candidates.
func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(candidateHeap, 0, k)}
}

// Offer admits c if the collector has fewer than k entries or c beats the
// current worst kept candidate.
func (t *TopK) Offer(c Candidate) {
	if t.k <= 0 {
		return
	}
	if t.h.Len() < t.k {
		heap.Push(&t.h, c)
		return
	}
	if t.h.Len() > 0 && c.Distance < t.h[0].Distance {
		heap.Pop(&t.h)
		heap.Push(&t.h, c)
	}
}

// Sorted drains the collector and returns its candidates ascending by
// distance.
func (t *TopK) Sorted() []Candidate {
	out := make([]Candidate, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(Candidate)
	}
	return out
}

// Len reports how many candidates are currently held.
func (t *TopK) Len() int { return t.h.Len() }
