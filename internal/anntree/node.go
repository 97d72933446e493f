// Package anntree implements a persistent, clustering-partitioned ANN
// tree: internal nodes carry per-child centroid ("mode") vectors and an
// aggregated metadata summary; leaves carry quantized vectors, record
// ids, and full per-record metadata. Insert splits full nodes via
// balanced k-modes (k=2); search is a parallel top-alpha beam with filter
// pushdown.
package anntree

import (
	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
	"github.com/xDarkicex/hammervdb/internal/util"
)

// Kind discriminates a node's role. Both kinds are modeled as one record
// type with a discriminant, not as separate record types, so that
// serialization and traversal stay uniform.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindInternal
)

// DefaultCapacity is the node fanout/leaf capacity K. Callers may choose
// a different K per tree.
const DefaultCapacity = 128

// Node is one tree node, stored as a single record in the block store.
// Vectors, IDs, Metadata, and Children are kept parallel; which of (IDs,
// Metadata) vs (Children) is populated depends on Kind.
type Node struct {
	Kind     Kind
	IsRoot   bool
	ParentID uint64 // 0 means no parent (only valid for the root)
	SelfID   uint64 // block id the node is stored at (0 until first save); the serialized copy is debug-only and is overwritten by the store's id on load

	Vectors []quant.QV // leaf: stored vectors; internal: child centroids ("modes")

	IDs      []util.RecordID // leaves only, parallel to Vectors
	Metadata [][]filter.KV   // leaves only, parallel to Vectors

	Children []uint64 // internal only, parallel to Vectors

	Summary filter.Summary
}

// NewLeaf returns an empty leaf node.
func NewLeaf() *Node {
	return &Node{Kind: KindLeaf, Summary: filter.NewSummary()}
}

// NewInternal returns an empty internal node.
func NewInternal() *Node {
	return &Node{Kind: KindInternal, Summary: filter.NewSummary()}
}

// Full reports whether the node holds capacity entries already.
func (n *Node) Full(capacity int) bool {
	return len(n.Vectors) >= capacity
}

// recomputeLeafSummary rebuilds Summary from this leaf's own KV-lists.
func (n *Node) recomputeLeafSummary() {
	s := filter.NewSummary()
	for _, kvs := range n.Metadata {
		s.InsertKVs(kvs)
	}
	n.Summary = s
}

// checkInvariants validates the section-3 structural invariants for this
// node in isolation (cross-node invariants like parent/child consistency
// are checked by the tree, not here).
func (n *Node) checkInvariants() error {
	switch n.Kind {
	case KindInternal:
		if len(n.Vectors) != len(n.Children) || len(n.Vectors) == 0 {
			return ErrCapacityInvariant
		}
	case KindLeaf:
		if len(n.Vectors) != len(n.IDs) || len(n.Vectors) != len(n.Metadata) {
			return ErrCapacityInvariant
		}
	}
	return nil
}
