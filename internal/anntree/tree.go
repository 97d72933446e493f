package anntree

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/xDarkicex/hammervdb/internal/block"
)

// Tree is a persistent ANN tree backed by a block store: every node is one
// record, addressed by the block id of its primary page. The tree itself
// holds no node state in memory beyond the root id cached from the store
// header; all structure is (re)loaded from disk on demand.
type Tree struct {
	mu       sync.Mutex
	store    *block.Store
	capacity int
	rng      *rand.Rand
}

// Open wraps an already-open block store as an ANN tree with leaf/internal
// capacity K.
func Open(store *block.Store, capacity int) *Tree {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tree{
		store:    store,
		capacity: capacity,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Capacity returns K, the node fanout/leaf capacity.
func (t *Tree) Capacity() int { return t.capacity }

func (t *Tree) loadNode(id uint64) (*Node, error) {
	raw, err := t.store.Load(id)
	if err != nil {
		return nil, err
	}
	n, err := Deserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("anntree: deserializing node %d: %w", id, err)
	}
	n.SelfID = id
	return n, nil
}

func (t *Tree) saveNode(n *Node) error {
	if err := n.checkInvariants(); err != nil {
		return err
	}
	raw, err := Serialize(n)
	if err != nil {
		return err
	}
	id, err := t.store.Store(raw, n.SelfID)
	if err != nil {
		return err
	}
	n.SelfID = id
	return nil
}

// RootID returns the current root record id, or 0 if the tree is empty.
func (t *Tree) RootID() uint64 {
	return t.store.Root()
}

// Root loads the current root node, or nil if the tree has no root yet.
func (t *Tree) Root() (*Node, error) {
	id := t.store.Root()
	if id == 0 {
		return nil, nil
	}
	return t.loadNode(id)
}
