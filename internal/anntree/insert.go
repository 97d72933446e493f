package anntree

import (
	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
	"github.com/xDarkicex/hammervdb/internal/util"
)

// Insert adds (qv, id, kvs) to the tree, splitting nodes along the
// insertion path as needed.
func (t *Tree) Insert(qv quant.QV, id util.RecordID, kvs []filter.KV) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	root, err := t.Root()
	if err != nil {
		return err
	}
	if root == nil {
		leaf := NewLeaf()
		leaf.IsRoot = true
		leaf.Vectors = []quant.QV{qv}
		leaf.IDs = []util.RecordID{id}
		leaf.Metadata = [][]filter.KV{kvs}
		leaf.recomputeLeafSummary()
		if err := t.saveNode(leaf); err != nil {
			return err
		}
		return t.store.SetRoot(leaf.SelfID)
	}

	path, leaf, err := t.descend(root, qv)
	if err != nil {
		return err
	}

	if !leaf.Full(t.capacity) {
		leaf.Vectors = append(leaf.Vectors, qv)
		leaf.IDs = append(leaf.IDs, id)
		leaf.Metadata = append(leaf.Metadata, kvs)
		leaf.Summary.InsertKVs(kvs)
		if err := t.saveNode(leaf); err != nil {
			return err
		}
		return t.propagateUp(path, leaf)
	}

	return t.splitLeafAndInsert(path, leaf, qv, id, kvs)
}

// descend walks from root to the leaf entrypoint, picking at each internal
// node the child whose centroid is nearest qv (ties -> lowest index). It
// returns the chain of internal nodes visited, root first, and the leaf.
func (t *Tree) descend(root *Node, qv quant.QV) ([]*Node, *Node, error) {
	var path []*Node
	cur := root
	for cur.Kind == KindInternal {
		path = append(path, cur)
		best := nearestIndex(qv, cur.Vectors)
		child, err := t.loadNode(cur.Children[best])
		if err != nil {
			return nil, nil, err
		}
		cur = child
	}
	return path, cur, nil
}

func nearestIndex(qv quant.QV, centroids []quant.QV) int {
	best := 0
	bestDist := quant.Hamming(qv, centroids[0])
	for i := 1; i < len(centroids); i++ {
		d := quant.Hamming(qv, centroids[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// splitLeafAndInsert splits a full leaf into two clusters, lands the new
// entry in whichever resulting leaf is nearer its centroid, and promotes
// the sibling into the parent chain.
func (t *Tree) splitLeafAndInsert(path []*Node, leaf *Node, qv quant.QV, id util.RecordID, kvs []filter.KV) error {
	result := Split(leaf.Vectors, 2, t.rng)

	var vecs0, vecs1 []quant.QV
	var ids0, ids1 []util.RecordID
	var meta0, meta1 [][]filter.KV
	for i, c := range result.assignments {
		if c == 0 {
			vecs0 = append(vecs0, leaf.Vectors[i])
			ids0 = append(ids0, leaf.IDs[i])
			meta0 = append(meta0, leaf.Metadata[i])
		} else {
			vecs1 = append(vecs1, leaf.Vectors[i])
			ids1 = append(ids1, leaf.IDs[i])
			meta1 = append(meta1, leaf.Metadata[i])
		}
	}

	sibling := NewLeaf()
	sibling.Vectors, sibling.IDs, sibling.Metadata = vecs1, ids1, meta1
	sibling.recomputeLeafSummary()

	leaf.Vectors, leaf.IDs, leaf.Metadata = vecs0, ids0, meta0
	leaf.recomputeLeafSummary()

	// The new entry lands in whichever resulting leaf has the smaller
	// Hamming distance from qv to the cluster centroid it was split on;
	// ties favor the left cluster (cluster 0, i.e. the mutated leaf).
	d0 := quant.Hamming(qv, result.centroids[0])
	d1 := quant.Hamming(qv, result.centroids[1])
	if d1 < d0 {
		sibling.Vectors = append(sibling.Vectors, qv)
		sibling.IDs = append(sibling.IDs, id)
		sibling.Metadata = append(sibling.Metadata, kvs)
		sibling.Summary.InsertKVs(kvs)
	} else {
		leaf.Vectors = append(leaf.Vectors, qv)
		leaf.IDs = append(leaf.IDs, id)
		leaf.Metadata = append(leaf.Metadata, kvs)
		leaf.Summary.InsertKVs(kvs)
	}

	return t.promote(path, leaf, sibling)
}

// promote links a freshly split pair (node, sibling) into the tree: if
// node had no parent it was the root and a new internal root is built
// above both; otherwise sibling is appended into the parent's children,
// splitting the parent in turn if that makes it full.
func (t *Tree) promote(path []*Node, node, sibling *Node) error {
	if len(path) == 0 {
		return t.newRootAbove(node, sibling)
	}

	parent := path[len(path)-1]

	sibling.ParentID = parent.SelfID
	if err := t.saveNode(node); err != nil {
		return err
	}
	if err := t.saveNode(sibling); err != nil {
		return err
	}

	idx := indexOfUint64(parent.Children, node.SelfID)
	if idx < 0 {
		return ErrCapacityInvariant
	}
	parent.Vectors[idx] = Modes(node.Vectors)
	parent.Children = append(parent.Children, sibling.SelfID)
	parent.Vectors = append(parent.Vectors, Modes(sibling.Vectors))

	if !parent.Full(t.capacity) {
		summary, err := t.combineChildSummaries(parent)
		if err != nil {
			return err
		}
		parent.Summary = summary
		if err := t.saveNode(parent); err != nil {
			return err
		}
		return t.propagateUp(path[:len(path)-1], parent)
	}

	_, err := t.splitInternalAndPromote(path[:len(path)-1], parent)
	return err
}

func (t *Tree) newRootAbove(node, sibling *Node) error {
	node.IsRoot = false
	sibling.IsRoot = false
	if err := t.saveNode(node); err != nil {
		return err
	}
	if err := t.saveNode(sibling); err != nil {
		return err
	}

	newRoot := NewInternal()
	newRoot.IsRoot = true
	newRoot.Vectors = []quant.QV{Modes(node.Vectors), Modes(sibling.Vectors)}
	newRoot.Children = []uint64{node.SelfID, sibling.SelfID}
	newRoot.Summary = filter.Combine(node.Summary, sibling.Summary)
	if err := t.saveNode(newRoot); err != nil {
		return err
	}

	node.ParentID = newRoot.SelfID
	sibling.ParentID = newRoot.SelfID
	if err := t.saveNode(node); err != nil {
		return err
	}
	if err := t.saveNode(sibling); err != nil {
		return err
	}

	return t.store.SetRoot(newRoot.SelfID)
}

// splitInternalAndPromote splits a full internal node's (vectors, children)
// jointly using the same clustering machinery as leaf splits, reparents
// the migrated children, and promotes the resulting sibling. It returns
// the sibling's assigned record id so callers can re-check both halves.
func (t *Tree) splitInternalAndPromote(path []*Node, node *Node) (uint64, error) {
	result := Split(node.Vectors, 2, t.rng)

	var vecs0, vecs1 []quant.QV
	var children0, children1 []uint64
	for i, c := range result.assignments {
		if c == 0 {
			vecs0 = append(vecs0, node.Vectors[i])
			children0 = append(children0, node.Children[i])
		} else {
			vecs1 = append(vecs1, node.Vectors[i])
			children1 = append(children1, node.Children[i])
		}
	}

	sibling := NewInternal()
	sibling.Vectors, sibling.Children = vecs1, children1
	node.Vectors, node.Children = vecs0, children0

	summary0, err := t.combineChildSummaries(node)
	if err != nil {
		return 0, err
	}
	node.Summary = summary0

	summary1, err := t.combineChildSummaries(sibling)
	if err != nil {
		return 0, err
	}
	sibling.Summary = summary1

	if err := t.saveNode(node); err != nil {
		return 0, err
	}
	if err := t.saveNode(sibling); err != nil {
		return 0, err
	}

	for _, childID := range sibling.Children {
		child, err := t.loadNode(childID)
		if err != nil {
			return 0, err
		}
		child.ParentID = sibling.SelfID
		if err := t.saveNode(child); err != nil {
			return 0, err
		}
	}

	siblingID := sibling.SelfID
	if err := t.promote(path, node, sibling); err != nil {
		return 0, err
	}
	return siblingID, nil
}

// combineChildSummaries recomputes an internal node's summary from its
// children's summaries as currently persisted.
func (t *Tree) combineChildSummaries(node *Node) (filter.Summary, error) {
	summaries := make([]filter.Summary, 0, len(node.Children))
	for _, childID := range node.Children {
		child, err := t.loadNode(childID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, child.Summary)
	}
	return filter.CombineAll(summaries), nil
}

// propagateUp re-derives and persists node_metadata for every ancestor on
// path given that its nearest child (last element persisted by the
// caller) just changed, walking from the deepest ancestor to the root.
func (t *Tree) propagateUp(path []*Node, changedChild *Node) error {
	child := changedChild
	for i := len(path) - 1; i >= 0; i-- {
		parent := path[i]
		idx := indexOfUint64(parent.Children, child.SelfID)
		if idx < 0 {
			return ErrCapacityInvariant
		}
		parent.Vectors[idx] = Modes(child.Vectors)
		summary, err := t.combineChildSummaries(parent)
		if err != nil {
			return err
		}
		parent.Summary = summary
		if err := t.saveNode(parent); err != nil {
			return err
		}
		child = parent
	}
	return nil
}

func indexOfUint64(s []uint64, v uint64) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
