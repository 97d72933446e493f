package anntree

// Calibrate rebuilds the upper levels of the tree while preserving every
// leaf: collect all leaves via DFS, build a fresh internal root over them
// in collection order, then iteratively split any full internal node from
// the root down using the same machinery as insertion. Leaves are not
// split here: a leaf already holding capacity entries stays full until the
// next Insert into it splits it.
// Calibrate is idempotent on an already-calibrated tree.
func (t *Tree) Calibrate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	root, err := t.Root()
	if err != nil {
		return err
	}
	if root == nil {
		return nil
	}

	leaves, err := t.collectLeaves(root)
	if err != nil {
		return err
	}
	if len(leaves) == 0 {
		return nil
	}

	newRoot := NewInternal()
	newRoot.IsRoot = true
	for _, leaf := range leaves {
		newRoot.Vectors = append(newRoot.Vectors, Modes(leaf.Vectors))
		newRoot.Children = append(newRoot.Children, leaf.SelfID)
	}
	summary, err := t.combineChildSummaries(newRoot)
	if err != nil {
		return err
	}
	newRoot.Summary = summary

	if err := t.saveNode(newRoot); err != nil {
		return err
	}
	for _, leaf := range leaves {
		leaf.IsRoot = false
		leaf.ParentID = newRoot.SelfID
		if err := t.saveNode(leaf); err != nil {
			return err
		}
	}
	if err := t.store.SetRoot(newRoot.SelfID); err != nil {
		return err
	}

	if err := t.repairFull(nil, newRoot.SelfID); err != nil {
		return err
	}

	return nil
}

// collectLeaves does a DFS over the tree rooted at root and returns every
// leaf in traversal order.
func (t *Tree) collectLeaves(root *Node) ([]*Node, error) {
	if root.Kind == KindLeaf {
		return []*Node{root}, nil
	}
	var out []*Node
	for _, childID := range root.Children {
		child, err := t.loadNode(childID)
		if err != nil {
			return nil, err
		}
		sub, err := t.collectLeaves(child)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// repairFull ensures no internal node beneath (and including) nodeID is
// full, splitting and recursing into both halves as needed; leaves are
// left as they are.
// path is the chain of ancestors from the tree root down to nodeID's
// parent (empty if nodeID is itself the root).
func (t *Tree) repairFull(path []*Node, nodeID uint64) error {
	node, err := t.loadNode(nodeID)
	if err != nil {
		return err
	}
	if node.Kind == KindLeaf {
		return nil
	}

	if node.Full(t.capacity) {
		siblingID, err := t.splitInternalAndPromote(path, node)
		if err != nil {
			return err
		}
		if err := t.repairFull(path, node.SelfID); err != nil {
			return err
		}
		return t.repairFull(path, siblingID)
	}

	childPath := append(append([]*Node{}, path...), node)
	for _, childID := range node.Children {
		if err := t.repairFull(childPath, childID); err != nil {
			return err
		}
	}
	return nil
}
