package anntree

// TreeSummary reports shape diagnostics used by tests and operators:
// depth (root = depth 1), total node and leaf counts, and whether any
// node is currently full (holds capacity entries or more).
type TreeSummary struct {
	Depth     int
	NodeCount int
	LeafCount int
	AnyFull   bool
}

// Summarize walks the whole tree and reports its shape. Spec.md section 8
// scenario 3 uses this to assert a split actually deepened the tree and
// left no full node behind.
func (t *Tree) Summarize() (TreeSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	root, err := t.Root()
	if err != nil {
		return TreeSummary{}, err
	}
	if root == nil {
		return TreeSummary{}, nil
	}

	var s TreeSummary
	if err := t.summarizeNode(root, 1, &s); err != nil {
		return TreeSummary{}, err
	}
	return s, nil
}

func (t *Tree) summarizeNode(node *Node, depth int, s *TreeSummary) error {
	s.NodeCount++
	if depth > s.Depth {
		s.Depth = depth
	}
	if node.Full(t.capacity) {
		s.AnyFull = true
	}
	if node.Kind == KindLeaf {
		s.LeafCount++
		return nil
	}
	for _, childID := range node.Children {
		child, err := t.loadNode(childID)
		if err != nil {
			return err
		}
		if err := t.summarizeNode(child, depth+1, s); err != nil {
			return err
		}
	}
	return nil
}
