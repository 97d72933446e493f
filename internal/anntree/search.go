package anntree

import (
	"sort"
	"sync"

	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
	"github.com/xDarkicex/hammervdb/internal/util"
)

// DefaultAlpha is the default beam width used by Search when the caller
// does not override it.
const DefaultAlpha = 4

// Result is one search hit: a record id at a Hamming distance from the
// query vector, with its full metadata.
type Result struct {
	ID       util.RecordID
	Distance int
	KVs      []filter.KV
}

// Search performs a parallel top-alpha beam search: at each internal
// node, the alpha nearest children whose subtree
// summary is not pruned by f are recursed into in parallel; at a leaf,
// every stored vector whose metadata is not pruned by f is scored and
// admitted into the local candidate list. The contract is best-effort: an
// entry is considered only if it stays within the alpha best-scoring
// subtrees at every level on its root-to-leaf path.
func (t *Tree) Search(qv quant.QV, topK int, f filter.Filter, alpha int) ([]Result, error) {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	if topK <= 0 {
		return nil, nil
	}

	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	if f == nil {
		f = noopFilter{}
	}

	candidates, err := t.searchNode(root, qv, topK, alpha, f)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (t *Tree) searchNode(node *Node, qv quant.QV, topK, alpha int, f filter.Filter) ([]Result, error) {
	if node.Kind == KindLeaf {
		return t.searchLeaf(node, qv, topK, f), nil
	}
	return t.searchInternal(node, qv, topK, alpha, f)
}

func (t *Tree) searchLeaf(node *Node, qv quant.QV, topK int, f filter.Filter) []Result {
	top := util.NewTopK(topK)
	for i, v := range node.Vectors {
		kvs := node.Metadata[i]
		if !f.Match(kvs) {
			continue
		}
		d := quant.Hamming(qv, v)
		top.Offer(util.Candidate{ID: node.IDs[i], Distance: d, KVs: kvs})
	}
	results := make([]Result, 0, top.Len())
	for _, c := range top.Sorted() {
		results = append(results, Result{ID: c.ID, Distance: c.Distance, KVs: c.KVs})
	}
	return results
}

type childScore struct {
	index int
	dist  int
}

func (t *Tree) searchInternal(node *Node, qv quant.QV, topK, alpha int, f filter.Filter) ([]Result, error) {
	scores := make([]childScore, len(node.Vectors))
	for i, centroid := range node.Vectors {
		scores[i] = childScore{index: i, dist: quant.Hamming(qv, centroid)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })

	var chosen []int
	for _, sc := range scores {
		if len(chosen) >= alpha {
			break
		}
		child, err := t.loadNode(node.Children[sc.index])
		if err != nil {
			return nil, err
		}
		if f.Prune(child.Summary) {
			continue
		}
		chosen = append(chosen, sc.index)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		all     []Result
		firstEr error
	)
	for _, idx := range chosen {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			child, err := t.loadNode(node.Children[idx])
			if err != nil {
				mu.Lock()
				if firstEr == nil {
					firstEr = err
				}
				mu.Unlock()
				return
			}
			sub, err := t.searchNode(child, qv, topK, alpha, f)
			if err != nil {
				mu.Lock()
				if firstEr == nil {
					firstEr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			all = append(all, sub...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if firstEr != nil {
		return nil, firstEr
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	if len(all) > topK {
		all = all[:topK]
	}
	return all, nil
}

// noopFilter never prunes and matches everything; used when Search is
// called without a filter.
type noopFilter struct{}

func (noopFilter) Match([]filter.KV) bool         { return true }
func (noopFilter) Prune(filter.Summary) bool      { return false }
func (noopFilter) String() string                 { return "true" }
