package anntree

import (
	"math/rand"

	"github.com/xDarkicex/hammervdb/internal/quant"
)

// maxSplitIterations bounds the medoid refinement loop.
const maxSplitIterations = 100

// Modes returns the bitwise majority vector of a non-empty multiset of
// quantized vectors: bit b of the output is set iff it is set in strictly
// more than half of s's elements. Ties resolve to 0.
func Modes(s []quant.QV) quant.QV {
	if len(s) == 0 {
		return nil
	}
	b := len(s[0])
	counts := make([]int, b*8)
	for _, qv := range s {
		for j := 0; j < b; j++ {
			byteVal := qv[j]
			for i := 0; i < 8; i++ {
				if byteVal&(1<<uint(i)) != 0 {
					counts[8*j+i]++
				}
			}
		}
	}
	half := len(s) / 2
	out := make(quant.QV, b)
	for j := 0; j < b; j++ {
		var byteVal byte
		for i := 0; i < 8; i++ {
			if counts[8*j+i] > half {
				byteVal |= 1 << uint(i)
			}
		}
		out[j] = byteVal
	}
	return out
}

// splitResult is the outcome of partitioning a multiset of vectors into k
// clusters: assignments[i] is the cluster index of s[i], and centroids[c]
// is the final medoid of cluster c.
type splitResult struct {
	assignments []int
	centroids   []quant.QV
}

// Split partitions s into k roughly balanced clusters using iterated
// medoid refinement on Hamming distance. Node splits always call this
// with k=2.
func Split(s []quant.QV, k int, rng *rand.Rand) splitResult {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	centroidIdx := rng.Perm(len(s))[:k]
	centroids := make([]quant.QV, k)
	for c, idx := range centroidIdx {
		centroids[c] = s[idx]
	}

	assignments := make([]int, len(s))

	for iter := 0; iter < maxSplitIterations; iter++ {
		changed := false

		for i, qv := range s {
			best := 0
			bestDist := quant.Hamming(qv, centroids[0])
			for c := 1; c < k; c++ {
				d := quant.Hamming(qv, centroids[c])
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		reseeded := false
		for c := 0; c < k; c++ {
			members := clusterMembers(s, assignments, c)
			if len(members) == 0 {
				centroids[c] = s[rng.Intn(len(s))]
				reseeded = true
				continue
			}
			centroids[c] = medoid(members)
		}

		if !changed && !reseeded {
			break
		}
	}

	return splitResult{assignments: assignments, centroids: centroids}
}

// medoid returns the element of members minimizing the sum of Hamming
// distances to every other element in members.
func medoid(members []quant.QV) quant.QV {
	best := members[0]
	bestSum := sumDistances(members, 0)
	for i := 1; i < len(members); i++ {
		sum := sumDistances(members, i)
		if sum < bestSum {
			bestSum = sum
			best = members[i]
		}
	}
	return best
}

func sumDistances(members []quant.QV, i int) int {
	sum := 0
	for j := range members {
		if j == i {
			continue
		}
		sum += quant.Hamming(members[i], members[j])
	}
	return sum
}

func clusterMembers(s []quant.QV, assignments []int, cluster int) []quant.QV {
	var out []quant.QV
	for i, c := range assignments {
		if c == cluster {
			out = append(out, s[i])
		}
	}
	return out
}
