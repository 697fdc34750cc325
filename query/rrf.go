// Package query implements the hybrid search engine: concurrent dense
// vector and lexical retrieval, fused by Reciprocal Rank Fusion, with
// optional neighbor-chunk context expansion.
package query

import "sort"

// rrfK is the standard RRF smoothing constant from the fusion literature.
const rrfK = 60

// fusedID is one chunk id's combined RRF score across all input lists.
type fusedID struct {
	id    string
	score float64
}

// reciprocalRankFusion combines one or more ranked id lists into a single
// list ordered by fused score descending, truncated to topK. Each list
// contributes 1/(rrfK + rank + 1) to a chunk id's score, where rank is
// 0-based within that list; a chunk absent from a list contributes
// nothing from it. Ids are emitted in first-seen order before sorting,
// so sort.SliceStable breaks ties the same way every run.
func reciprocalRankFusion(lists [][]string, topK int) []fusedID {
	scores := make(map[string]float64)
	order := make([]string, 0)

	for _, list := range lists {
		for rank, id := range list {
			if _, ok := scores[id]; !ok {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	fused := make([]fusedID, len(order))
	for i, id := range order {
		fused[i] = fusedID{id: id, score: scores[id]}
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].score > fused[j].score
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}
