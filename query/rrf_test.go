package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRRFSingleList(t *testing.T) {
	fused := reciprocalRankFusion([][]string{{"a", "b", "c"}}, 10)
	require.Len(t, fused, 3)
	require.Equal(t, []string{"a", "b", "c"}, ids(fused))
}

// TestRRFWorkedExample fuses lists [a,b,c] and [b,a,d]. Since a and b
// simply swap places between the two lists, their fused scores tie
// exactly (1/61 + 1/62 each); stable sort then preserves first-seen
// order, landing on [a,b,c,d] — one of the two orders the scenario
// permits for tie-broken output.
func TestRRFWorkedExample(t *testing.T) {
	lists := [][]string{{"a", "b", "c"}, {"b", "a", "d"}}
	fused := reciprocalRankFusion(lists, 10)
	require.Len(t, fused, 4)

	scoreOf := func(id string) float64 {
		for _, f := range fused {
			if f.id == id {
				return f.score
			}
		}
		t.Fatalf("id %q not found in fused results", id)
		return 0
	}

	require.InDelta(t, 1.0/61.0+1.0/62.0, scoreOf("a"), 1e-9)
	require.InDelta(t, 1.0/61.0+1.0/62.0, scoreOf("b"), 1e-9)
	require.InDelta(t, scoreOf("a"), scoreOf("b"), 1e-9)
	require.Equal(t, []string{"a", "b", "c", "d"}, ids(fused))
}

func TestRRFTruncatesToTopK(t *testing.T) {
	fused := reciprocalRankFusion([][]string{{"a", "b", "c", "d", "e"}}, 2)
	require.Len(t, fused, 2)
	require.Equal(t, []string{"a", "b"}, ids(fused))
}

func TestRRFEmptyLists(t *testing.T) {
	fused := reciprocalRankFusion(nil, 10)
	require.Empty(t, fused)
}

func TestRRFDeduplicatesAcrossLists(t *testing.T) {
	fused := reciprocalRankFusion([][]string{{"a"}, {"a"}}, 10)
	require.Len(t, fused, 1)
	require.InDelta(t, 2.0/61.0, fused[0].score, 1e-9)
}

func ids(fused []fusedID) []string {
	out := make([]string, len(fused))
	for i, f := range fused {
		out[i] = f.id
	}
	return out
}
