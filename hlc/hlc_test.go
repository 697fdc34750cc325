package hlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickStrictlyGreater(t *testing.T) {
	c := Clock{Wall: 1000, Logical: 5, Node: 1}
	next := c.Tick()
	require.True(t, c.Less(next), "tick must produce a strictly greater clock")
}

func TestMergeStrictlyGreaterThanBoth(t *testing.T) {
	// Walls far ahead of the real clock, so Merge's max(now, a, b) is the
	// shared wall and the equal-walls branch is taken.
	a := Clock{Wall: 1 << 62, Logical: 3, Node: 1}
	b := Clock{Wall: 1 << 62, Logical: 7, Node: 2}
	m := a.Merge(b)

	require.True(t, a.Less(m))
	require.True(t, b.Less(m))
	require.Equal(t, a.Node, m.Node, "merge retains the local node id")
	require.Equal(t, uint32(8), m.Logical, "equal walls: logical = max(3,7)+1")
}

func TestMergeDifferentWalls(t *testing.T) {
	// Walls far ahead of the real clock, so the larger input wall wins.
	a := Clock{Wall: 1 << 62, Logical: 9, Node: 1}
	b := Clock{Wall: 1<<62 + 1000, Logical: 0, Node: 2}
	m := a.Merge(b)

	require.Equal(t, uint64(1<<62+1000), m.Wall)
	require.Equal(t, uint32(1), m.Logical, "merge adopts the larger wall, logical = other.logical+1")
	require.Equal(t, a.Node, m.Node)
}

// TestHLCBytesLexicographic mirrors the literal scenario in the spec:
// from_parts(1000,0,1).to_bytes() < from_parts(1001,0,1).to_bytes().
func TestHLCBytesLexicographic(t *testing.T) {
	a := Clock{Wall: 1000, Logical: 0, Node: 1}
	b := Clock{Wall: 1001, Logical: 0, Node: 1}

	ab, bb := a.Bytes(), b.Bytes()
	require.Less(t, string(ab[:]), string(bb[:]))
	require.True(t, a.Less(b))
}

func TestBytesRoundTrip(t *testing.T) {
	c := Clock{Wall: 1234567890, Logical: 42, Node: 7}
	decoded := FromBytes(c.Bytes())
	require.Equal(t, c, decoded)
}

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		a, b Clock
		want int
	}{
		{Clock{1, 0, 0}, Clock{2, 0, 0}, -1},
		{Clock{1, 1, 0}, Clock{1, 0, 0}, 1},
		{Clock{1, 0, 1}, Clock{1, 0, 2}, -1},
		{Clock{5, 5, 5}, Clock{5, 5, 5}, 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.a.Compare(tc.b))
	}
}
