// Package hlc implements a Hybrid Logical Clock: a causally-ordered,
// byte-comparable timestamp suitable for last-writer-wins replication.
package hlc

import (
	"encoding/binary"
	"time"
)

// Size is the encoded length of a Clock in bytes.
const Size = 14

// Clock is a (wall_time_ms, logical, node_id) triple. The zero value is
// not a valid clock; use New to construct one.
type Clock struct {
	Wall    uint64
	Logical uint32
	Node    uint16
}

// New returns a fresh Clock for the given node, reading the current
// wall-clock time and starting the logical counter at zero.
func New(node uint16) Clock {
	return Clock{Wall: nowMillis(), Logical: 0, Node: node}
}

// nowMillis returns the current time in milliseconds since the Unix epoch.
func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Tick advances the clock, returning a new Clock strictly greater than c.
// If wall-clock time has advanced past c.Wall, the logical counter resets
// to zero; otherwise it increments, guarding against clock skew or rapid
// successive calls within the same millisecond.
func (c Clock) Tick() Clock {
	now := nowMillis()
	if now > c.Wall {
		return Clock{Wall: now, Logical: 0, Node: c.Node}
	}
	return Clock{Wall: c.Wall, Logical: c.Logical + 1, Node: c.Node}
}

// Merge combines c (the local clock) with other (a remote clock observed
// during replication), returning a Clock strictly greater than both. The
// node id of the result is always c's, per the spec: merging never
// adopts a peer's identity.
func (c Clock) Merge(other Clock) Clock {
	now := nowMillis()
	m := now
	if c.Wall > m {
		m = c.Wall
	}
	if other.Wall > m {
		m = other.Wall
	}

	var logical uint32
	switch {
	case m == c.Wall && m == other.Wall:
		logical = maxU32(c.Logical, other.Logical) + 1
	case m == c.Wall:
		logical = c.Logical + 1
	case m == other.Wall:
		logical = other.Logical + 1
	default:
		logical = 0
	}

	return Clock{Wall: m, Logical: logical, Node: c.Node}
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Bytes serializes the clock into 14 big-endian bytes: 8 for wall time,
// 4 for the logical counter, 2 for the node id. Byte-wise lexicographic
// comparison of the result equals the canonical (wall, logical, node)
// ordering.
func (c Clock) Bytes() [Size]byte {
	var buf [Size]byte
	binary.BigEndian.PutUint64(buf[0:8], c.Wall)
	binary.BigEndian.PutUint32(buf[8:12], c.Logical)
	binary.BigEndian.PutUint16(buf[12:14], c.Node)
	return buf
}

// FromBytes decodes a Clock from its 14-byte big-endian encoding.
func FromBytes(b [Size]byte) Clock {
	return Clock{
		Wall:    binary.BigEndian.Uint64(b[0:8]),
		Logical: binary.BigEndian.Uint32(b[8:12]),
		Node:    binary.BigEndian.Uint16(b[12:14]),
	}
}

// Compare returns -1, 0, or 1 as c is less than, equal to, or greater
// than other, using the canonical (wall, logical, node) ordering — which
// is identical to comparing their byte encodings lexicographically.
func (c Clock) Compare(other Clock) int {
	cb, ob := c.Bytes(), other.Bytes()
	for i := range cb {
		if cb[i] < ob[i] {
			return -1
		}
		if cb[i] > ob[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether c sorts strictly before other.
func (c Clock) Less(other Clock) bool {
	return c.Compare(other) < 0
}
