/*
Package arena implements the append-only AST storage for a single parse:
a node vector, a string pool with an index table, and a child-slice pool.
All three are pre-sized from the input length at construction time and
grow by simple append thereafter — there is no reclamation of individual
entries, and the whole Arena is discarded (or retained for incremental
reuse, see package incremental) as a unit at the end of a parse, in the
spirit of the frame-stack discipline in gorgo's runtime package ("memory
frames" pushed and popped as a whole rather than field-by-field freed).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package arena

import (
	"fmt"

	"github.com/npillmayer/pego"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.arena'.
func tracer() tracing.Trace {
	return tracing.Select("pego.arena")
}

// NodeKind discriminates the variants of an AST node (spec §3).
type NodeKind int

const (
	// KindNil is the absent/empty value.
	KindNil NodeKind = iota
	KindBool
	KindInt
	KindFloat
	// KindInputRef is a zero-copy slice of the original input.
	KindInputRef
	// KindStringRef is an owned string in the arena's string pool.
	KindStringRef
	// KindArray is an owned slice of child nodes in the arena's child pool.
	KindArray
	// KindHash is an owned slice of (name, node) pairs, keys interned in
	// the string pool.
	KindHash
)

func (k NodeKind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindInputRef:
		return "InputRef"
	case KindStringRef:
		return "StringRef"
	case KindArray:
		return "Array"
	case KindHash:
		return "Hash"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// NodeIndex addresses a node within an Arena's node vector.
type NodeIndex int

// NilNode is the canonical "no node" index, also used for an explicit
// Nil result.
const NilNode NodeIndex = -1

// Node is a single AST record: a flat tagged record of offsets, indices
// and scalar payloads, with a separate field for each variant's data (the
// fields do not share storage, so a Node is several machine words wide).
// It never holds a pointer into user data except for the input slice
// itself (which the Arena does not own and never mutates).
type Node struct {
	Kind NodeKind

	Bool  bool
	Int   int64
	Float float64

	// KindInputRef
	Offset, Length int

	// KindStringRef
	StrIndex int

	// KindArray / KindHash: index + length into the respective pool
	PoolIndex, PoolLength int
}

// HashEntry is one (key, value) pair stored in the arena's hash pool.
// Keys are string-pool indices, interned once per distinct key string is
// not guaranteed (no deduplication across entries is required by the
// invariants in spec.md §3, only uniqueness of keys *within* one Hash).
type HashEntry struct {
	KeyIndex int
	Value    NodeIndex
}

// Arena holds all storage for one parse: the node vector, the string pool
// (bytes + index table), and the child pool (node-index / hash-entry
// slices, depending on which grows).
type Arena struct {
	input string

	nodes []Node

	strBytes []byte
	strIndex []strSlice // index table: strIndex[i] -> byte range in strBytes

	children []NodeIndex
	hashes   []HashEntry
}

type strSlice struct {
	offset, length int
}

// ForInput pre-reserves capacity proportional to n, the length of the
// input the arena will be used against. This does not fix an upper bound:
// all three pools grow by ordinary append once their initial capacity is
// exhausted.
func ForInput(n int) *Arena {
	if n < 16 {
		n = 16
	}
	a := &Arena{
		nodes:    make([]Node, 0, n/2+8),
		strBytes: make([]byte, 0, n),
		strIndex: make([]strSlice, 0, n/8+4),
		children: make([]NodeIndex, 0, n/2+8),
		hashes:   make([]HashEntry, 0, n/8+4),
	}
	tracer().Debugf("arena reserved for input of length %d", n)
	return a
}

// Input returns the input snapshot this arena's InputRef nodes are slices
// of: whatever SetInput last recorded. The evaluator calls SetInput at
// parser construction time; PushNode never sets it.
func (a *Arena) Input() string {
	return a.input
}

// SetInput records the input snapshot backing this arena's InputRef
// nodes. Must be called before any InputRef node is read via Text.
func (a *Arena) SetInput(input string) {
	a.input = input
}

// --- Node vector --------------------------------------------------------

// PushNode appends n to the node vector and returns its index.
func (a *Arena) PushNode(n Node) NodeIndex {
	idx := NodeIndex(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return idx
}

// Node returns the node stored at idx.
func (a *Arena) Node(idx NodeIndex) Node {
	return a.nodes[idx]
}

// NumNodes returns the number of nodes stored so far.
func (a *Arena) NumNodes() int {
	return len(a.nodes)
}

// --- Convenience constructors -------------------------------------------

// PushNil appends and returns a Nil node.
func (a *Arena) PushNil() NodeIndex {
	return a.PushNode(Node{Kind: KindNil})
}

// PushBool appends and returns a Bool node.
func (a *Arena) PushBool(b bool) NodeIndex {
	return a.PushNode(Node{Kind: KindBool, Bool: b})
}

// PushInt appends and returns an Int node.
func (a *Arena) PushInt(i int64) NodeIndex {
	return a.PushNode(Node{Kind: KindInt, Int: i})
}

// PushFloat appends and returns a Float node.
func (a *Arena) PushFloat(f float64) NodeIndex {
	return a.PushNode(Node{Kind: KindFloat, Float: f})
}

// PushInputRef appends and returns an InputRef node over input[offset:offset+length].
func (a *Arena) PushInputRef(offset, length int) NodeIndex {
	return a.PushNode(Node{Kind: KindInputRef, Offset: offset, Length: length})
}

// PushString interns s into the string pool and returns a StringRef node.
func (a *Arena) PushString(s string) NodeIndex {
	idx := a.InternString(s)
	return a.PushNode(Node{Kind: KindStringRef, StrIndex: idx})
}

// InternString appends s to the string pool (no deduplication — callers
// that want sharing should dedupe themselves) and returns its pool index.
func (a *Arena) InternString(s string) int {
	idx := len(a.strIndex)
	off := len(a.strBytes)
	a.strBytes = append(a.strBytes, s...)
	a.strIndex = append(a.strIndex, strSlice{offset: off, length: len(s)})
	return idx
}

// String returns the interned string at pool index idx.
func (a *Arena) String(idx int) string {
	s := a.strIndex[idx]
	return string(a.strBytes[s.offset : s.offset+s.length])
}

// PushArray copies items into the child pool and returns an Array node
// over that range.
func (a *Arena) PushArray(items []NodeIndex) NodeIndex {
	start := len(a.children)
	a.children = append(a.children, items...)
	return a.PushNode(Node{Kind: KindArray, PoolIndex: start, PoolLength: len(items)})
}

// Array returns the child-node slice for an Array node.
func (a *Arena) Array(n Node) []NodeIndex {
	return a.children[n.PoolIndex : n.PoolIndex+n.PoolLength]
}

// PushHash copies entries into the hash pool and returns a Hash node over
// that range. entries must have unique KeyIndex values (spec §3
// invariant); callers are responsible for upholding this (package peval
// and package transform both do, by construction).
func (a *Arena) PushHash(entries []HashEntry) NodeIndex {
	start := len(a.hashes)
	a.hashes = append(a.hashes, entries...)
	return a.PushNode(Node{Kind: KindHash, PoolIndex: start, PoolLength: len(entries)})
}

// Hash returns the hash-entry slice for a Hash node.
func (a *Arena) Hash(n Node) []HashEntry {
	return a.hashes[n.PoolIndex : n.PoolIndex+n.PoolLength]
}

// Text returns the input slice an InputRef node denotes.
func (a *Arena) Text(n Node) string {
	return a.input[n.Offset : n.Offset+n.Length]
}

// RebaseInputRefs shifts the Offset of every KindInputRef node whose span
// starts at or after threshold by delta, in a single pass over the node
// vector. Package incremental calls this once per edit, after an edit's
// pre-edit input position threshold (the edit's end) and the length delta
// it introduces, so that retained nodes from before the edit keep
// denoting the same bytes in the post-edit input. A node entirely before
// threshold is left untouched; one straddling threshold belongs to a memo
// entry package incremental has already invalidated and is never read
// again, so it is harmless to leave unshifted.
func (a *Arena) RebaseInputRefs(threshold, delta int) {
	if delta == 0 {
		return
	}
	for i, n := range a.nodes {
		if n.Kind != KindInputRef {
			continue
		}
		span := pego.NewSpan(n.Offset, n.Offset+n.Length)
		if span.From() >= threshold {
			shifted := span.Shift(delta)
			a.nodes[i].Offset = shifted.From()
		}
	}
}

// InBounds reports whether every offset/index referenced transitively by
// the node at idx is within its pool's current extent. This backs the
// "arena safety" testable property in spec.md §8.
func (a *Arena) InBounds(idx NodeIndex) bool {
	if int(idx) < 0 || int(idx) >= len(a.nodes) {
		return false
	}
	n := a.nodes[idx]
	switch n.Kind {
	case KindInputRef:
		return n.Offset >= 0 && n.Offset+n.Length <= len(a.input)
	case KindStringRef:
		return n.StrIndex >= 0 && n.StrIndex < len(a.strIndex)
	case KindArray:
		if n.PoolIndex < 0 || n.PoolIndex+n.PoolLength > len(a.children) {
			return false
		}
		for _, c := range a.Array(n) {
			if !a.InBounds(c) {
				return false
			}
		}
		return true
	case KindHash:
		if n.PoolIndex < 0 || n.PoolIndex+n.PoolLength > len(a.hashes) {
			return false
		}
		for _, e := range a.Hash(n) {
			if e.KeyIndex < 0 || e.KeyIndex >= len(a.strIndex) {
				return false
			}
			if !a.InBounds(e.Value) {
				return false
			}
		}
		return true
	}
	return true
}
