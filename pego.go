package pego

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego'.
func tracer() tracing.Trace {
	return tracing.Select("pego")
}

// T traces to the package-level tracer. Subpackages define their own,
// more specific tracer() instead of calling this one.
func T() tracing.Trace {
	return tracer()
}

// --- Spans ------------------------------------------------------------

// Span denotes a half-open byte range [From, To) into an input snapshot.
// Every InputRef AST node, and every memo-table entry's high-water mark,
// is expressed as (or derived from) a Span.
type Span [2]int // (x…y)

// NewSpan creates a span from…to.
func NewSpan(from, to int) Span {
	return Span{from, to}
}

// From returns the start value of a span.
func (s Span) From() int {
	return s[0]
}

// To returns the position just behind the end of a span.
func (s Span) To() int {
	return s[1]
}

// Len returns the length of (x…y).
func (s Span) Len() int {
	return s[1] - s[0]
}

// IsNull returns true for the zero span.
func (s Span) IsNull() bool {
	return s == Span{}
}

// Extend grows s to also cover other, returning the union span.
func (s Span) Extend(other Span) Span {
	if other[0] < s[0] {
		s[0] = other[0]
	}
	if other[1] > s[1] {
		s[1] = other[1]
	}
	return s
}

// Intersects reports whether s and other share at least one byte position.
func (s Span) Intersects(other Span) bool {
	return s[0] < other[1] && other[0] < s[1]
}

// Shift translates a span by delta, used when rebasing retained AST nodes
// and memo entries after an edit (see package incremental).
func (s Span) Shift(delta int) Span {
	return Span{s[0] + delta, s[1] + delta}
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}
