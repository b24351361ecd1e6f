package peval

import (
	"fmt"
	"strings"

	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/sets/treeset"
)

// ParseErrorKind discriminates the parse-time error kinds of spec.md §7.
type ParseErrorKind int

const (
	// ErrUnexpected: an atom failed at a position; carries the deepest
	// position and attempted rules.
	ErrUnexpected ParseErrorKind = iota
	// ErrLeftRecursion: re-entry into an InProgress atom was detected and
	// the parser was configured (via SurfaceLeftRecursion) to report it
	// instead of silently treating it as a local failure.
	ErrLeftRecursion
	// ErrTrailingInput: the parse consumed a prefix but input remains,
	// and the parser was not configured for partial mode.
	ErrTrailingInput
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrUnexpected:
		return "Unexpected"
	case ErrLeftRecursion:
		return "LeftRecursion"
	case ErrTrailingInput:
		return "TrailingInput"
	}
	return "ParseErrorKind(?)"
}

// ParseError is returned by Parser.Parse on failure. It carries the
// deepest-failure position, the set of atom descriptions attempted there,
// the rule-call stack active at that point, and a short slice of the
// unexpected input, per spec.md §6/§7.
type ParseError struct {
	Kind ParseErrorKind

	Position int
	Line     int // 1-based
	Column   int // 1-based, in runes from the start of Line

	Expected  []string // sorted, de-duplicated atom descriptions
	RuleStack []string // rule names active at the deepest failure, outermost first

	Found string // up to 16 bytes of input at Position
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "at position %d (line %d, column %d)", e.Position, e.Line, e.Column)
	switch e.Kind {
	case ErrLeftRecursion:
		b.WriteString(": left recursion detected")
	case ErrTrailingInput:
		b.WriteString(": trailing input")
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, ": expected {%s}", strings.Join(e.Expected, ", "))
	}
	fmt.Fprintf(&b, ", found %q", e.Found)
	if len(e.RuleStack) > 0 {
		fmt.Fprintf(&b, " (in %s)", strings.Join(e.RuleStack, " > "))
	}
	return b.String()
}

// --- deepest-failure cursor ---------------------------------------------

// deepestCursor tracks the furthest position any branch reached before
// failing, plus the set of attempts made there. It is monotonically
// non-decreasing in Position for the duration of a parse (spec.md §8,
// testable property 3).
type deepestCursor struct {
	pos       int
	expected  *treeset.Set // of string, deduped+sorted atom descriptions
	ruleStack []string
	seen      map[string]bool // structhash-backed dedupe, mirrors earley.go's backlink hashing
}

func newDeepestCursor() *deepestCursor {
	return &deepestCursor{
		pos:      -1,
		expected: treeset.NewWithStringComparator(),
		seen:     make(map[string]bool),
	}
}

// record registers a failed attempt to match an atom described by desc, at
// pos, with the given rule-call stack (innermost last). Only attempts at
// or beyond the current deepest position are kept; earlier ones are
// dropped without effect.
func (c *deepestCursor) record(desc string, pos int, ruleStack []string) {
	if pos > c.pos {
		c.pos = pos
		c.expected = treeset.NewWithStringComparator()
		c.ruleStack = append([]string(nil), ruleStack...)
		c.seen = make(map[string]bool)
	} else if pos < c.pos {
		return
	}
	type attemptKey struct {
		Desc  string
		Pos   int
		Stack string
	}
	h, err := structhash.Hash(attemptKey{Desc: desc, Pos: pos, Stack: strings.Join(ruleStack, ">")}, 1)
	if err != nil {
		// structhash only errors on unhashable types; our key is plain
		// strings/ints, so this path is unreachable in practice.
		h = desc
	}
	if c.seen[h] {
		return
	}
	c.seen[h] = true
	c.expected.Add(desc)
}

func (c *deepestCursor) expectedSlice() []string {
	vals := c.expected.Values()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.(string)
	}
	return out
}

// lineColumn computes the 1-based line and column (in runes) of pos
// within input.
func lineColumn(input string, pos int) (line, col int) {
	line = 1
	lastNL := -1
	for i := 0; i < pos && i < len(input); i++ {
		if input[i] == '\n' {
			line++
			lastNL = i
		}
	}
	col = 1
	for i := lastNL + 1; i < pos && i < len(input); {
		_, size := decodeRuneSize(input[i:])
		i += size
		col++
	}
	return
}

func foundSlice(input string, pos int) string {
	end := pos + 16
	if end > len(input) {
		end = len(input)
	}
	if pos > len(input) {
		pos = len(input)
	}
	return input[pos:end]
}
