package peval

import (
	"strings"
	"testing"

	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/dsl"
)

func TestDeepestFailureCursorIsMonotonic(t *testing.T) {
	b := dsl.New()
	// "ab" then digit: the "ab" branch reaches further (pos 2) before
	// failing than the plain digit branch (pos 0), so the reported
	// position must be 2, not 0, regardless of alternative order.
	choice := b.Choice(b.Seq(b.Str("a"), b.Str("b"), b.Re(`[0-9]`)), b.Re(`[0-9]`))
	b.Rule("entry", choice)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	input := "abx"
	a := arena.ForInput(len(input))
	p := NewParser(g, input, a)
	_, err = p.Parse()
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("got %T, want *ParseError", err)
	}
	if pe.Position != 2 {
		t.Errorf("Position = %d, want 2 (the deepest failure, reached via the 'ab' branch)", pe.Position)
	}
}

func TestParseErrorRendersPositionAndFound(t *testing.T) {
	b := dsl.New()
	lit := b.Str("hello")
	b.Rule("entry", lit)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	input := "goodbye"
	a := arena.ForInput(len(input))
	p := NewParser(g, input, a)
	_, err = p.Parse()
	if err == nil {
		t.Fatal("expected a parse error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "position 0") {
		t.Errorf("Error() = %q, want it to mention position 0", msg)
	}
	if !strings.Contains(msg, "goodbye") {
		t.Errorf("Error() = %q, want it to mention the found input", msg)
	}
}

func TestLineColumnComputation(t *testing.T) {
	input := "ab\ncd\nef"
	line, col := lineColumn(input, 6) // 'e'
	if line != 3 || col != 1 {
		t.Errorf("lineColumn(_, 6) = (%d,%d), want (3,1)", line, col)
	}
	line, col = lineColumn(input, 0)
	if line != 1 || col != 1 {
		t.Errorf("lineColumn(_, 0) = (%d,%d), want (1,1)", line, col)
	}
	line, col = lineColumn(input, 4) // 'd'
	if line != 2 || col != 2 {
		t.Errorf("lineColumn(_, 4) = (%d,%d), want (2,2)", line, col)
	}
}

func TestExpectedDeduplicatesRepeatedAttempts(t *testing.T) {
	b := dsl.New()
	// Two distinct atoms (different atom indices, so memoization does not
	// suppress the second attempt) with identical descriptions, tried at
	// the same position via Choice: Expected should still list the
	// failure only once, via the cursor's structhash-backed dedup.
	digitA := b.Re(`[0-9]`)
	digitB := b.Re(`[0-9]`)
	choice := b.Choice(digitA, digitB)
	b.Rule("entry", choice)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	input := "x"
	a := arena.ForInput(len(input))
	p := NewParser(g, input, a)
	_, err = p.Parse()
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("got %T, want *ParseError", err)
	}
	if len(pe.Expected) != 1 {
		t.Errorf("Expected = %v, want exactly one entry (deduplicated)", pe.Expected)
	}
}
