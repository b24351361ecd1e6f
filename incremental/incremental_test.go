package incremental

import (
	"testing"

	"github.com/npillmayer/pego"
	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/dsl"
	"github.com/npillmayer/pego/grammar"
	"github.com/npillmayer/pego/peval"
)

func lineGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	b := dsl.New()
	line := b.Seq(b.Re(`[^\n]*`), b.Optional(b.Str("\n")))
	doc := b.Repeat(line, 0, -1)
	b.Rule("doc", doc)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// structEqual compares two arena subtrees by value rather than by index
// (the two arenas being compared are distinct, so node indices will not
// line up even when the trees they describe are identical).
func structEqual(a *arena.Arena, na arena.NodeIndex, b *arena.Arena, nb arena.NodeIndex) bool {
	if na == arena.NilNode || nb == arena.NilNode {
		return na == nb
	}
	x, y := a.Node(na), b.Node(nb)
	if x.Kind != y.Kind {
		return false
	}
	switch x.Kind {
	case arena.KindNil:
		return true
	case arena.KindBool:
		return x.Bool == y.Bool
	case arena.KindInt:
		return x.Int == y.Int
	case arena.KindFloat:
		return x.Float == y.Float
	case arena.KindInputRef:
		return a.Text(x) == b.Text(y)
	case arena.KindStringRef:
		return a.String(x.StrIndex) == b.String(y.StrIndex)
	case arena.KindArray:
		xs, ys := a.Array(x), b.Array(y)
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !structEqual(a, xs[i], b, ys[i]) {
				return false
			}
		}
		return true
	case arena.KindHash:
		xs, ys := a.Hash(x), b.Hash(y)
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if a.String(xs[i].KeyIndex) != b.String(ys[i].KeyIndex) {
				return false
			}
			if !structEqual(a, xs[i].Value, b, ys[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

func freshParse(t *testing.T, g *grammar.Grammar, input string) (*arena.Arena, arena.NodeIndex) {
	t.Helper()
	a := arena.ForInput(len(input))
	p := peval.NewParser(g, input, a)
	root, err := p.Parse()
	if err != nil {
		t.Fatalf("fresh Parse(%q): %v", input, err)
	}
	return a, root
}

// "Reparse(edit) produces a result structurally equal to a fresh full
// parse of the edited input" (spec.md §8, "Incremental equivalence").
func TestReparseMatchesFreshParse(t *testing.T) {
	g := lineGrammar(t)
	initial := "Hello\nWorld\nTest"
	ip := New(g, initial)
	ip.ApplyEdit(Edit{Position: 6, DeleteLen: 0, Insert: "Beautiful "})

	wantInput := "Hello\nBeautiful World\nTest"
	if ip.Input() != wantInput {
		t.Fatalf("Input() = %q, want %q", ip.Input(), wantInput)
	}

	gotArena, gotRoot, err := ip.Reparse()
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	freshArena, freshRoot := freshParse(t, g, wantInput)

	if !structEqual(freshArena, freshRoot, gotArena, gotRoot) {
		t.Error("Reparse result differs structurally from a fresh parse of the edited input")
	}
}

// "Reparse reuses, not merely reproduces, the previous parse's work": an
// edit strictly after a memo entry's consulted range must leave that exact
// entry (the same record) in place, rather than produce a structurally
// equal but freshly recomputed one (spec.md §8, "memo entries for the
// third line remain bit-identical across the edit").
func TestReparseRetainsUnaffectedMemoEntries(t *testing.T) {
	b := dsl.New()
	line := b.Seq(b.Re(`[^\n]*`), b.Optional(b.Str("\n")))
	doc := b.Repeat(line, 0, -1)
	b.Rule("doc", doc)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	initial := "Hello\nWorld\nTest"
	ip := New(g, initial)
	if _, _, err := ip.Reparse(); err != nil {
		t.Fatalf("initial Reparse: %v", err)
	}

	key := peval.MemoKey{Atom: line, Pos: 0}
	before, ok := ip.memo[key]
	if !ok {
		t.Fatalf("expected a memo entry for the first line at position 0")
	}

	// Insert into the second line; the edit's span is empty (no deletion)
	// and begins exactly at the first line's high-water mark, so it must
	// not overlap the first line's consulted range at all.
	ip.ApplyEdit(Edit{Position: 6, DeleteLen: 0, Insert: "Beautiful "})

	after, ok := ip.memo[key]
	if !ok {
		t.Fatalf("first line's memo entry was dropped by an edit entirely after it")
	}
	if after != before {
		t.Error("first line's memo entry should be the exact same retained record, not recomputed")
	}

	if _, _, err := ip.Reparse(); err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	if ip.memo[key] != before {
		t.Error("Reparse must not recompute a memo entry an edit left untouched")
	}
}

func TestInvalidatedByEditOutsideSpanSurvives(t *testing.T) {
	e := Edit{Position: 10, DeleteLen: 2, Insert: "xx"}
	if InvalidatedByEdit(e, 0, 5) {
		t.Error("entry entirely before the edit must survive")
	}
	if InvalidatedByEdit(e, 20, 25) {
		t.Error("entry entirely after the edit must survive (after rebasing)")
	}
}

func TestInvalidatedByEditOverlappingSpanIsInvalidated(t *testing.T) {
	e := Edit{Position: 10, DeleteLen: 2, Insert: "xx"}
	if !InvalidatedByEdit(e, 8, 11) {
		t.Error("entry whose consulted span overlaps the edit must be invalidated")
	}
	if !InvalidatedByEdit(e, 11, 20) {
		t.Error("entry keyed inside the deleted span must be invalidated")
	}
}

func TestRebasePositionShiftsOnlyAfterEdit(t *testing.T) {
	e := Edit{Position: 5, DeleteLen: 2, Insert: "abcd"} // delta = +2
	if got := RebasePosition(e, 3); got != 3 {
		t.Errorf("RebasePosition(before edit) = %d, want 3 (unchanged)", got)
	}
	if got := RebasePosition(e, 7); got != 9 {
		t.Errorf("RebasePosition(after edit) = %d, want 9", got)
	}
}

func TestRebasePositionShrinkingEdit(t *testing.T) {
	e := Edit{Position: 5, DeleteLen: 4, Insert: "x"} // delta = -3
	if got := RebasePosition(e, 9); got != 6 {
		t.Errorf("RebasePosition(after shrinking edit) = %d, want 6", got)
	}
}

func TestDirtyRegionTrackerAccumulatesAndResets(t *testing.T) {
	tr := NewDirtyRegionTracker()
	tr.Add(Region{Span: pego.NewSpan(0, 5)})
	tr.Add(Region{Span: pego.NewSpan(10, 15)})
	if got := tr.Regions(); len(got) != 2 {
		t.Fatalf("Regions() = %v, want 2 entries", got)
	}
	tr.Reset()
	if got := tr.Regions(); len(got) != 0 {
		t.Errorf("Regions() after Reset() = %v, want empty", got)
	}
}

func TestApplyEditPanicsOutOfBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected ApplyEdit to panic on an out-of-bounds edit")
		}
	}()
	ip := New(lineGrammar(t), "short")
	ip.ApplyEdit(Edit{Position: 100, DeleteLen: 0, Insert: "x"})
}

func TestApplyEditTracksDirtyRegion(t *testing.T) {
	ip := New(lineGrammar(t), "Hello\nWorld\nTest")
	ip.ApplyEdit(Edit{Position: 6, DeleteLen: 0, Insert: "Beautiful "})
	regions := ip.dirty.Regions()
	if len(regions) != 1 || regions[0].Span.From() != 6 {
		t.Errorf("dirty regions = %v, want one region starting at 6", regions)
	}
	// Reparse should clear the tracked regions.
	if _, _, err := ip.Reparse(); err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	if len(ip.dirty.Regions()) != 0 {
		t.Error("Reparse should clear tracked dirty regions")
	}
}
