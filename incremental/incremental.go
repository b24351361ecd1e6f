/*
Package incremental implements the incremental reparsing driver of
spec.md §4.4: given a previous parse's retained memo table and a
single-region edit, compute the dirty region the edit invalidates,
discard only the memo entries whose consulted range (from their position
up to their high-water mark) intersects it,
rebase the positions of everything downstream of the edit, and reparse —
reusing whatever memo entries (and arena nodes) the edit leaves
untouched instead of starting over.

The region-tracking shape (a region with a start/end/validity and an
apply-edit step that walks from the edit point outward) is grounded on
original_source/examples/incremental/basic.rs's toy Region/apply_edit
model, here driven by the real packrat memo table instead of a synthetic
line list. The parent-chain walk that rebases retained state after a
structural change mirrors runtime.MemoryFrameStack's discipline of walking
and patching a chain of frames as a whole rather than field by field.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package incremental

import (
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/npillmayer/pego"
	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/grammar"
	"github.com/npillmayer/pego/peval"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.incremental'.
func tracer() tracing.Trace {
	return tracing.Select("pego.incremental")
}

// Edit describes a single replace-in-place edit to the input: DeleteLen
// bytes starting at Position are removed and replaced by Insert.
type Edit struct {
	Position  int
	DeleteLen int
	Insert    string
}

// end returns the position immediately after the deleted span, in the
// pre-edit input.
func (e Edit) end() int { return e.Position + e.DeleteLen }

// delta is how much every position at or after e.end() shifts by.
func (e Edit) delta() int { return len(e.Insert) - e.DeleteLen }

// span is e's deleted range in the pre-edit coordinate space.
func (e Edit) span() pego.Span { return pego.NewSpan(e.Position, e.end()) }

// Region is one span of input flagged as dirtied by an edit, tracked the
// way original_source/examples/incremental/basic.rs's toy Region type
// does, but expressed as a pego.Span over real memo-table positions
// rather than line numbers.
type Region struct {
	Span pego.Span
}

func (r Region) overlaps(pos int) bool {
	return r.Span.Intersects(pego.NewSpan(pos, pos+1))
}

// DirtyRegionTracker accumulates the regions successive edits invalidate,
// backed by an arraylist the way lr's CFSM accumulates edges — an ordered,
// appendable, randomly-indexable sequence with no need for set semantics.
type DirtyRegionTracker struct {
	regions *arraylist.List
}

// NewDirtyRegionTracker creates an empty tracker.
func NewDirtyRegionTracker() *DirtyRegionTracker {
	return &DirtyRegionTracker{regions: arraylist.New()}
}

// Add records r as dirtied.
func (t *DirtyRegionTracker) Add(r Region) {
	t.regions.Add(r)
}

// Regions returns the currently tracked regions in insertion order.
func (t *DirtyRegionTracker) Regions() []Region {
	out := make([]Region, t.regions.Size())
	it := t.regions.Iterator()
	for it.Next() {
		out[it.Index()] = it.Value().(Region)
	}
	return out
}

// Reset discards all tracked regions.
func (t *DirtyRegionTracker) Reset() {
	t.regions = arraylist.New()
}

// --- IncrementalParser ---------------------------------------------------

// IncrementalParser retains one grammar's arena and memo table across a
// sequence of edits to an evolving input string. Each ApplyEdit call
// invalidates only the memo entries an edit's span actually touches and
// rebases the survivors (and the arena's InputRef nodes) into the edited
// input's coordinate space, so the next Reparse re-evaluates only what the
// edit dirtied.
type IncrementalParser struct {
	g     *grammar.Grammar
	input string

	arena *arena.Arena
	memo  map[peval.MemoKey]*peval.MemoEntry

	dirty *DirtyRegionTracker

	opts []peval.Option
}

// New creates an IncrementalParser for g over the initial input. Its arena
// and memo table are created lazily, on the first Reparse.
func New(g *grammar.Grammar, input string, opts ...peval.Option) *IncrementalParser {
	return &IncrementalParser{g: g, input: input, dirty: NewDirtyRegionTracker(), opts: opts}
}

// Input returns the current input snapshot.
func (ip *IncrementalParser) Input() string { return ip.input }

// ApplyEdit applies e to the current input, invalidates the memo entries e
// dirties, rebases the survivors plus the retained arena's InputRef nodes
// into the new input's coordinate space, and records the dirty region. It
// does not reparse; call Reparse to obtain an updated AST.
func (ip *IncrementalParser) ApplyEdit(e Edit) {
	if e.Position < 0 || e.end() > len(ip.input) {
		panic("incremental: edit out of bounds")
	}
	ip.input = ip.input[:e.Position] + e.Insert + ip.input[e.end():]

	if ip.memo != nil {
		rebased := make(map[peval.MemoKey]*peval.MemoEntry, len(ip.memo))
		kept, dropped := 0, 0
		for key, entry := range ip.memo {
			if InvalidatedByEdit(e, key.Pos, entry.High) {
				dropped++
				continue
			}
			newKey := key
			newEntry := entry
			if key.Pos >= e.end() {
				newKey.Pos = RebasePosition(e, key.Pos)
				newEntry = &peval.MemoEntry{
					Status: entry.Status,
					Node:   entry.Node,
					EndPos: RebasePosition(e, entry.EndPos),
					High:   RebasePosition(e, entry.High),
				}
			}
			rebased[newKey] = newEntry
			kept++
		}
		ip.memo = rebased
		tracer().Debugf("edit at %d invalidated %d memo entries, retained %d", e.Position, dropped, kept)
	}
	if ip.arena != nil {
		ip.arena.RebaseInputRefs(e.end(), e.delta())
	}

	ip.dirty.Add(Region{Span: e.span()})
	tracer().Debugf("edit at %d (delete %d, insert %d bytes): input now %d bytes", e.Position, e.DeleteLen, len(e.Insert), len(ip.input))
}

// Reparse evaluates the grammar against the current input, reusing the
// retained arena and memo table (creating them on the first call), and
// clears the dirty-region log. Only memo entries invalidated by an
// intervening ApplyEdit are recomputed; everything else is served
// straight from the retained table, which Reparse then re-retains for the
// next edit.
func (ip *IncrementalParser) Reparse() (*arena.Arena, arena.NodeIndex, error) {
	if ip.arena == nil {
		ip.arena = arena.ForInput(len(ip.input))
	}
	p := peval.NewParserWithMemo(ip.g, ip.input, ip.arena, ip.memo, ip.opts...)
	root, err := p.Parse()
	ip.memo = p.Memo()
	ip.dirty.Reset()
	if err != nil {
		return ip.arena, arena.NilNode, err
	}
	return ip.arena, root, nil
}

// --- standalone helpers for callers retaining their own memo table -------

// InvalidatedByEdit reports whether a memo entry whose key position was
// keyPos and whose high-water mark (the furthest position it consulted,
// see peval.MemoEntry.High) was high must be discarded after e.
//
// An entry survives only if its entire consulted range [keyPos, high) lies
// strictly before the edit, or strictly at-or-after the edit's end with
// positions then rebased via RebasePosition.
func InvalidatedByEdit(e Edit, keyPos, high int) bool {
	consulted := pego.NewSpan(keyPos, high)
	return consulted.Intersects(e.span())
}

// RebasePosition shifts pos by e's length delta if pos lies at or after
// the edit's end in the pre-edit coordinate space; positions before the
// edit are returned unchanged, and positions inside the deleted span are
// undefined (callers must have already discarded anything overlapping via
// InvalidatedByEdit).
func RebasePosition(e Edit, pos int) int {
	if pos < e.end() {
		return pos
	}
	return pego.NewSpan(pos, pos).Shift(e.delta()).From()
}

// RebaseInputRef rebases an arena.Node's Offset (for KindInputRef nodes)
// the same way RebasePosition does, returning the adjusted offset. Length
// is unaffected since an edit strictly outside a retained node's span
// never changes that node's own extent. IncrementalParser itself rebases
// an entire retained arena in one pass via arena.RebaseInputRefs; this
// helper is for callers managing their own arena.Node offsets directly.
func RebaseInputRef(e Edit, offset int) int {
	return RebasePosition(e, offset)
}
