/*
Package peval implements the packrat evaluator: a memoizing recursive
descent over a grammar.Grammar's atom table, producing an AST in an
arena.Arena. This is the core engine named in spec.md §4.2.

The evaluator is structured the way gorgo's lr/earley.Parser is: a small
struct carrying immutable inputs (grammar, arena) plus mutable run state (a
memo table, a deepest-failure cursor), a handful of functional Options, and
a tracer() selected once per package. Unlike earley's chart, the memo table
here is keyed by (atom, position) rather than (symbol, chart-column), since
packrat parsing has no need for Earley items or prediction sets — ordered
choice resolves ambiguity at grammar-authoring time instead of at parse
time.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package peval

import (
	"unicode/utf8"

	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/customatom"
	"github.com/npillmayer/pego/grammar"
	"github.com/npillmayer/pego/regexcache"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.peval'.
func tracer() tracing.Trace {
	return tracing.Select("pego.peval")
}

func decodeRuneSize(s string) (rune, int) {
	return utf8.DecodeRuneInString(s)
}

// --- memo table ----------------------------------------------------------

// MemoStatus discriminates a MemoEntry's outcome. MemoInProgress is an
// internal sentinel installed while an atom is being evaluated (used to
// detect left recursion, see eval below); it never appears in an entry a
// caller retains after Parser.Parse returns, since every InProgress
// sentinel is replaced before Parse completes.
type MemoStatus int

const (
	MemoInProgress MemoStatus = iota
	MemoSuccess
	MemoFailure
)

// MemoKey identifies one packrat memo-table slot: an atom and the input
// position it was (or is being) evaluated at.
type MemoKey struct {
	Atom grammar.AtomIndex
	Pos  int
}

// MemoEntry is one memo-table record, per spec.md §3 ("Memo table"). High
// records the furthest input position consulted while producing this
// entry — including positions touched by alternatives or repetitions that
// were ultimately discarded — and is what package incremental uses to
// decide which entries an edit invalidates. Exported so package
// incremental can retain, invalidate, and rebase a Parser's memo table
// across edits instead of discarding it at the end of every parse.
type MemoEntry struct {
	Status MemoStatus
	Node   arena.NodeIndex
	EndPos int
	High   int
}

// --- Options ---------------------------------------------------------

// Option configures a Parser at construction time.
type Option func(*Parser)

// SurfaceLeftRecursion controls whether a detected left-recursion cycle is
// reported as a distinct ErrLeftRecursion ParseError (true) or simply
// treated as a local parse failure at that position, letting an
// alternative branch of an enclosing Choice take over (false, the
// default). Left recursion is always non-fatal to the parse itself; this
// only affects what Parse returns when the *overall* parse ultimately
// fails and left recursion was encountered along the way.
func SurfaceLeftRecursion(surface bool) Option {
	return func(p *Parser) { p.surfaceLeftRecursion = surface }
}

// Partial allows a successful parse to leave unconsumed trailing input
// without that being reported as a TrailingInput error. Off by default:
// spec.md's external interface describes whole-input parsing as the
// normative mode.
func Partial(partial bool) Option {
	return func(p *Parser) { p.partial = partial }
}

// --- Parser ---------------------------------------------------------

// Parser evaluates one grammar.Grammar against one input string, writing
// its result AST into one arena.Arena. A Parser is single-use: construct a
// fresh one (or use package incremental) per parse.
type Parser struct {
	g     *grammar.Grammar
	input string
	arena *arena.Arena

	surfaceLeftRecursion bool
	partial              bool

	memo map[MemoKey]*MemoEntry

	cursor *deepestCursor

	ruleStack    []string
	ruleByAtom   map[grammar.AtomIndex]string
	hitLeftRecur bool

	fatalErr error
}

// NewParser constructs a Parser for g against input, writing nodes into a.
// a.SetInput(input) is called for you.
func NewParser(g *grammar.Grammar, input string, a *arena.Arena, opts ...Option) *Parser {
	return NewParserWithMemo(g, input, a, nil, opts...)
}

// NewParserWithMemo is NewParser, seeded with a retained memo table from a
// prior parse — the hook package incremental drives to reuse unaffected
// (atom, position) results across an edit instead of reparsing the whole
// input from scratch. A nil memo behaves exactly like NewParser. The
// Parser takes ownership of memo (it is written to during Parse); callers
// that want to keep their own copy must clone it first.
func NewParserWithMemo(g *grammar.Grammar, input string, a *arena.Arena, memo map[MemoKey]*MemoEntry, opts ...Option) *Parser {
	a.SetInput(input)
	if memo == nil {
		memo = make(map[MemoKey]*MemoEntry)
	}
	p := &Parser{
		g:      g,
		input:  input,
		arena:  a,
		memo:   memo,
		cursor: newDeepestCursor(),
	}
	p.ruleByAtom = make(map[grammar.AtomIndex]string, len(g.Rules()))
	for _, name := range g.Rules() {
		if idx, ok := g.RuleAtom(name); ok {
			p.ruleByAtom[idx] = name
		}
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Memo returns the Parser's memo table as it stands after Parse returns
// (or mid-parse, though no caller needs that). Package incremental calls
// this after a parse to retain the table — with invalidated entries
// dropped and survivors rebased — across the next edit.
func (p *Parser) Memo() map[MemoKey]*MemoEntry {
	return p.memo
}

// Parse runs the grammar's entry rule against the whole input. On success
// it returns the root AST node. On failure it returns a *ParseError
// describing the deepest position reached and what was expected there.
func (p *Parser) Parse() (arena.NodeIndex, error) {
	entry := p.g.EntryAtom()
	tracer().Infof("parse starting at entry rule %q", p.g.EntryRule())
	node, end, ok := p.eval(entry, 0)
	if p.fatalErr != nil {
		return arena.NilNode, p.fatalErr
	}
	if !ok {
		return arena.NilNode, p.buildError()
	}
	if !p.partial && end != len(p.input) {
		line, col := lineColumn(p.input, end)
		return arena.NilNode, &ParseError{
			Kind:     ErrTrailingInput,
			Position: end,
			Line:     line,
			Column:   col,
			Found:    foundSlice(p.input, end),
		}
	}
	tracer().Infof("parse succeeded, consumed %d/%d bytes", end, len(p.input))
	return node, nil
}

func (p *Parser) buildError() error {
	kind := ErrUnexpected
	if p.hitLeftRecursion() {
		kind = ErrLeftRecursion
	}
	pos := p.cursor.pos
	if pos < 0 {
		pos = 0
	}
	line, col := lineColumn(p.input, pos)
	return &ParseError{
		Kind:      kind,
		Position:  pos,
		Line:      line,
		Column:    col,
		Expected:  p.cursor.expectedSlice(),
		RuleStack: p.cursor.ruleStack,
		Found:     foundSlice(p.input, pos),
	}
}

func (p *Parser) hitLeftRecursion() bool {
	return p.surfaceLeftRecursion && p.hitLeftRecur
}

// eval evaluates the atom at idx at position pos, transparently unwrapping
// KindRef atoms so that memoization (and left-recursion detection) keys on
// the referenced atom, not the reference itself (spec.md §4.2: "memoization
// is keyed on the referenced atom's index so cross-rule sharing works").
func (p *Parser) eval(idx grammar.AtomIndex, pos int) (arena.NodeIndex, int, bool) {
	if p.fatalErr != nil {
		return arena.NilNode, pos, false
	}
	a := p.g.Atom(idx)
	if a.Kind == grammar.KindRef {
		if name, ok := p.ruleByAtom[a.Ref]; ok {
			p.ruleStack = append(p.ruleStack, name)
			defer func() { p.ruleStack = p.ruleStack[:len(p.ruleStack)-1] }()
		}
		return p.eval(a.Ref, pos)
	}

	key := MemoKey{Atom: idx, Pos: pos}
	if e, ok := p.memo[key]; ok {
		switch e.Status {
		case MemoSuccess:
			return e.Node, e.EndPos, true
		case MemoFailure:
			return arena.NilNode, pos, false
		default: // MemoInProgress: left recursion
			p.hitLeftRecur = true
			tracer().Debugf("left recursion detected on atom#%d at pos %d", idx, pos)
			return arena.NilNode, pos, false
		}
	}

	p.memo[key] = &MemoEntry{Status: MemoInProgress, High: pos}
	node, end, high, ok := p.evalAtom(a, idx, pos)
	if ok {
		p.memo[key] = &MemoEntry{Status: MemoSuccess, Node: node, EndPos: end, High: high}
	} else {
		p.memo[key] = &MemoEntry{Status: MemoFailure, High: high}
	}
	return node, end, ok
}

// evalAtom dispatches on atom kind. It returns (node, end, high, ok) where
// high is the furthest input position consulted by this evaluation,
// including positions touched by discarded alternatives.
func (p *Parser) evalAtom(a grammar.Atom, idx grammar.AtomIndex, pos int) (arena.NodeIndex, int, int, bool) {
	switch a.Kind {
	case grammar.KindStr:
		return p.evalStr(a, pos)
	case grammar.KindRe:
		return p.evalRe(a, pos)
	case grammar.KindSeq:
		return p.evalSeq(a, pos)
	case grammar.KindChoice:
		return p.evalChoice(a, pos)
	case grammar.KindRepeat:
		return p.evalRepeat(a, pos, a.Min, a.Max, a.HasMax)
	case grammar.KindOptional:
		return p.evalOptional(a, pos)
	case grammar.KindNot:
		return p.evalNot(a, pos)
	case grammar.KindAnd:
		return p.evalAnd(a, pos)
	case grammar.KindAny:
		return p.evalAny(pos)
	case grammar.KindCustom:
		return p.evalCustom(a, pos)
	case grammar.KindCapture:
		return p.evalCapture(a, pos)
	case grammar.KindTag:
		return p.evalTag(a, pos)
	}
	panic("peval: unhandled atom kind")
}

func (p *Parser) evalStr(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	lit := a.Literal
	end := pos + len(lit)
	high := end
	if high > len(p.input) {
		high = len(p.input)
	}
	if end > len(p.input) || p.input[pos:end] != lit {
		p.recordFailure(a, pos)
		return arena.NilNode, pos, high, false
	}
	return p.arena.PushInputRef(pos, len(lit)), end, high, true
}

func (p *Parser) evalRe(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	re, err := regexcache.GetOrCompile(a.Pattern)
	if err != nil {
		p.fatalErr = err
		return arena.NilNode, pos, pos, false
	}
	loc := re.FindStringIndex(p.input[pos:])
	if loc == nil {
		p.recordFailure(a, pos)
		// no match: conservatively assume the whole remaining input could
		// have been consulted (regex engines do not expose how far they
		// looked on failure).
		return arena.NilNode, pos, len(p.input), false
	}
	end := pos + loc[1]
	return p.arena.PushInputRef(pos, loc[1]-loc[0]), end, end, true
}

func (p *Parser) evalSeq(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	items := make([]arena.NodeIndex, 0, len(a.Children))
	cur := pos
	high := pos
	for _, c := range a.Children {
		node, end, ok := p.eval(c, cur)
		if h := p.lastHigh(c, cur); h > high {
			high = h
		}
		if !ok {
			return arena.NilNode, pos, high, false
		}
		items = append(items, node)
		cur = end
	}
	return p.arena.PushArray(items), cur, high, true
}

func (p *Parser) evalChoice(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	high := pos
	for _, c := range a.Children {
		node, end, ok := p.eval(c, pos)
		if h := p.lastHigh(c, pos); h > high {
			high = h
		}
		if ok {
			return node, end, high, true
		}
	}
	return arena.NilNode, pos, high, false
}

func (p *Parser) evalRepeat(a grammar.Atom, pos, min, max int, hasMax bool) (arena.NodeIndex, int, int, bool) {
	child := a.child()
	items := make([]arena.NodeIndex, 0, 4)
	cur := pos
	high := pos
	count := 0
	for {
		if hasMax && count >= max {
			break
		}
		node, end, ok := p.eval(child, cur)
		if h := p.lastHigh(child, cur); h > high {
			high = h
		}
		if !ok {
			break
		}
		if end == cur {
			// zero-width match: stop to avoid an infinite loop, the
			// iteration still "succeeded" so it counts toward min.
			items = append(items, node)
			count++
			break
		}
		items = append(items, node)
		cur = end
		count++
	}
	if count < min {
		return arena.NilNode, pos, high, false
	}
	return p.arena.PushArray(items), cur, high, true
}

// evalOptional implements KindOptional as spec.md §3 defines it: unlike
// Repeat(child, 0, 1), which would wrap its result in a one- or
// zero-element Array, Optional produces Nil on absence and the child's own
// node, unwrapped, on presence.
func (p *Parser) evalOptional(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	child := a.child()
	node, end, ok := p.eval(child, pos)
	high := p.lastHigh(child, pos)
	if !ok {
		return p.arena.PushNil(), pos, high, true
	}
	return node, end, high, true
}

func (p *Parser) evalNot(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	child := a.child()
	_, _, ok := p.eval(child, pos)
	high := p.lastHigh(child, pos)
	if ok {
		p.recordFailure(a, pos)
		return arena.NilNode, pos, high, false
	}
	return p.arena.PushNil(), pos, high, true
}

func (p *Parser) evalAnd(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	child := a.child()
	_, _, ok := p.eval(child, pos)
	high := p.lastHigh(child, pos)
	if !ok {
		return arena.NilNode, pos, high, false
	}
	return p.arena.PushNil(), pos, high, true
}

func (p *Parser) evalAny(pos int) (arena.NodeIndex, int, int, bool) {
	if pos >= len(p.input) {
		return arena.NilNode, pos, pos, false
	}
	_, size := decodeRuneSize(p.input[pos:])
	end := pos + size
	return p.arena.PushInputRef(pos, size), end, end, true
}

func (p *Parser) evalCustom(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	ca, ok := customatom.Lookup(a.CustomID)
	if !ok {
		p.fatalErr = &customatom.CustomAtomError{Kind: customatom.ErrNotRegistered, ID: a.CustomID}
		return arena.NilNode, pos, pos, false
	}
	res, ok := ca.Parse(p.input, pos)
	if !ok {
		p.recordFailure(a, pos)
		return arena.NilNode, pos, pos, false
	}
	node := materializeValue(p.arena, res.Value, p.input, pos, res.EndPos)
	return node, res.EndPos, res.EndPos, true
}

func (p *Parser) evalCapture(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	child := a.child()
	node, end, ok := p.eval(child, pos)
	high := p.lastHigh(child, pos)
	if !ok {
		return arena.NilNode, pos, high, false
	}
	key := p.arena.InternString(a.Literal)
	hashNode := p.arena.PushHash([]arena.HashEntry{{KeyIndex: key, Value: node}})
	return hashNode, end, high, true
}

func (p *Parser) evalTag(a grammar.Atom, pos int) (arena.NodeIndex, int, int, bool) {
	child := a.child()
	node, end, ok := p.eval(child, pos)
	high := p.lastHigh(child, pos)
	if !ok {
		return arena.NilNode, pos, high, false
	}
	tagKey := p.arena.InternString(grammar.TagKey)
	tagVal := p.arena.PushString(a.Literal)
	childN := p.arena.Node(node)
	if childN.Kind == arena.KindHash {
		entries := append([]arena.HashEntry{{KeyIndex: tagKey, Value: tagVal}}, p.arena.Hash(childN)...)
		return p.arena.PushHash(entries), end, high, true
	}
	valKey := p.arena.InternString(grammar.TagValueKey)
	hashNode := p.arena.PushHash([]arena.HashEntry{
		{KeyIndex: tagKey, Value: tagVal},
		{KeyIndex: valKey, Value: node},
	})
	return hashNode, end, high, true
}

// lastHigh retrieves the high-water mark recorded for (child, pos) by the
// memo entry the preceding eval call just wrote or read. child must have
// already been through eval at pos in this same call.
func (p *Parser) lastHigh(child grammar.AtomIndex, pos int) int {
	a := p.g.Atom(child)
	if a.Kind == grammar.KindRef {
		return p.lastHigh(a.Ref, pos)
	}
	if e, ok := p.memo[MemoKey{Atom: child, Pos: pos}]; ok {
		return e.High
	}
	return pos
}

func (p *Parser) recordFailure(a grammar.Atom, pos int) {
	p.cursor.record(a.String(), pos, p.ruleStack)
}
