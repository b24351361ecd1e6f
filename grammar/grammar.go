/*
Package grammar implements the atom algebra of a PEG and the immutable
Grammar built from it.

A grammar is a flat table of atoms (see AtomKind) plus a name→atom-index
rule table. Atoms never own other atoms by pointer; children are held as
indices into the same table, so cyclic Ref relationships can exist without
cyclic Go values. This mirrors the way lr.Grammar holds rules referring to
Symbols by value rather than by recursive ownership.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package grammar

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.grammar'.
func tracer() tracing.Trace {
	return tracing.Select("pego.grammar")
}

// AtomKind discriminates the variants of the atom algebra (spec §3).
type AtomKind int

const (
	// KindStr matches a literal byte sequence.
	KindStr AtomKind = iota
	// KindRe matches a compiled regular expression anchored at the
	// current position.
	KindRe
	// KindSeq matches children left to right, failing without consuming
	// on the first child failure.
	KindSeq
	// KindChoice tries children in order, succeeding on the first match.
	KindChoice
	// KindRepeat matches a child greedily between Min and Max times.
	KindRepeat
	// KindOptional is Repeat(child, 0, 1) producing Nil on absence.
	KindOptional
	// KindRef refers to a named rule, resolved to an atom index at Build.
	KindRef
	// KindNot is a negative lookahead.
	KindNot
	// KindAnd is a positive lookahead.
	KindAnd
	// KindAny consumes one UTF-8 codepoint.
	KindAny
	// KindCustom invokes a registered extension atom by numeric id.
	KindCustom
	// KindCapture boxes a child's result in a single-key hash.
	KindCapture
	// KindTag tags a child's result with a symbolic name.
	KindTag
)

func (k AtomKind) String() string {
	switch k {
	case KindStr:
		return "Str"
	case KindRe:
		return "Re"
	case KindSeq:
		return "Seq"
	case KindChoice:
		return "Choice"
	case KindRepeat:
		return "Repeat"
	case KindOptional:
		return "Optional"
	case KindRef:
		return "Ref"
	case KindNot:
		return "Not"
	case KindAnd:
		return "And"
	case KindAny:
		return "Any"
	case KindCustom:
		return "Custom"
	case KindCapture:
		return "Capture"
	case KindTag:
		return "Tag"
	}
	return fmt.Sprintf("AtomKind(%d)", int(k))
}

// TagKey is the reserved hash key under which a KindTag atom's evaluation
// stores its symbolic name, and under which package infix's folded
// operator chains store their "binop" tag. Package transform's Pattern
// matching looks for this key to dispatch a Hash pattern on tag rather
// than on field shape alone.
const TagKey = "@tag"

// TagValueKey is the reserved hash key under which a KindTag atom stores
// its child's result, when that child did not itself evaluate to a Hash.
const TagValueKey = "@value"

// AtomIndex addresses an atom within a Grammar's atom table. It is stable
// once Build() has returned.
type AtomIndex int

// NoAtom is the zero value for "no child"/"unresolved".
const NoAtom AtomIndex = -1

// Atom is one node of the grammar algebra. Which fields are meaningful
// depends on Kind; see the Kind* constants for the per-variant contract.
type Atom struct {
	Kind AtomKind

	Literal string // KindStr: the literal bytes; KindTag/KindCapture: the name
	Pattern string // KindRe: the regex source

	Children []AtomIndex // KindSeq/KindChoice: in order; KindRepeat/Optional/Not/And/Capture/Tag: len 1

	Min, Max    int  // KindRepeat: inclusive bounds; Max<0 means unbounded
	HasMax      bool // KindRepeat: whether Max is present
	RefName     string
	Ref         AtomIndex // KindRef: resolved atom index, set by Build()
	CustomID    uint32    // KindCustom
	Description string    // optional human-readable description, used in error messages
}

func (a Atom) child() AtomIndex {
	if len(a.Children) == 0 {
		return NoAtom
	}
	return a.Children[0]
}

// String renders a short description of the atom, used when reporting
// ParseError.Expected entries.
func (a Atom) String() string {
	if a.Description != "" {
		return a.Description
	}
	switch a.Kind {
	case KindStr:
		return fmt.Sprintf("%q", a.Literal)
	case KindRe:
		return fmt.Sprintf("/%s/", a.Pattern)
	case KindRef:
		return fmt.Sprintf("<%s>", a.RefName)
	case KindAny:
		return "any character"
	case KindCustom:
		return fmt.Sprintf("custom#%d", a.CustomID)
	default:
		return a.Kind.String()
	}
}

// --- Rule table -------------------------------------------------------

// Rule binds a name to an atom within a Grammar.
type Rule struct {
	Name string
	Atom AtomIndex
}

// Grammar is an immutable, built grammar: a frozen atom table plus a
// name→atom-index rule table and an entry-rule pointer. Construct one with
// GrammarBuilder.
type Grammar struct {
	atoms     []Atom
	ruleOrder []string
	ruleIndex map[string]AtomIndex
	entry     string
}

// Atom returns the atom at idx.
func (g *Grammar) Atom(idx AtomIndex) Atom {
	return g.atoms[idx]
}

// NumAtoms returns the number of atoms in the grammar's atom table, i.e.
// the exclusive upper bound for any valid AtomIndex.
func (g *Grammar) NumAtoms() int {
	return len(g.atoms)
}

// RuleAtom looks up the atom index bound to a rule name.
func (g *Grammar) RuleAtom(name string) (AtomIndex, bool) {
	idx, ok := g.ruleIndex[name]
	return idx, ok
}

// EntryRule returns the name of the entry rule (the first rule added,
// unless overridden).
func (g *Grammar) EntryRule() string {
	return g.entry
}

// EntryAtom returns the atom index of the entry rule.
func (g *Grammar) EntryAtom() AtomIndex {
	return g.ruleIndex[g.entry]
}

// Rules returns the rule names in the order they were added.
func (g *Grammar) Rules() []string {
	out := make([]string, len(g.ruleOrder))
	copy(out, g.ruleOrder)
	return out
}

// --- GrammarError -------------------------------------------------------

// GrammarErrorKind discriminates build-time grammar errors (spec §7).
type GrammarErrorKind int

const (
	// ErrUnresolvedRef: a Ref(name) could not be resolved to a rule.
	ErrUnresolvedRef GrammarErrorKind = iota
	// ErrDuplicateRule: a rule name was bound twice after freeze.
	ErrDuplicateRule
	// ErrEmptyGrammar: Build() was called with no rules.
	ErrEmptyGrammar
	// ErrAssocConflict: the infix builder detected a non-associativity
	// conflict (two equal-precedence "none"-assoc operators in sequence).
	ErrAssocConflict
)

// GrammarError is returned by GrammarBuilder.Build on a malformed grammar,
// and by infix.FoldAll (kind ErrAssocConflict) when it folds a chain that
// breaks a non-associative operator's rule.
type GrammarError struct {
	Kind GrammarErrorKind
	Name string // rule or atom name implicated, if any
	Msg  string
}

func (e *GrammarError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("grammar error: %s (%s)", e.Msg, e.Name)
	}
	return fmt.Sprintf("grammar error: %s", e.Msg)
}

// --- GrammarBuilder -----------------------------------------------------

// GrammarBuilder constructs an immutable Grammar from named rules. Each
// Rule call assigns the atom a fresh index and binds name→index.
// UpdateRule is allowed before Build and replaces the binding — this is
// what lets the infix builder register a placeholder rule before it can
// resolve its primary atom's Ref (see package infix).
type GrammarBuilder struct {
	atoms     []Atom
	ruleOrder []string
	ruleIndex map[string]AtomIndex
	entry     string
	built     bool

	// plainRuleCalls records every name passed to Rule (not UpdateRule),
	// in call order and without deduplication, so Build can detect a
	// name bound twice through the ordinary path — as opposed to the
	// deliberate rebind UpdateRule exists for.
	plainRuleCalls []string
}

// NewGrammarBuilder creates an empty builder.
func NewGrammarBuilder() *GrammarBuilder {
	return &GrammarBuilder{
		ruleIndex: make(map[string]AtomIndex),
	}
}

// Add appends an atom to the builder's atom table and returns its index.
// Use this to construct children before wiring them into Seq/Choice/etc,
// or call the helpers in package dsl which do this for you.
func (b *GrammarBuilder) Add(a Atom) AtomIndex {
	idx := AtomIndex(len(b.atoms))
	b.atoms = append(b.atoms, a)
	return idx
}

// Rule binds name to the atom at idx. The first rule added becomes the
// entry rule unless SetEntry is called explicitly.
func (b *GrammarBuilder) Rule(name string, idx AtomIndex) *GrammarBuilder {
	b.plainRuleCalls = append(b.plainRuleCalls, name)
	if _, exists := b.ruleIndex[name]; !exists {
		b.ruleOrder = append(b.ruleOrder, name)
	}
	b.ruleIndex[name] = idx
	if b.entry == "" {
		b.entry = name
	}
	tracer().Debugf("rule %q -> atom#%d", name, idx)
	return b
}

// UpdateRule replaces the binding for an existing rule name. Allowed only
// before Build(); used to patch a placeholder rule with its real atom
// once the atom graph referring to it has been constructed.
func (b *GrammarBuilder) UpdateRule(name string, idx AtomIndex) *GrammarBuilder {
	if _, exists := b.ruleIndex[name]; !exists {
		return b.Rule(name, idx)
	}
	b.ruleIndex[name] = idx
	tracer().Debugf("rule %q updated -> atom#%d", name, idx)
	return b
}

// SetEntry overrides which rule is the parse entry point.
func (b *GrammarBuilder) SetEntry(name string) *GrammarBuilder {
	b.entry = name
	return b
}

// Build freezes the builder into a Grammar, eagerly resolving every
// KindRef atom's RefName to its atom index. Returns a GrammarError if any
// Ref is unresolved or the rule set is empty.
func (b *GrammarBuilder) Build() (*Grammar, error) {
	if len(b.ruleOrder) == 0 {
		return nil, &GrammarError{Kind: ErrEmptyGrammar, Msg: "grammar must have at least one rule"}
	}
	names := treeset.NewWithStringComparator()
	for _, n := range b.plainRuleCalls {
		if names.Contains(n) {
			return nil, &GrammarError{Kind: ErrDuplicateRule, Name: n, Msg: "duplicate rule name after freeze"}
		}
		names.Add(n)
	}
	atoms := make([]Atom, len(b.atoms))
	copy(atoms, b.atoms)
	for i, a := range atoms {
		if a.Kind == KindRef {
			target, ok := b.ruleIndex[a.RefName]
			if !ok {
				return nil, &GrammarError{Kind: ErrUnresolvedRef, Name: a.RefName, Msg: "unresolved rule reference"}
			}
			a.Ref = target
			atoms[i] = a
		}
	}
	g := &Grammar{
		atoms:     atoms,
		ruleOrder: append([]string(nil), b.ruleOrder...),
		ruleIndex: make(map[string]AtomIndex, len(b.ruleIndex)),
		entry:     b.entry,
	}
	for k, v := range b.ruleIndex {
		g.ruleIndex[k] = v
	}
	tracer().Infof("grammar built: %d rules, %d atoms, entry=%q", len(g.ruleOrder), len(g.atoms), g.entry)
	return g, nil
}
