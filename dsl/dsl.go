/*
Package dsl provides the thin grammar-authoring helpers named in spec.md
§6 ("Grammar DSL surface (abstract)"). These are pure constructors over
package grammar's atom table; they carry no semantics of their own beyond
assembling Atom values, matching the spec's framing of the DSL as an
external collaborator to the core.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dsl

import "github.com/npillmayer/pego/grammar"

// Builder wraps a grammar.GrammarBuilder with the DSL helper functions
// bound to it, so call sites read as e.g. b.Rule("x", b.Str("x")).
type Builder struct {
	*grammar.GrammarBuilder
}

// New creates an empty grammar builder.
func New() *Builder {
	return &Builder{grammar.NewGrammarBuilder()}
}

// Str matches a literal byte sequence.
func (b *Builder) Str(lit string) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindStr, Literal: lit})
}

// Re matches a regular expression anchored at the current position.
func (b *Builder) Re(pattern string) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindRe, Pattern: pattern})
}

// Seq matches children left to right.
func (b *Builder) Seq(children ...grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindSeq, Children: children})
}

// Choice tries children in order, succeeding on the first match.
func (b *Builder) Choice(children ...grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindChoice, Children: children})
}

// Repeat matches child greedily between min and max times (max<0 means
// unbounded).
func (b *Builder) Repeat(child grammar.AtomIndex, min, max int) grammar.AtomIndex {
	return b.Add(grammar.Atom{
		Kind:     grammar.KindRepeat,
		Children: []grammar.AtomIndex{child},
		Min:      min,
		Max:      max,
		HasMax:   max >= 0,
	})
}

// Optional matches child zero or one times.
func (b *Builder) Optional(child grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindOptional, Children: []grammar.AtomIndex{child}})
}

// Ref refers to a named rule, resolved at Build().
func (b *Builder) Ref(name string) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindRef, RefName: name})
}

// Any consumes one UTF-8 codepoint.
func (b *Builder) Any() grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindAny})
}

// Not is a negative lookahead.
func (b *Builder) Not(child grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindNot, Children: []grammar.AtomIndex{child}})
}

// And is a positive lookahead.
func (b *Builder) And(child grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindAnd, Children: []grammar.AtomIndex{child}})
}

// Custom invokes a registered extension atom by numeric id.
func (b *Builder) Custom(id uint32) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindCustom, CustomID: id})
}

// Capture boxes child's result in a single-key hash under name.
func (b *Builder) Capture(name string, child grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindCapture, Literal: name, Children: []grammar.AtomIndex{child}})
}

// Tag tags child's result with a symbolic name, used by transform patterns.
func (b *Builder) Tag(name string, child grammar.AtomIndex) grammar.AtomIndex {
	return b.Add(grammar.Atom{Kind: grammar.KindTag, Literal: name, Children: []grammar.AtomIndex{child}})
}
