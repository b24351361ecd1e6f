/*
Package transform implements the pattern-matching rewrite engine of
spec.md §4.6: a generic Value tree (the target-language-agnostic read of
an arena AST), a small Pattern language over it, and a Transform that
applies named (pattern, handler) rules bottom-up in a single pass to turn
a generic Value into caller-defined typed data.

Value and its accessors are a close port of
original_source/src/portable/transform.rs's `PortableValue` enum and its
`as_int`/`as_str`/`as_hash`/... accessor methods. The rewrite engine itself
(bottom-up, pattern-then-handler, first-match-wins) is grounded on
terex/termr/rewrite.go's RewriteRule{Pattern, Rewrite} and its depth-first
Match/RewriteWith application.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package transform

import (
	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.transform'.
func tracer() tracing.Trace {
	return tracing.Select("pego.transform")
}

// ValueKind discriminates Value's variants.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindHash
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindHash:
		return "Hash"
	}
	return "ValueKind(?)"
}

// Field is one named entry of a Hash value, order-preserving.
type Field struct {
	Name  string
	Value Value
}

// Value is the generic, language-agnostic tree a parsed AST is converted
// to before pattern matching — the transform package's equivalent of
// terex's Atom/GCons, but a plain struct sum type rather than a Lisp cons
// cell, since nothing here needs structural sharing or a symbol table.
type Value struct {
	kind  ValueKind
	b     bool
	i     int64
	f     float64
	s     string
	arr   []Value
	hash  []Field
}

// Nil is the absent value.
func Nil() Value { return Value{kind: KindNil} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps an ordered sequence of values.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), items...)}
}

// Hash wraps an ordered set of named fields.
func Hash(fields ...Field) Value {
	return Value{kind: KindHash, hash: append([]Field(nil), fields...)}
}

// Kind reports v's variant.
func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns v's boolean payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns v's integer payload and whether v is an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns v's float payload and whether v is a Float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns v's string payload and whether v is a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns v's element slice and whether v is an Array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsHash returns v's field slice and whether v is a Hash.
func (v Value) AsHash() ([]Field, bool) {
	if v.kind != KindHash {
		return nil, false
	}
	return v.hash, true
}

// Get looks up a named field, valid only when v is a Hash.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindHash {
		return Value{}, false
	}
	for _, f := range v.hash {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Tag is a convenience for Get(grammar.TagKey) followed by AsString,
// reading the symbolic tag a KindTag atom or the infix builder attached.
func (v Value) Tag() (string, bool) {
	t, ok := v.Get(tagKeyName)
	if !ok {
		return "", false
	}
	return t.AsString()
}

// tagKeyName mirrors grammar.TagKey. Kept as a local literal rather than
// importing package grammar, which otherwise has no reason to be a
// dependency of transform; value_test.go asserts the two stay in sync.
const tagKeyName = "@tag"

// FromArena converts the arena AST rooted at idx into a Value tree. This
// is a pure, side-effect-free walk: it never mutates a.
func FromArena(a *arena.Arena, idx arena.NodeIndex) Value {
	if idx == arena.NilNode {
		return Nil()
	}
	n := a.Node(idx)
	switch n.Kind {
	case arena.KindNil:
		return Nil()
	case arena.KindBool:
		return Bool(n.Bool)
	case arena.KindInt:
		return Int(n.Int)
	case arena.KindFloat:
		return Float(n.Float)
	case arena.KindInputRef:
		return Str(a.Text(n))
	case arena.KindStringRef:
		return Str(a.String(n.StrIndex))
	case arena.KindArray:
		children := a.Array(n)
		items := make([]Value, len(children))
		for i, c := range children {
			items[i] = FromArena(a, c)
		}
		return Value{kind: KindArray, arr: items}
	case arena.KindHash:
		entries := a.Hash(n)
		fields := make([]Field, len(entries))
		for i, e := range entries {
			fields[i] = Field{Name: a.String(e.KeyIndex), Value: FromArena(a, e.Value)}
		}
		return Value{kind: KindHash, hash: fields}
	}
	return Nil()
}
