package transform

import "fmt"

// PatternKind discriminates Pattern's variants (spec.md §4.6: "Pattern
// types (Simple/Str/Int/Float/Bool/Nil/Array/Hash)").
type PatternKind int

const (
	// KindPatternSimple matches any value and, if Name is non-empty, binds
	// it in Bindings under that name.
	KindPatternSimple PatternKind = iota
	KindPatternStr
	KindPatternInt
	KindPatternFloat
	KindPatternBool
	KindPatternNil
	KindPatternArray
	KindPatternHash
)

// Pattern is one node of the pattern language matched against a Value
// tree by Transform.Apply.
type Pattern struct {
	Kind PatternKind

	// KindPatternSimple: if non-empty, bind the matched value under this
	// name. An empty Name with KindPatternSimple matches anything
	// unconditionally without binding ("_").
	Name string

	Str   string  // KindPatternStr
	Int   int64   // KindPatternInt
	Float float64 // KindPatternFloat
	Bool  bool    // KindPatternBool

	// KindPatternArray: positional element patterns. If Tail is non-empty,
	// Items may match a strict prefix and the remaining elements (zero or
	// more) are bound as an Array value under the name Tail; without Tail
	// the value must have exactly len(Items) elements.
	Items []Pattern
	Tail  string

	// KindPatternHash: named field patterns. If Exact, the value must have
	// no fields beyond Fields; otherwise extra fields are ignored.
	Fields []FieldPattern
	Exact  bool
}

// FieldPattern matches one named field of a KindPatternHash pattern.
type FieldPattern struct {
	Name    string
	Pattern Pattern
}

// Simple builds an unconditional bind-anything pattern. An empty name
// matches without binding.
func Simple(name string) Pattern { return Pattern{Kind: KindPatternSimple, Name: name} }

// PStr, PInt, PFloat, PBool, and PNil build literal-match patterns.
func PStr(s string) Pattern     { return Pattern{Kind: KindPatternStr, Str: s} }
func PInt(i int64) Pattern      { return Pattern{Kind: KindPatternInt, Int: i} }
func PFloat(f float64) Pattern  { return Pattern{Kind: KindPatternFloat, Float: f} }
func PBool(b bool) Pattern      { return Pattern{Kind: KindPatternBool, Bool: b} }
func PNil() Pattern             { return Pattern{Kind: KindPatternNil} }

// PArray builds an exact-length array pattern.
func PArray(items ...Pattern) Pattern {
	return Pattern{Kind: KindPatternArray, Items: items}
}

// PArrayTail builds an array pattern matching a prefix of items followed
// by zero or more elements bound as an array under tailName.
func PArrayTail(tailName string, items ...Pattern) Pattern {
	return Pattern{Kind: KindPatternArray, Items: items, Tail: tailName}
}

// PHash builds a hash pattern. If exact, the matched value must carry no
// fields beyond fields.
func PHash(exact bool, fields ...FieldPattern) Pattern {
	return Pattern{Kind: KindPatternHash, Fields: fields, Exact: exact}
}

// Bindings holds the named captures produced by a successful Match.
type Bindings map[string]Value

// Match attempts to match p against v, returning the bindings captured
// along the way on success.
func Match(p Pattern, v Value) (Bindings, bool) {
	b := make(Bindings)
	if matchInto(p, v, b) {
		return b, true
	}
	return nil, false
}

func matchInto(p Pattern, v Value, b Bindings) bool {
	switch p.Kind {
	case KindPatternSimple:
		if p.Name != "" {
			b[p.Name] = v
		}
		return true
	case KindPatternStr:
		s, ok := v.AsString()
		return ok && s == p.Str
	case KindPatternInt:
		i, ok := v.AsInt()
		return ok && i == p.Int
	case KindPatternFloat:
		f, ok := v.AsFloat()
		return ok && f == p.Float
	case KindPatternBool:
		bo, ok := v.AsBool()
		return ok && bo == p.Bool
	case KindPatternNil:
		return v.Kind() == KindNil
	case KindPatternArray:
		items, ok := v.AsArray()
		if !ok {
			return false
		}
		if p.Tail == "" {
			if len(items) != len(p.Items) {
				return false
			}
		} else if len(items) < len(p.Items) {
			return false
		}
		for i, ip := range p.Items {
			if !matchInto(ip, items[i], b) {
				return false
			}
		}
		if p.Tail != "" {
			b[p.Tail] = Array(items[len(p.Items):]...)
		}
		return true
	case KindPatternHash:
		fields, ok := v.AsHash()
		if !ok {
			return false
		}
		if p.Exact && len(fields) != len(p.Fields) {
			return false
		}
		for _, fp := range p.Fields {
			fv, present := v.Get(fp.Name)
			if !present {
				return false
			}
			if !matchInto(fp.Pattern, fv, b) {
				return false
			}
		}
		return true
	}
	return false
}

// Handler produces a replacement Value from the bindings a Pattern
// captured. Returning a *TransformError aborts Transform.Apply entirely.
type Handler func(Bindings) (Value, error)

// TransformErrorKind discriminates transform-package errors.
type TransformErrorKind int

const (
	// ErrUnmatched is reserved for callers that want to signal "this node
	// should have matched a rule but didn't" from within a Handler; the
	// engine itself never returns it (an unmatched node simply passes
	// through unchanged, per spec.md §4.6).
	ErrUnmatched TransformErrorKind = iota
	// ErrCustom is a handler-raised error with an arbitrary message.
	ErrCustom
)

// TransformError is the error type Handler and Transform.Apply return.
type TransformError struct {
	Kind TransformErrorKind
	Msg  string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform: %s", e.Msg)
}

type boundRule struct {
	name    string
	pattern Pattern
	handler Handler
}

// Transform is an ordered set of (pattern, handler) rules applied
// bottom-up, single-pass, first-match-wins, mirroring
// terex/termr/rewrite.go's RewriteRule application.
type Transform struct {
	rules []boundRule
}

// New creates an empty Transform.
func New() *Transform { return &Transform{} }

// Rule appends a named rule. Rules are tried in registration order at each
// node; the first whose pattern matches has its handler applied.
func (t *Transform) Rule(name string, p Pattern, h Handler) *Transform {
	t.rules = append(t.rules, boundRule{name: name, pattern: p, handler: h})
	return t
}

// Apply rewrites v bottom-up: every child of an Array or Hash value is
// transformed first (recursively, depth-first), and only then are this
// Transform's rules tried against the (already-transformed) value itself.
// A node with no matching rule passes through unchanged, structurally
// rebuilt from its (possibly transformed) children.
func (t *Transform) Apply(v Value) (Value, error) {
	switch v.Kind() {
	case KindArray:
		items, _ := v.AsArray()
		out := make([]Value, len(items))
		for i, it := range items {
			nv, err := t.Apply(it)
			if err != nil {
				return Value{}, err
			}
			out[i] = nv
		}
		v = Value{kind: KindArray, arr: out}
	case KindHash:
		fields, _ := v.AsHash()
		out := make([]Field, len(fields))
		for i, f := range fields {
			nv, err := t.Apply(f.Value)
			if err != nil {
				return Value{}, err
			}
			out[i] = Field{Name: f.Name, Value: nv}
		}
		v = Value{kind: KindHash, hash: out}
	}
	for _, r := range t.rules {
		b, ok := Match(r.pattern, v)
		if !ok {
			continue
		}
		result, err := r.handler(b)
		if err != nil {
			return Value{}, err
		}
		tracer().Debugf("rule %q matched, rewrote a %s node", r.name, v.Kind())
		return result, nil
	}
	return v, nil
}
