/*
Package infix implements the precedence-climbing operator builder of
spec.md §4.3: given a primary-expression atom and a table of infix
operators, it assembles a grammar rule that parses a flat left-to-right
chain of `primary (op primary)*`, tagged so that FoldAll can later rewrite it
into a precedence- and associativity-correct tree of binary-operation
nodes.

PEG grammars have no native notion of operator precedence — ordered choice
and repetition only see a flat sequence — so, like most production PEG
tools, the precedence climbing itself happens as a second pass over the
parsed chain rather than during the parse. Build constructs the flat-chain
grammar; FoldAll performs the second pass.

The placeholder-rule bootstrap (register a dummy atom under ruleName, let
primaryFn's grammar reference it via Ref, then UpdateRule once the real
atom exists) mirrors the builder-then-freeze idiom used throughout
package grammar and, before it, gorgo's lr.TableGenerator /
lr.NewGrammarBuilder()...End() pipeline.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package infix

import (
	"fmt"

	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/grammar"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.infix'.
func tracer() tracing.Trace {
	return tracing.Select("pego.infix")
}

// Assoc discriminates operator associativity.
type Assoc int

const (
	AssocLeft Assoc = iota
	AssocRight
	AssocNone
)

// Operator describes one infix operator: its literal symbol, binding
// strength (higher binds tighter), and associativity.
type Operator struct {
	Symbol     string
	Precedence int
	Assoc      Assoc
}

// Table is the frozen operator table returned by Build, used by FoldAll to
// reassemble a flat operator chain into a precedence tree.
type Table struct {
	ops      []Operator
	byAtom   map[grammar.AtomIndex]*Operator
	chainTag string
}

func (t *Table) lookup(symbol string) *Operator {
	for i := range t.ops {
		if t.ops[i].Symbol == symbol {
			return &t.ops[i]
		}
	}
	return nil
}

// Build wires a rule named ruleName that parses primaryFn()'s atom
// followed by zero or more (operator, primary) pairs, and tags the result
// so FoldAll can find it. primaryFn is called exactly once and may itself
// reference ruleName (via a grammar.KindRef atom obtained e.g. through
// package dsl's Ref helper) to support parenthesized sub-expressions of
// the same precedence table — the placeholder bootstrap below makes that
// reference resolvable once Build returns.
//
// Operators are tried in table order at each step (ordered choice), so an
// operator whose symbol extends another's must be listed before it (e.g.
// "**" before "*"). Table order only decides which symbol matches;
// precedence and associativity are consulted later, by FoldAll.
func Build(b *grammar.GrammarBuilder, ruleName string, primaryFn func() grammar.AtomIndex, ops []Operator) (grammar.AtomIndex, *Table, error) {
	if len(ops) == 0 {
		return grammar.NoAtom, nil, fmt.Errorf("infix: operator table must not be empty")
	}
	placeholder := b.Add(grammar.Atom{Kind: grammar.KindStr, Literal: ""})
	b.Rule(ruleName, placeholder)

	primary := primaryFn()

	opAtoms := make([]grammar.AtomIndex, len(ops))
	byAtom := make(map[grammar.AtomIndex]*Operator, len(ops))
	tbl := &Table{ops: append([]Operator(nil), ops...), chainTag: "infix:" + ruleName}
	for i, op := range ops {
		idx := b.Add(grammar.Atom{Kind: grammar.KindStr, Literal: op.Symbol, Description: fmt.Sprintf("operator %q", op.Symbol)})
		opAtoms[i] = idx
		byAtom[idx] = &tbl.ops[i]
	}
	tbl.byAtom = byAtom
	opChoice := b.Add(grammar.Atom{Kind: grammar.KindChoice, Children: opAtoms})

	pair := b.Add(grammar.Atom{Kind: grammar.KindSeq, Children: []grammar.AtomIndex{opChoice, primary}})
	rest := b.Add(grammar.Atom{Kind: grammar.KindRepeat, Children: []grammar.AtomIndex{pair}, Min: 0, Max: -1, HasMax: false})
	chain := b.Add(grammar.Atom{Kind: grammar.KindSeq, Children: []grammar.AtomIndex{primary, rest}})
	tagged := b.Add(grammar.Atom{Kind: grammar.KindTag, Literal: tbl.chainTag, Children: []grammar.AtomIndex{chain}})

	b.UpdateRule(ruleName, tagged)
	tracer().Debugf("infix rule %q built with %d operators", ruleName, len(ops))
	return tagged, tbl, nil
}

// isChainTag reports whether n (a KindHash node produced by KindTag) is one
// of this table's operator-chain nodes.
func (t *Table) isChainTag(a *arena.Arena, n arena.Node) (arena.NodeIndex, bool) {
	if n.Kind != arena.KindHash {
		return arena.NilNode, false
	}
	var tagVal, chainVal arena.NodeIndex = arena.NilNode, arena.NilNode
	for _, e := range a.Hash(n) {
		switch a.String(e.KeyIndex) {
		case grammar.TagKey:
			tagVal = e.Value
		case grammar.TagValueKey:
			chainVal = e.Value
		}
	}
	if tagVal == arena.NilNode || chainVal == arena.NilNode {
		return arena.NilNode, false
	}
	tagNode := a.Node(tagVal)
	if tagNode.Kind != arena.KindStringRef || a.String(tagNode.StrIndex) != t.chainTag {
		return arena.NilNode, false
	}
	return chainVal, true
}

// FoldAll walks the AST rooted at root, replacing every operator-chain
// node this table produced with its precedence- and associativity-folded
// equivalent, and rebuilding ancestors along the way (the arena is
// append-only, so folding allocates new Array/Hash nodes for any ancestor
// on the path to a replaced node rather than mutating in place).
func FoldAll(t *Table, a *arena.Arena, root arena.NodeIndex) (arena.NodeIndex, error) {
	if root == arena.NilNode {
		return root, nil
	}
	n := a.Node(root)
	if chainArr, ok := t.isChainTag(a, n); ok {
		folded, err := foldChain(t, a, chainArr)
		if err != nil {
			return arena.NilNode, err
		}
		return folded, nil
	}
	switch n.Kind {
	case arena.KindArray:
		items := a.Array(n)
		changed := false
		out := make([]arena.NodeIndex, len(items))
		for i, c := range items {
			nc, err := FoldAll(t, a, c)
			if err != nil {
				return arena.NilNode, err
			}
			out[i] = nc
			if nc != c {
				changed = true
			}
		}
		if !changed {
			return root, nil
		}
		return a.PushArray(out), nil
	case arena.KindHash:
		entries := a.Hash(n)
		changed := false
		out := make([]arena.HashEntry, len(entries))
		for i, e := range entries {
			nv, err := FoldAll(t, a, e.Value)
			if err != nil {
				return arena.NilNode, err
			}
			out[i] = arena.HashEntry{KeyIndex: e.KeyIndex, Value: nv}
			if nv != e.Value {
				changed = true
			}
		}
		if !changed {
			return root, nil
		}
		return a.PushHash(out), nil
	}
	return root, nil
}

// chainOperand is one (operator, right-hand-operand) step, plus, for the
// first entry, the leading primary with a nil op.
type chainOperand struct {
	op      *Operator
	operand arena.NodeIndex
}

func foldChain(t *Table, a *arena.Arena, chainArr arena.NodeIndex) (arena.NodeIndex, error) {
	n := a.Node(chainArr)
	if n.Kind != arena.KindArray || n.PoolLength != 2 {
		return arena.NilNode, fmt.Errorf("infix: malformed operator-chain node")
	}
	items := a.Array(n)
	primary, err := FoldAll(t, a, items[0])
	if err != nil {
		return arena.NilNode, err
	}
	restNode := a.Node(items[1])
	pairs := a.Array(restNode)

	operands := []arena.NodeIndex{primary}
	operators := make([]*Operator, 0, len(pairs))
	for _, pairIdx := range pairs {
		pairNode := a.Node(pairIdx)
		pairItems := a.Array(pairNode)
		opNode := a.Node(pairItems[0])
		op := t.lookup(a.Text(opNode))
		if op == nil {
			return arena.NilNode, fmt.Errorf("infix: unrecognized operator %q", a.Text(opNode))
		}
		rhs, err := FoldAll(t, a, pairItems[1])
		if err != nil {
			return arena.NilNode, err
		}
		operators = append(operators, op)
		operands = append(operands, rhs)
	}
	if len(operators) == 0 {
		return primary, nil
	}
	for i := 0; i+1 < len(operators); i++ {
		if operators[i].Precedence == operators[i+1].Precedence && operators[i].Assoc == AssocNone {
			return arena.NilNode, &grammar.GrammarError{Kind: grammar.ErrAssocConflict, Name: operators[i].Symbol, Msg: "non-associative operator cannot chain with itself"}
		}
	}
	node, _, err := climb(a, operands, operators, 0, minPrecedence(t)-1)
	return node, err
}

func minPrecedence(t *Table) int {
	m := t.ops[0].Precedence
	for _, o := range t.ops[1:] {
		if o.Precedence < m {
			m = o.Precedence
		}
	}
	return m
}

// climb implements precedence climbing over the flat (operands, operators)
// pair list, where len(operands) == len(operators)+1. Starting at operand
// index pos, it folds while the next operator's precedence exceeds
// minPrec, and returns the folded node together with the index of the
// first unconsumed operator.
func climb(a *arena.Arena, operands []arena.NodeIndex, operators []*Operator, pos int, minPrec int) (arena.NodeIndex, int, error) {
	if pos >= len(operands) {
		return arena.NilNode, pos, fmt.Errorf("infix: malformed operand/operator chain")
	}
	left := operands[pos]
	i := pos
	for i < len(operators) && operators[i].Precedence > minPrec {
		op := operators[i]
		nextMin := op.Precedence
		if op.Assoc == AssocRight {
			nextMin--
		}
		right, nextI, err := climb(a, operands, operators, i+1, nextMin)
		if err != nil {
			return arena.NilNode, i, err
		}
		left = makeBinop(a, left, op.Symbol, right)
		i = nextI
	}
	return left, i, nil
}

func makeBinop(a *arena.Arena, left arena.NodeIndex, symbol string, right arena.NodeIndex) arena.NodeIndex {
	tagKey := a.InternString(grammar.TagKey)
	tagVal := a.PushString("binop")
	leftKey := a.InternString("left")
	opKey := a.InternString("op")
	opVal := a.PushString(symbol)
	rightKey := a.InternString("right")
	return a.PushHash([]arena.HashEntry{
		{KeyIndex: tagKey, Value: tagVal},
		{KeyIndex: leftKey, Value: left},
		{KeyIndex: opKey, Value: opVal},
		{KeyIndex: rightKey, Value: right},
	})
}
