package transform

import "testing"

func TestMatchSimpleBindsAnyValue(t *testing.T) {
	b, ok := Match(Simple("x"), Int(5))
	if !ok {
		t.Fatal("Simple must always match")
	}
	if i, _ := b["x"].AsInt(); i != 5 {
		t.Errorf("bound x = %v, want 5", b["x"])
	}
}

func TestMatchSimpleUnnamedDoesNotBind(t *testing.T) {
	b, ok := Match(Simple(""), Str("anything"))
	if !ok {
		t.Fatal("Simple(\"\") must match")
	}
	if len(b) != 0 {
		t.Errorf("bindings = %v, want empty", b)
	}
}

func TestMatchLiteralPatterns(t *testing.T) {
	cases := []struct {
		p    Pattern
		v    Value
		want bool
	}{
		{PStr("hi"), Str("hi"), true},
		{PStr("hi"), Str("bye"), false},
		{PInt(3), Int(3), true},
		{PInt(3), Int(4), false},
		{PFloat(1.5), Float(1.5), true},
		{PBool(true), Bool(true), true},
		{PBool(true), Bool(false), false},
		{PNil(), Nil(), true},
		{PNil(), Int(0), false},
		{PInt(3), Str("3"), false}, // no coercion across kinds
	}
	for _, c := range cases {
		_, got := Match(c.p, c.v)
		if got != c.want {
			t.Errorf("Match(%+v, %+v) = %v, want %v", c.p, c.v, got, c.want)
		}
	}
}

func TestMatchArrayExactLength(t *testing.T) {
	p := PArray(PInt(1), Simple("rest"))
	if _, ok := Match(p, Array(Int(1), Int(2), Int(3))); ok {
		t.Error("exact-length array pattern must reject an over-long array")
	}
	b, ok := Match(p, Array(Int(1), Str("two")))
	if !ok {
		t.Fatal("expected a match")
	}
	if s, _ := b["rest"].AsString(); s != "two" {
		t.Errorf("rest = %v, want \"two\"", b["rest"])
	}
}

func TestMatchArrayWithTail(t *testing.T) {
	p := PArrayTail("tail", PInt(1))
	b, ok := Match(p, Array(Int(1), Int(2), Int(3)))
	if !ok {
		t.Fatal("expected a match")
	}
	tail, _ := b["tail"].AsArray()
	if len(tail) != 2 {
		t.Errorf("tail = %v, want 2 elements", tail)
	}
	if _, ok := Match(p, Array()); ok {
		t.Error("array shorter than the fixed prefix must not match")
	}
}

func TestMatchHashExactAndLoose(t *testing.T) {
	v := Hash(Field{Name: "a", Value: Int(1)}, Field{Name: "b", Value: Int(2)})
	loose := PHash(false, FieldPattern{Name: "a", Pattern: PInt(1)})
	if _, ok := Match(loose, v); !ok {
		t.Error("loose hash pattern should ignore the extra field \"b\"")
	}
	exact := PHash(true, FieldPattern{Name: "a", Pattern: PInt(1)})
	if _, ok := Match(exact, v); ok {
		t.Error("exact hash pattern should reject the extra field \"b\"")
	}
	missing := PHash(false, FieldPattern{Name: "c", Pattern: Simple("_")})
	if _, ok := Match(missing, v); ok {
		t.Error("a hash pattern naming an absent field must not match")
	}
}

func TestApplyRewritesBottomUpFirstMatchWins(t *testing.T) {
	tr := New()
	tr.Rule("double-int", Pattern{Kind: KindPatternSimple, Name: "n"}, func(b Bindings) (Value, error) {
		n := b["n"]
		if i, ok := n.AsInt(); ok {
			return Int(i * 2), nil
		}
		return n, nil
	})
	in := Array(Int(1), Hash(Field{Name: "x", Value: Int(2)}))
	out, err := tr.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	items, _ := out.AsArray()
	if i, _ := items[0].AsInt(); i != 2 {
		t.Errorf("items[0] = %v, want 2 (doubled)", items[0])
	}
	fields, _ := items[1].AsHash()
	if i, _ := fields[0].Value.AsInt(); i != 4 {
		t.Errorf("nested field = %v, want 4 (doubled bottom-up)", fields[0].Value)
	}
}

func TestApplyLeavesUnmatchedNodesUnchanged(t *testing.T) {
	tr := New() // no rules at all
	in := Hash(Field{Name: "k", Value: Str("v")})
	out, err := tr.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	fv, ok := out.Get("k")
	if !ok {
		t.Fatal("field \"k\" missing from passthrough result")
	}
	if s, _ := fv.AsString(); s != "v" {
		t.Errorf("field \"k\" = %v, want \"v\"", fv)
	}
}

func TestApplyHandlerErrorAbortsTraversal(t *testing.T) {
	boom := &TransformError{Kind: ErrCustom, Msg: "boom"}
	tr := New().Rule("fail-on-int", Pattern{Kind: KindPatternSimple, Name: "_"}, func(Bindings) (Value, error) {
		return Value{}, boom
	})
	// tr2's only rule matches the Int value 7, which sits inside the array
	tr2 := New().Rule("fail-on-int", PInt(7), func(Bindings) (Value, error) {
		return Value{}, boom
	})
	if _, err := tr.Apply(Int(1)); err != boom {
		t.Errorf("Apply error = %v, want the handler's error", err)
	}
	if _, err := tr2.Apply(Array(Int(1), Int(7))); err != boom {
		t.Errorf("Apply error = %v, want the handler's error surfacing from a nested node", err)
	}
}

func TestApplyFirstMatchingRuleWins(t *testing.T) {
	tr := New()
	tr.Rule("specific", PInt(5), func(Bindings) (Value, error) { return Str("five"), nil })
	tr.Rule("generic", Simple("_"), func(Bindings) (Value, error) { return Str("other"), nil })
	out, err := tr.Apply(Int(5))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s, _ := out.AsString(); s != "five" {
		t.Errorf("Apply(5) = %v, want \"five\" (the first matching rule)", out)
	}
}
