package pego

import (
	"testing"

	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/dsl"
	"github.com/npillmayer/pego/peval"
	"github.com/npillmayer/pego/transform"
)

// TestINIRoundtrip exercises spec.md §8's "INI roundtrip" scenario end to
// end: a grammar of section/pair/comment/blank lines parses `[s]\nk=v`
// into an arena tree, which FromArena then Transform turns into
// {s: {k: "v"}} — combining package grammar/dsl, peval, arena, and
// transform the way a caller actually would, not just unit-by-unit.
func TestINIRoundtrip(t *testing.T) {
	b := dsl.New()

	ident := b.Re(`[A-Za-z_][A-Za-z0-9_]*`)
	restOfLine := b.Re(`[^\r\n]*`)
	newline := b.Str("\n")
	eol := b.Choice(newline, b.And(b.Not(b.Any())))

	pair := b.Tag("pair", b.Seq(
		b.Capture("key", ident),
		b.Str("="),
		b.Capture("value", restOfLine),
		eol,
	))
	comment := b.Tag("comment", b.Seq(b.Str("#"), restOfLine, eol))
	blank := b.Tag("blank", newline)
	line := b.Choice(pair, comment, blank)
	lines := b.Repeat(line, 0, -1)

	section := b.Tag("section", b.Seq(
		b.Str("["),
		b.Capture("name", ident),
		b.Str("]"),
		eol,
		lines,
	))
	file := b.Repeat(section, 0, -1)
	b.Rule("file", file)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	input := "[s]\nk=v\n"
	a := arena.ForInput(len(input))
	p := peval.NewParser(g, input, a)
	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	value := transform.FromArena(a, root)

	tr := transform.New()
	tr.Rule("pair", transform.PHash(false,
		transform.FieldPattern{Name: "@tag", Pattern: transform.PStr("pair")},
		transform.FieldPattern{Name: "@value", Pattern: transform.PArray(
			transform.PHash(false, transform.FieldPattern{Name: "key", Pattern: transform.Simple("k")}),
			transform.Simple(""),
			transform.PHash(false, transform.FieldPattern{Name: "value", Pattern: transform.Simple("v")}),
			transform.Simple(""),
		)},
	), func(bnd transform.Bindings) (transform.Value, error) {
		k, _ := bnd["k"].AsString()
		return transform.Hash(transform.Field{Name: k, Value: bnd["v"]}), nil
	})

	ignoreLine := func(tag string) {
		tr.Rule(tag, transform.PHash(false,
			transform.FieldPattern{Name: "@tag", Pattern: transform.PStr(tag)},
		), func(transform.Bindings) (transform.Value, error) {
			return transform.Nil(), nil
		})
	}
	ignoreLine("comment")
	ignoreLine("blank")

	tr.Rule("section", transform.PHash(false,
		transform.FieldPattern{Name: "@tag", Pattern: transform.PStr("section")},
		transform.FieldPattern{Name: "@value", Pattern: transform.PArray(
			transform.Simple(""),
			transform.PHash(false, transform.FieldPattern{Name: "name", Pattern: transform.Simple("secname")}),
			transform.Simple(""),
			transform.Simple(""),
			transform.Simple("lines"),
		)},
	), func(bnd transform.Bindings) (transform.Value, error) {
		secname, _ := bnd["secname"].AsString()
		lineVals, _ := bnd["lines"].AsArray()
		var fields []transform.Field
		for _, lv := range lineVals {
			if lv.Kind() == transform.KindHash {
				hf, _ := lv.AsHash()
				fields = append(fields, hf...)
			}
		}
		return transform.Hash(transform.Field{Name: secname, Value: transform.Hash(fields...)}), nil
	})

	out, err := tr.Apply(value)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	sections, ok := out.AsArray()
	if !ok || len(sections) != 1 {
		t.Fatalf("expected a single transformed section, got %+v", out)
	}
	s, ok := sections[0].Get("s")
	if !ok {
		t.Fatalf("expected field %q, got %+v", "s", sections[0])
	}
	kv, ok := s.Get("k")
	if !ok {
		t.Fatalf("expected field %q under section %q, got %+v", "k", "s", s)
	}
	got, _ := kv.AsString()
	if got != "v" {
		t.Errorf("k = %q, want %q", got, "v")
	}
}
