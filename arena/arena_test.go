package arena

import "testing"

func TestForInputSetsNoNodesYet(t *testing.T) {
	a := ForInput(128)
	if a.NumNodes() != 0 {
		t.Errorf("NumNodes() = %d, want 0", a.NumNodes())
	}
}

func TestPushInputRefTextRoundtrips(t *testing.T) {
	a := ForInput(16)
	a.SetInput("hello world")
	idx := a.PushInputRef(6, 5)
	n := a.Node(idx)
	if got := a.Text(n); got != "world" {
		t.Errorf("Text() = %q, want %q", got, "world")
	}
}

func TestInternStringAndLookup(t *testing.T) {
	a := ForInput(16)
	idx := a.InternString("foo")
	if got := a.String(idx); got != "foo" {
		t.Errorf("String(%d) = %q, want %q", idx, got, "foo")
	}
	idx2 := a.InternString("bar")
	if got := a.String(idx2); got != "bar" {
		t.Errorf("String(%d) = %q, want %q", idx2, got, "bar")
	}
	if got := a.String(idx); got != "foo" {
		t.Errorf("first intern corrupted by second: String(%d) = %q, want %q", idx, got, "foo")
	}
}

func TestPushArrayAndHash(t *testing.T) {
	a := ForInput(16)
	x := a.PushInt(1)
	y := a.PushInt(2)
	arr := a.PushArray([]NodeIndex{x, y})
	arrNode := a.Node(arr)
	if arrNode.Kind != KindArray {
		t.Fatalf("Kind = %v, want KindArray", arrNode.Kind)
	}
	children := a.Array(arrNode)
	if len(children) != 2 || children[0] != x || children[1] != y {
		t.Errorf("Array() = %v, want [%d %d]", children, x, y)
	}

	keyIdx := a.InternString("n")
	h := a.PushHash([]HashEntry{{KeyIndex: keyIdx, Value: x}})
	hNode := a.Node(h)
	entries := a.Hash(hNode)
	if len(entries) != 1 || entries[0].Value != x || a.String(entries[0].KeyIndex) != "n" {
		t.Errorf("Hash() = %v, unexpected", entries)
	}
}

func TestInBoundsDetectsOutOfRange(t *testing.T) {
	a := ForInput(16)
	a.SetInput("abc")
	ok := a.PushInputRef(0, 3)
	if !a.InBounds(ok) {
		t.Errorf("InBounds(%d) = false, want true", ok)
	}
	bad := a.PushNode(Node{Kind: KindInputRef, Offset: 2, Length: 5})
	if a.InBounds(bad) {
		t.Errorf("InBounds(%d) = true, want false (offset+length exceeds input)", bad)
	}
}

func TestInBoundsWalksNestedStructures(t *testing.T) {
	a := ForInput(16)
	a.SetInput("abc")
	ref := a.PushInputRef(0, 1)
	arr := a.PushArray([]NodeIndex{ref})
	if !a.InBounds(arr) {
		t.Errorf("InBounds(array of valid InputRef) = false, want true")
	}

	badRef := a.PushNode(Node{Kind: KindInputRef, Offset: 10, Length: 1})
	badArr := a.PushArray([]NodeIndex{badRef})
	if a.InBounds(badArr) {
		t.Errorf("InBounds(array containing out-of-range InputRef) = true, want false")
	}
}

func TestNilNodeIsNotInBounds(t *testing.T) {
	a := ForInput(16)
	if a.InBounds(NilNode) {
		t.Errorf("InBounds(NilNode) = true, want false")
	}
}
