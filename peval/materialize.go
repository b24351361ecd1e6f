package peval

import (
	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/customatom"
)

// materializeValue converts a custom atom's result into arena nodes. A nil
// v means "use the raw matched input slice", the customatom.CustomResult
// convention for "no structured value, just consume".
func materializeValue(a *arena.Arena, v *customatom.Value, input string, start, end int) arena.NodeIndex {
	if v == nil {
		return a.PushInputRef(start, end-start)
	}
	return materializeOne(a, *v)
}

func materializeOne(a *arena.Arena, v customatom.Value) arena.NodeIndex {
	switch v.Kind {
	case customatom.ValueNil:
		return a.PushNil()
	case customatom.ValueBool:
		return a.PushBool(v.Bool)
	case customatom.ValueInt:
		return a.PushInt(v.Int)
	case customatom.ValueFloat:
		return a.PushFloat(v.Float)
	case customatom.ValueStr:
		return a.PushString(v.Str)
	case customatom.ValueArray:
		items := make([]arena.NodeIndex, len(v.Array))
		for i, e := range v.Array {
			items[i] = materializeOne(a, e)
		}
		return a.PushArray(items)
	case customatom.ValueHash:
		entries := make([]arena.HashEntry, len(v.Hash))
		for i, f := range v.Hash {
			entries[i] = arena.HashEntry{KeyIndex: a.InternString(f.Name), Value: materializeOne(a, f.Value)}
		}
		return a.PushHash(entries)
	}
	return a.PushNil()
}
