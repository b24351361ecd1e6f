/*
Package customatom implements the extension-point registry of spec.md §4.2
("Custom(id)") and §9, ported from original_source/src/portable/custom.rs
and plugin.rs. A CustomAtom is a user-supplied matcher identified by a
numeric id; a Plugin bundles one or more CustomAtoms under a name,
mirroring plugin.rs's PortablePlugin trait. A Plugin carries atoms only;
it registers no transform rules.

The registry is process-wide and guarded by a single mutex. Register,
Unregister and Reset take it, and so does Lookup, which the evaluator calls
every time it evaluates a Custom atom: a parse that uses custom atoms
acquires the mutex briefly on each such evaluation and waits while a
concurrent Register holds it.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package customatom

import (
	"fmt"
	"sync"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.customatom'.
func tracer() tracing.Trace {
	return tracing.Select("pego.customatom")
}

// ReservedIDCeiling is the first id available for user registration; ids
// below it are reserved for built-in atom kinds that might one day grow a
// Custom-shaped implementation (spec.md §9, "ids below 1000 are reserved").
const ReservedIDCeiling = 1000

// Value is a small, self-contained result tree a CustomAtom can hand back
// in place of a plain input slice, e.g. a JSON-number atom returning an
// already-parsed float rather than forcing the evaluator to re-scan the
// matched text. It deliberately does not depend on package arena: custom
// atoms are meant to be portable across evaluator instances.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Array []Value
	Hash  []HashField
}

// ValueKind discriminates Value's variants.
type ValueKind int

const (
	ValueNil ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueStr
	ValueArray
	ValueHash
)

// HashField is one named field of a ValueHash.
type HashField struct {
	Name  string
	Value Value
}

// CustomResult is what a CustomAtom returns on a successful match.
type CustomResult struct {
	// EndPos is the input position immediately after the match; must
	// satisfy EndPos >= the position Parse was called with.
	EndPos int
	// Value is optional: a nil Value means "use the matched input slice
	// verbatim", mirroring custom.rs's `Option<PortableValue>` result.
	Value *Value
}

// CustomAtom is a registered extension matcher, invoked by the evaluator
// for grammar.KindCustom atoms (package peval).
type CustomAtom interface {
	// Parse attempts to match at pos within input, returning the result
	// and true on success, or false on failure. Implementations must not
	// retain input past the call.
	Parse(input string, pos int) (*CustomResult, bool)
	// Description is used in ParseError.Expected when this atom fails.
	Description() string
}

// Plugin bundles a set of CustomAtoms under fixed ids and a name.
// RegisterPlugin installs its atoms and nothing else; transform rules that
// interpret those atoms' output are not part of a Plugin.
type Plugin interface {
	// Atoms returns the (id, atom) pairs this plugin provides.
	Atoms() map[uint32]CustomAtom
	// Name identifies the plugin in logs and error messages.
	Name() string
}

// --- CustomAtomError ------------------------------------------------

// CustomAtomErrorKind discriminates customatom-package errors.
type CustomAtomErrorKind int

const (
	// ErrNotRegistered: Custom(id) referenced an id with no registered atom.
	ErrNotRegistered CustomAtomErrorKind = iota
	// ErrReservedID: an attempt to Register an id below ReservedIDCeiling.
	ErrReservedID
	// ErrDuplicateID: an attempt to Register an id already in use.
	ErrDuplicateID
)

// CustomAtomError is returned by Register and surfaced as a fatal parse
// error (not an ordinary grammar failure) when an unregistered id is
// invoked during a parse.
type CustomAtomError struct {
	Kind CustomAtomErrorKind
	ID   uint32
}

func (e *CustomAtomError) Error() string {
	switch e.Kind {
	case ErrNotRegistered:
		return fmt.Sprintf("customatom: no atom registered for id %d", e.ID)
	case ErrReservedID:
		return fmt.Sprintf("customatom: id %d is below the reserved ceiling (%d)", e.ID, ReservedIDCeiling)
	case ErrDuplicateID:
		return fmt.Sprintf("customatom: id %d is already registered", e.ID)
	}
	return "customatom: error"
}

// --- registry ------------------------------------------------------

var (
	mu       sync.Mutex
	registry = make(map[uint32]CustomAtom)
)

// Register installs atom under id, for later invocation by grammar.KindCustom
// atoms carrying the same id. It holds the registry mutex while it updates
// the map; a concurrent Lookup, including one made by a parse evaluating a
// Custom atom, waits until Register releases it.
func Register(id uint32, atom CustomAtom) error {
	if id < ReservedIDCeiling {
		return &CustomAtomError{Kind: ErrReservedID, ID: id}
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[id]; exists {
		return &CustomAtomError{Kind: ErrDuplicateID, ID: id}
	}
	registry[id] = atom
	tracer().Debugf("registered custom atom id=%d: %s", id, atom.Description())
	return nil
}

// RegisterPlugin registers every atom a Plugin provides.
func RegisterPlugin(p Plugin) error {
	for id, atom := range p.Atoms() {
		if err := Register(id, atom); err != nil {
			return fmt.Errorf("customatom: plugin %q: %w", p.Name(), err)
		}
	}
	tracer().Infof("plugin %q registered (%d atoms)", p.Name(), len(p.Atoms()))
	return nil
}

// Lookup returns the atom registered under id, if any. It takes the
// registry mutex.
func Lookup(id uint32) (CustomAtom, bool) {
	mu.Lock()
	defer mu.Unlock()
	a, ok := registry[id]
	return a, ok
}

// Unregister removes id from the registry. Intended for test teardown;
// production code normally registers plugins once at startup and never
// unregisters them.
func Unregister(id uint32) {
	mu.Lock()
	defer mu.Unlock()
	delete(registry, id)
}

// Reset clears the entire registry. Intended for test isolation.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[uint32]CustomAtom)
}
