/*
Package streaming implements the chunked/incremental-feed driver of
spec.md §4.5: input arrives in arbitrarily-sized byte chunks, is buffered
until a configured separator delimits a complete "unit", and each unit is
parsed in full against a grammar.Grammar, its AST walked into a sequence of
builder-callback Events the caller can consume without ever holding a
whole-document AST in memory.

The buffering algorithm — append to a pending buffer, scan for the
separator, slice off and parse a complete unit, repeat — is grounded on
original_source/examples/streaming/basic.rs's pending-buffer loop. The
functional-options configuration (Separator, MaxUnit) mirrors
lr/scanner/scanner.go's Tokenizer options (SkipComments, UnifyStrings).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package streaming

import (
	"bytes"
	"fmt"

	"github.com/npillmayer/pego/arena"
	"github.com/npillmayer/pego/grammar"
	"github.com/npillmayer/pego/peval"
	"github.com/npillmayer/pego/transform"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.streaming'.
func tracer() tracing.Trace {
	return tracing.Select("pego.streaming")
}

// EventKind discriminates the builder-callback events a parsed unit's
// Value tree is flattened into.
type EventKind int

const (
	OnNil EventKind = iota
	OnBool
	OnInt
	OnFloat
	OnString
	OnArrayBegin
	OnArrayEnd
	OnHashBegin
	OnHashKey
	OnHashEnd
	// OnUnitEnd marks the boundary between two separator-delimited units,
	// so a caller folding events into its own representation knows where
	// one unit's value ends and the next begins.
	OnUnitEnd
)

// Event is one step of a unit's flattened Value tree.
type Event struct {
	Kind  EventKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// --- configuration -------------------------------------------------

type config struct {
	separator byte
	maxUnit   int // 0 means unbounded
}

// Option configures a StreamingParser at construction time.
type Option func(*config)

// Separator sets the byte that delimits one unit from the next. Default
// '\n'.
func Separator(b byte) Option {
	return func(c *config) { c.separator = b }
}

// MaxUnit bounds how large the pending buffer may grow before a unit is
// found, guarding against unbounded memory growth on malformed or
// adversarial input that never produces a separator. 0 (the default)
// means unbounded.
func MaxUnit(n int) Option {
	return func(c *config) { c.maxUnit = n }
}

// --- StreamingError --------------------------------------------------

// StreamingErrorKind discriminates streaming-package errors.
type StreamingErrorKind int

const (
	// ErrChunkTooLarge: the pending buffer exceeded MaxUnit before a
	// separator was found.
	ErrChunkTooLarge StreamingErrorKind = iota
	// ErrUnit: a complete unit failed to parse; Err wraps the underlying
	// *peval.ParseError.
	ErrUnit
	// ErrIO: reserved for callers that wrap an io.Reader-driven feed loop
	// and want to report read errors through the same error type.
	ErrIO
)

// StreamingError is returned by Feed and Finish.
type StreamingError struct {
	Kind StreamingErrorKind
	Pos  int // absolute byte offset into the whole stream fed so far
	Err  error
}

func (e *StreamingError) Error() string {
	switch e.Kind {
	case ErrChunkTooLarge:
		return fmt.Sprintf("streaming: unit exceeds configured maximum at byte offset %d", e.Pos)
	case ErrUnit:
		return fmt.Sprintf("streaming: unit starting at byte offset %d failed to parse: %v", e.Pos, e.Err)
	case ErrIO:
		return fmt.Sprintf("streaming: I/O error at byte offset %d: %v", e.Pos, e.Err)
	}
	return "streaming: error"
}

func (e *StreamingError) Unwrap() error { return e.Err }

// --- StreamingParser ---------------------------------------------------

// StreamingParser buffers fed bytes and parses complete separator-delimited
// units against a fixed grammar.Grammar as they become available.
type StreamingParser struct {
	g   *grammar.Grammar
	cfg config

	pending  []byte
	consumed int // absolute offset of pending[0] in the overall stream
}

// New creates a StreamingParser evaluating g against each unit.
func New(g *grammar.Grammar, opts ...Option) *StreamingParser {
	cfg := config{separator: '\n'}
	for _, o := range opts {
		o(&cfg)
	}
	return &StreamingParser{g: g, cfg: cfg}
}

// Feed appends chunk to the pending buffer and parses as many complete
// units as it now contains, returning their flattened events in order.
func (s *StreamingParser) Feed(chunk []byte) ([]Event, error) {
	s.pending = append(s.pending, chunk...)
	var events []Event
	for {
		idx := bytes.IndexByte(s.pending, s.cfg.separator)
		if idx < 0 {
			if s.cfg.maxUnit > 0 && len(s.pending) > s.cfg.maxUnit {
				return events, &StreamingError{Kind: ErrChunkTooLarge, Pos: s.consumed + len(s.pending)}
			}
			return events, nil
		}
		unit := s.pending[:idx]
		evs, err := s.parseUnit(unit)
		if err != nil {
			return events, &StreamingError{Kind: ErrUnit, Pos: s.consumed, Err: err}
		}
		events = append(events, evs...)
		events = append(events, Event{Kind: OnUnitEnd})
		s.consumed += idx + 1
		s.pending = s.pending[idx+1:]
	}
}

// Finish parses any remaining buffered bytes as a final unit, even without
// a trailing separator, and returns their flattened events. Call this
// exactly once, after the last Feed.
func (s *StreamingParser) Finish() ([]Event, error) {
	if len(s.pending) == 0 {
		return nil, nil
	}
	unit := s.pending
	s.pending = nil
	evs, err := s.parseUnit(unit)
	if err != nil {
		return nil, &StreamingError{Kind: ErrUnit, Pos: s.consumed, Err: err}
	}
	evs = append(evs, Event{Kind: OnUnitEnd})
	return evs, nil
}

func (s *StreamingParser) parseUnit(unit []byte) ([]Event, error) {
	a := arena.ForInput(len(unit))
	p := peval.NewParser(s.g, string(unit), a)
	root, err := p.Parse()
	if err != nil {
		return nil, err
	}
	v := transform.FromArena(a, root)
	var events []Event
	emitValue(&events, v)
	tracer().Debugf("parsed unit of %d bytes into %d events", len(unit), len(events))
	return events, nil
}

func emitValue(events *[]Event, v transform.Value) {
	switch v.Kind() {
	case transform.KindNil:
		*events = append(*events, Event{Kind: OnNil})
	case transform.KindBool:
		b, _ := v.AsBool()
		*events = append(*events, Event{Kind: OnBool, Bool: b})
	case transform.KindInt:
		i, _ := v.AsInt()
		*events = append(*events, Event{Kind: OnInt, Int: i})
	case transform.KindFloat:
		f, _ := v.AsFloat()
		*events = append(*events, Event{Kind: OnFloat, Float: f})
	case transform.KindString:
		s, _ := v.AsString()
		*events = append(*events, Event{Kind: OnString, Str: s})
	case transform.KindArray:
		*events = append(*events, Event{Kind: OnArrayBegin})
		items, _ := v.AsArray()
		for _, it := range items {
			emitValue(events, it)
		}
		*events = append(*events, Event{Kind: OnArrayEnd})
	case transform.KindHash:
		*events = append(*events, Event{Kind: OnHashBegin})
		fields, _ := v.AsHash()
		for _, f := range fields {
			*events = append(*events, Event{Kind: OnHashKey, Str: f.Name})
			emitValue(events, f.Value)
		}
		*events = append(*events, Event{Kind: OnHashEnd})
	}
}
