/*
Package pego is a packrat runtime for Parsing Expression Grammars (PEGs).

It is built around three core subsystems: a packrat-memoized
recursive-descent evaluator over a data-driven grammar representation, an
arena-backed AST with index-addressed nodes, and an incremental reparsing
engine that reuses memoized subtree results across small edits. Package
structure is as follows:

■ grammar: the atom algebra (Str, Re, Seq, Choice, Repeat, ...), the rule
table, and the builder that freezes a Grammar.

■ arena: append-only storage for AST nodes, strings and child slices.

■ regexcache: a cache of compiled regular expressions, keyed by pattern.

■ peval: the packrat evaluator, its memoization table, and ParseError.

■ infix: a precedence-climbing builder for binary-operator grammars.

■ incremental: an edit-driven reparser that invalidates and rebases memo
entries instead of reparsing from scratch.

■ streaming: a chunked driver that feeds complete units to the evaluator
as they arrive.

■ transform: a pattern-matching engine that lifts parse trees into typed
Values.

■ customatom: the process-wide registry for extension atoms and plugins.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package pego
