/*
Package regexcache caches compiled regular expressions, keyed by pattern
source. Every rule using a regex atom (grammar.KindRe) retrieves its
matcher through GetOrCompile rather than compiling on every match attempt.

This is a direct port of original_source/src/portable/regex_cache.rs,
translated from a thread-local RefCell<HashMap> to a sync.Map: Go has no
goroutine-local storage, so a process-wide concurrent map is used instead.
This is strictly more sharing than the Rust original (a cache hit in one
goroutine is visible to all others) and therefore only improves on the
"each thread compiles once" goal stated in spec.md §5 — a *.Regexp, once
compiled, is safe for concurrent read-only use (FindStringIndex etc.), so
no per-goroutine copying is required.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package regexcache

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'pego.regexcache'.
func tracer() tracing.Trace {
	return tracing.Select("pego.regexcache")
}

var (
	cache sync.Map // pattern string -> *regexp.Regexp
	count int64
)

// GetOrCompile returns the compiled matcher for pattern, compiling and
// caching it on first use. It anchors pattern at the start of the match
// attempt by wrapping it in `\A(?:...)`, since grammar.KindRe atoms are
// defined to match only when the pattern begins exactly at the current
// position (spec §4.2).
func GetOrCompile(pattern string) (*regexp.Regexp, error) {
	if v, ok := cache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`\A(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("regexcache: invalid pattern %q: %w", pattern, err)
	}
	actual, loaded := cache.LoadOrStore(pattern, re)
	if !loaded {
		atomic.AddInt64(&count, 1)
		tracer().Debugf("compiled and cached pattern %q (cache size %d)", pattern, Size())
	}
	return actual.(*regexp.Regexp), nil
}

// Clear empties the cache. Call this to free memory if many unique
// patterns have been compiled over the lifetime of the process.
func Clear() {
	cache.Range(func(k, _ interface{}) bool {
		cache.Delete(k)
		return true
	})
	atomic.StoreInt64(&count, 0)
	tracer().Debugf("regex cache cleared")
}

// Size returns the number of distinct patterns currently cached.
func Size() int {
	return int(atomic.LoadInt64(&count))
}
