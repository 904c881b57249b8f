// Package regexcache provides a thread-safe cache for compiled regular
// expressions. Match specs are evaluated on every response, so each
// pattern/flag combination is compiled once per process.
//
// Usage:
//
//	re, err := regexcache.Get(`version ([\d.]+)`, regexcache.IgnoreCase)
//	if err != nil {
//	    // handle error
//	}
package regexcache

import (
	"regexp"
	"sync"
)

// Flags modify how a pattern is compiled.
type Flags uint8

const (
	// IgnoreCase compiles with (?i)
	IgnoreCase Flags = 1 << iota
	// Multiline compiles with (?m)
	Multiline
	// DotAll compiles with (?s)
	DotAll
)

// prefix renders flags as an inline group, e.g. "(?is)".
func (f Flags) prefix() string {
	if f == 0 {
		return ""
	}
	p := "(?"
	if f&IgnoreCase != 0 {
		p += "i"
	}
	if f&Multiline != 0 {
		p += "m"
	}
	if f&DotAll != 0 {
		p += "s"
	}
	return p + ")"
}

// cache holds compiled expressions keyed by flag prefix + pattern.
var cache sync.Map

// Get returns a compiled regexp for pattern with flags applied.
func Get(pattern string, flags Flags) (*regexp.Regexp, error) {
	key := flags.prefix() + pattern
	if cached, ok := cache.Load(key); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(key)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet is like Get but panics on an invalid pattern.
// Use it only for patterns that are compile-time constants.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern, 0)
	if err != nil {
		panic(err)
	}
	return re
}

// Size returns the number of cached expressions.
func Size() int {
	count := 0
	cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Clear removes all cached expressions. Used by tests.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}
