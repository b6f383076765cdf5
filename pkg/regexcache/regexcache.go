// Package regexcache provides a thread-safe cache of compiled whitelist
// URL patterns. Patterns are matched against the full candidate URL, so
// every pattern is wrapped in \A(?:...)\z before compilation; a pattern
// of "https://a\.com/.*" can never match in the middle of a longer
// attacker-controlled string. Go's RE2 engine guarantees linear-time
// matching, so a hostile pattern or URL cannot stall other evaluations.
//
// Usage:
//
//	re, err := regexcache.Anchored(`https://finance\.company\.com/.*`)
//	if err != nil {
//	    // pattern does not compile: reject the whitelist entry
//	}
//	ok := re.MatchString(candidateURL)
package regexcache

import (
	"regexp"
	"sync"
)

// cache holds compiled anchored patterns keyed by the raw (unanchored)
// pattern string. sync.Map keeps the read path lock-free; whitelist
// refreshes re-add the same patterns and hit the cache.
var cache sync.Map

// Anchored returns a compiled regexp that matches pattern against an
// entire input string. Compilation happens at most once per pattern;
// subsequent calls return the cached instance.
func Anchored(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, err
	}

	// LoadOrStore resolves the race when two callers compile concurrently.
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// Clear removes all cached patterns. Primarily useful for tests.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}

// Size returns the number of cached patterns.
func Size() int {
	count := 0
	cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
