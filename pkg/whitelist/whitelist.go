// Package whitelist holds the registry of trusted MCP servers.
// Each entry names a server, the URL pattern it is allowed to serve
// from, and optionally the known-good fingerprints of its tools.
// Lookups are exact and case-insensitive; URL matching runs against a
// pattern compiled once at insertion time.
package whitelist

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/waftester/mcpguard/pkg/regexcache"
)

// Entry is a trusted-server record. Name is the unique key (compared
// case-insensitively); URLPattern must compile and is matched against
// the entire candidate URL. ToolFingerprints maps tool names to the
// precomputed fingerprint of that server's known-good definition.
type Entry struct {
	Name             string            `json:"name" yaml:"name"`
	URLPattern       string            `json:"url_pattern" yaml:"url_pattern"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	ToolFingerprints map[string]string `json:"tool_fingerprints,omitempty" yaml:"tool_fingerprints,omitempty"`
}

// compiled pairs an entry with its pattern, built before the entry is
// published so a reader never observes a name without a usable pattern.
type compiled struct {
	entry   Entry
	pattern *regexp.Regexp
}

// Store is the mutable set of trusted servers. Reads are unlimited and
// concurrent; Add/Remove take the write lock only around the map update.
type Store struct {
	mu      sync.RWMutex
	entries map[string]compiled // key: lowercase entry name
}

// NewStore builds a store from the given entries. Duplicate names are a
// configuration mistake, not a refresh, and are rejected; a later
// explicit Add is the supported way to replace an entry.
func NewStore(entries []Entry) (*Store, error) {
	s := &Store{entries: make(map[string]compiled, len(entries))}
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		key := strings.ToLower(e.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("whitelist: duplicate entry name %q", e.Name)
		}
		seen[key] = struct{}{}
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add upserts an entry by case-insensitive name. Re-adding a name
// replaces the prior entry, which is how whitelist refreshes work.
// Returns an error when the URL pattern does not compile; the store is
// left unchanged in that case.
func (s *Store) Add(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("whitelist: entry has empty name")
	}

	// Compile outside the lock: a failed compile must not disturb
	// concurrent readers, and a slow compile must not block them.
	re, err := regexcache.Anchored(e.URLPattern)
	if err != nil {
		return fmt.Errorf("whitelist: entry %q: url pattern %q does not compile: %w", e.Name, e.URLPattern, err)
	}

	s.mu.Lock()
	s.entries[strings.ToLower(e.Name)] = compiled{entry: e, pattern: re}
	s.mu.Unlock()
	return nil
}

// Remove deletes the entry with the given case-insensitive name and
// reports whether it existed.
func (s *Store) Remove(name string) bool {
	key := strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Lookup returns the entry registered under name (case-insensitive).
func (s *Store) Lookup(name string) (Entry, bool) {
	s.mu.RLock()
	c, ok := s.entries[strings.ToLower(name)]
	s.mu.RUnlock()
	return c.entry, ok
}

// MatchesURL reports whether url matches the full URL pattern of the
// entry registered under name. Unknown names never match.
func (s *Store) MatchesURL(name, url string) bool {
	s.mu.RLock()
	c, ok := s.entries[strings.ToLower(name)]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return c.pattern.MatchString(url)
}

// Names returns the registered entry names as configured (original
// casing), sorted for deterministic iteration.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	for _, c := range s.entries {
		names = append(names, c.entry.Name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
