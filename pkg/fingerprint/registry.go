package fingerprint

import (
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Owner identifies the trusted server and tool a fingerprint belongs to.
type Owner struct {
	Server string `json:"server"`
	Tool   string `json:"tool"`
}

// Collision reports that a tool name was observed this session from two
// different servers with non-matching fingerprints.
type Collision struct {
	Tool        string `json:"tool"`
	OtherServer string `json:"other_server"`
}

// observation is one (server, fingerprint) sighting of a tool name
// within the current session.
type observation struct {
	server string
	fp     Fingerprint
}

// Registry holds trusted fingerprint registrations and session-scoped
// observations. Registrations persist for the life of the registry;
// observations are purged per server by ResetServer. Safe for unlimited
// concurrent readers.
type Registry struct {
	mu      sync.RWMutex
	trusted map[Fingerprint]Owner
	session map[string][]observation // tool name -> sightings this session
	seen    map[uint64]string        // observation key -> server, dedupes repeats
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		trusted: make(map[Fingerprint]Owner),
		session: make(map[string][]observation),
		seen:    make(map[uint64]string),
	}
}

// Register records fp as owned by the trusted server's tool. The first
// registration wins; re-registering an already-known fingerprint is a
// no-op, which makes lazy registration during tools-list scans
// idempotent. Callers gate registration to trusted servers.
func (r *Registry) Register(server, tool string, fp Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trusted[fp]; ok {
		return
	}
	r.trusted[fp] = Owner{Server: server, Tool: tool}
}

// Registered returns the owner of fp, if any.
func (r *Registry) Registered(fp Fingerprint) (Owner, bool) {
	r.mu.RLock()
	owner, ok := r.trusted[fp]
	r.mu.RUnlock()
	return owner, ok
}

// CheckMimicry reports a hit when fp is registered to a server other
// than the presenting one. Server comparison is case-insensitive,
// matching whitelist lookup semantics.
func (r *Registry) CheckMimicry(server string, fp Fingerprint) (Owner, bool) {
	r.mu.RLock()
	owner, ok := r.trusted[fp]
	r.mu.RUnlock()
	if !ok || strings.EqualFold(owner.Server, server) {
		return Owner{}, false
	}
	return owner, true
}

// Observe records a session sighting of tool from server and reports a
// namespace collision when the same tool name was already seen from a
// different server with a non-matching fingerprint. Repeat sightings of
// the same (server, tool, fingerprint) triple are deduplicated so a
// re-sent tools list does not emit duplicate warnings.
func (r *Registry) Observe(server, tool string, fp Fingerprint) (Collision, bool) {
	key := observationKey(server, tool, fp)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.seen[key]; dup {
		return Collision{}, false
	}
	r.seen[key] = strings.ToLower(server)

	var collision Collision
	found := false
	for _, o := range r.session[tool] {
		if !strings.EqualFold(o.server, server) && o.fp != fp {
			collision = Collision{Tool: tool, OtherServer: o.server}
			found = true
			break
		}
	}

	r.session[tool] = append(r.session[tool], observation{server: server, fp: fp})
	return collision, found
}

// SessionFingerprint returns the fingerprint most recently observed for
// the (server, tool) pair this session.
func (r *Registry) SessionFingerprint(server, tool string) (Fingerprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obs := r.session[tool]
	for i := len(obs) - 1; i >= 0; i-- {
		if strings.EqualFold(obs[i].server, server) {
			return obs[i].fp, true
		}
	}
	return "", false
}

// ResetServer purges the session observations attributed to server so a
// reconnect starts clean. Trusted registrations are not touched; those
// represent known-good definitions, not session state.
func (r *Registry) ResetServer(server string) {
	lower := strings.ToLower(server)

	r.mu.Lock()
	defer r.mu.Unlock()

	for tool, obs := range r.session {
		kept := obs[:0]
		for _, o := range obs {
			if !strings.EqualFold(o.server, server) {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			delete(r.session, tool)
		} else {
			r.session[tool] = kept
		}
	}

	for key, owner := range r.seen {
		if owner == lower {
			delete(r.seen, key)
		}
	}
}

// observationKey builds the dedupe key for one sighting. murmur3 is a
// fast non-cryptographic hash; collisions here only risk suppressing a
// duplicate warning, never a deny.
func observationKey(server, tool string, fp Fingerprint) uint64 {
	h := murmur3.New64()
	h.Write([]byte(strings.ToLower(server)))
	h.Write([]byte{0})
	h.Write([]byte(tool))
	h.Write([]byte{0})
	h.Write([]byte(fp))
	return h.Sum64()
}
