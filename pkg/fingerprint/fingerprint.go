// Package fingerprint detects tool mimicry across MCP servers.
// A fingerprint is the SHA-256 of the canonical JSON form of a tool's
// identity fields {name, description, input_schema}; two servers
// presenting byte-different but semantically identical definitions
// produce the same hash. The Registry remembers which trusted server
// owns each fingerprint and tracks per-session observations to flag
// namespace collisions.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Fingerprint is a lowercase-hex SHA-256 digest.
type Fingerprint string

// Compute returns the fingerprint of a tool definition. The input
// schema is canonicalized (RFC 8785: sorted members, normalized
// numbers) before hashing, so member order never changes the result.
func Compute(name, description string, inputSchema []byte) Fingerprint {
	payload, err := json.Marshal(struct {
		Description string         `json:"description"`
		InputSchema jsontext.Value `json:"input_schema"`
		Name        string         `json:"name"`
	}{
		Description: description,
		InputSchema: canonicalSchema(inputSchema),
		Name:        name,
	})
	if err != nil {
		// Marshal of plain strings plus a validated jsontext.Value
		// cannot fail; hash whatever we have rather than faulting.
		payload = []byte(name + "\x00" + description + "\x00" + string(inputSchema))
	}

	sum := sha256.Sum256(payload)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// canonicalSchema returns the RFC 8785 canonical form of raw. A missing
// schema canonicalizes to JSON null; bytes that are not valid JSON are
// folded in as a JSON string so the fingerprint stays deterministic for
// any well-typed input.
func canonicalSchema(raw []byte) jsontext.Value {
	if len(raw) == 0 {
		return jsontext.Value("null")
	}

	v := jsontext.Value(append([]byte(nil), raw...))
	if err := v.Canonicalize(); err == nil {
		return v
	}

	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return jsontext.Value("null")
	}
	return jsontext.Value(quoted)
}
