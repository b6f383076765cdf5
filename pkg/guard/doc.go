// Package guard implements the MCP trust guard decision engine.
// It inspects server connections, tools-list responses, and tool
// invocations, and returns allow/warn/deny verdicts defending against
// fake servers, typosquatted server names, and tool mimicry.
//
// # Pipelines
//
// Each entry point is a short-circuiting ordered pipeline:
//
//   - EvaluateServerConnection: whitelist membership, typosquat
//     detection, URL pattern match, unknown-server policy, TLS posture.
//   - EvaluateToolsList: per-tool fingerprint mimicry (deny) and
//     namespace collision (warn) checks, with lazy registration of
//     trusted servers' fingerprints.
//   - EvaluateToolInvoke: the same posture scoped to one named tool;
//     arguments are opaque to this guard.
//
// Cross-check precedence: whitelist membership > typosquat >
// TLS/health > tool mimicry > namespace collision. The first deny in
// that order wins; deny always beats warn.
//
// # Failure posture
//
// Evaluate* never panics across the API boundary. An internal fault is
// converted to a deny with reason "guard_internal_error" — the engine
// fails closed regardless of the host's timeout policy. Malformed
// configuration is rejected at construction, never mid-evaluation.
//
// # Concurrency
//
// One engine serves unlimited concurrent evaluations. Administrative
// mutations (AddToWhitelist, RemoveFromWhitelist, ResetServer) are
// atomic with respect to in-flight readers. Evaluations perform no I/O
// and no unbounded work; URL patterns are matched by Go's linear-time
// RE2 engine.
package guard
