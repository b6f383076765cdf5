package guard

// Verdict is the outcome class of an evaluation.
// Severity order: deny > warn > allow.
type Verdict string

const (
	// VerdictAllow lets the event proceed with no findings.
	VerdictAllow Verdict = "allow"

	// VerdictWarn lets the event proceed but carries non-blocking,
	// human-readable messages.
	VerdictWarn Verdict = "warn"

	// VerdictDeny blocks the event with a machine-readable reason.
	VerdictDeny Verdict = "deny"
)

// Machine-readable deny reasons. These are wire-stable strings; hosts
// key remediation and alerting off them.
const (
	ReasonTyposquat      = "typosquat_detected"
	ReasonURLMismatch    = "url_mismatch"
	ReasonNotWhitelisted = "server_not_whitelisted"
	ReasonInvalidTLS     = "invalid_tls"
	ReasonToolMimicry    = "tool_mimicry_detected"
	ReasonInternalError  = "guard_internal_error"
)

// Decision is the guard's verdict for one event. Reason and Detail are
// set on deny; Messages on warn. The JSON form is the wire shape hosts
// consume: {"decision": "...", "reason": "...", "messages": [...]}.
type Decision struct {
	Verdict  Verdict  `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
	Detail   string   `json:"detail,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// Allow returns an allow decision.
func Allow() Decision {
	return Decision{Verdict: VerdictAllow}
}

// Deny returns a deny decision with a machine-readable reason and an
// optional human-readable detail.
func Deny(reason, detail string) Decision {
	return Decision{Verdict: VerdictDeny, Reason: reason, Detail: detail}
}

// Warn returns a warn decision carrying the given messages in order.
func Warn(messages ...string) Decision {
	return Decision{Verdict: VerdictWarn, Messages: messages}
}

// Blocked reports whether the decision denies the event.
func (d Decision) Blocked() bool {
	return d.Verdict == VerdictDeny
}
