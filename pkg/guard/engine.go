package guard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/waftester/mcpguard/pkg/config"
	"github.com/waftester/mcpguard/pkg/fingerprint"
	"github.com/waftester/mcpguard/pkg/guardmetrics"
	"github.com/waftester/mcpguard/pkg/similarity"
	"github.com/waftester/mcpguard/pkg/whitelist"
)

// Evaluation phases, used as metric labels and in host-side logs.
const (
	PhaseServerConnection = "server_connection"
	PhaseToolsList        = "tools_list"
	PhaseToolInvoke       = "tool_invoke"
)

// Engine is the guard decision engine. It owns a whitelist store and a
// fingerprint registry built once from the configuration; all mutation
// goes through the administrative methods.
type Engine struct {
	cfg      config.Config
	store    *whitelist.Store
	registry *fingerprint.Registry
	metrics  *guardmetrics.Metrics
}

// New builds an engine from cfg. A nil cfg means Default(). The
// configuration is validated here; whitelist-declared tool fingerprints
// are registered immediately.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := whitelist.NewStore(cfg.Whitelist)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	registry := fingerprint.NewRegistry()
	for _, e := range cfg.Whitelist {
		for tool, fp := range e.ToolFingerprints {
			registry.Register(e.Name, tool, fingerprint.Fingerprint(fp))
		}
	}

	return &Engine{
		cfg:      *cfg,
		store:    store,
		registry: registry,
	}, nil
}

// InstrumentWith attaches Prometheus collectors; every subsequent
// evaluation is counted and timed. Call before serving traffic.
func (e *Engine) InstrumentWith(m *guardmetrics.Metrics) {
	e.metrics = m
}

// EvaluateServerConnection decides whether a connection to the server
// described by cx may proceed.
func (e *Engine) EvaluateServerConnection(cx Context) (d Decision) {
	defer e.finish(PhaseServerConnection, time.Now(), &d)
	return e.evaluateServerConnection(cx)
}

func (e *Engine) evaluateServerConnection(cx Context) Decision {
	if !e.cfg.WhitelistEnabled {
		return Allow()
	}

	var warnings []string

	entry, known := e.store.Lookup(cx.ServerName)
	if !known || !e.store.MatchesURL(cx.ServerName, cx.ServerURL) {
		// Not a clean whitelist hit. Typosquat detection runs first:
		// impersonation outranks the milder unknown-server outcomes.
		if e.cfg.TyposquatDetectionEnabled {
			match, hit := similarity.BestMatch(cx.ServerName, e.store.Names(), e.cfg.TyposquatSimilarityThreshold)
			if hit {
				return Deny(ReasonTyposquat, match.Name)
			}
		}
		if known {
			return Deny(ReasonURLMismatch,
				fmt.Sprintf("url %q does not match the registered pattern for %q", cx.ServerURL, entry.Name))
		}
		if e.cfg.BlockUnknownServers {
			return Deny(ReasonNotWhitelisted, cx.ServerName)
		}
		warnings = append(warnings,
			fmt.Sprintf("server %q is not whitelisted; allowing unregistered server", cx.ServerName))
	}

	// TLS posture runs after the whitelist stage and before any allow
	// path returns: a whitelisted server on a broken transport is still
	// denied.
	if e.cfg.HealthValidationEnabled && e.cfg.RequireValidTLS && !cx.tlsOK() {
		return Deny(ReasonInvalidTLS,
			fmt.Sprintf("server %q did not present a validated TLS connection", cx.ServerName))
	}

	if len(warnings) > 0 {
		return Warn(warnings...)
	}
	return Allow()
}

// EvaluateToolsList decides whether the tool definitions presented by
// cx's server may be exposed. Tools are checked in list order; the
// first mimicry hit denies and short-circuits the rest.
func (e *Engine) EvaluateToolsList(tools []Tool, cx Context) (d Decision) {
	defer e.finish(PhaseToolsList, time.Now(), &d)
	return e.evaluateToolsList(tools, cx)
}

func (e *Engine) evaluateToolsList(tools []Tool, cx Context) Decision {
	if !e.cfg.ToolMimicryDetectionEnabled {
		return Allow()
	}

	_, trusted := e.store.Lookup(cx.ServerName)

	var warnings []string
	for _, tool := range tools {
		fp := fingerprint.Compute(tool.Name, tool.Description, tool.InputSchema)

		if owner, hit := e.registry.CheckMimicry(cx.ServerName, fp); hit {
			return Deny(ReasonToolMimicry,
				fmt.Sprintf("tool %q matches the fingerprint of %s from trusted server %q", tool.Name, owner.Tool, owner.Server))
		}

		if collision, ok := e.registry.Observe(cx.ServerName, tool.Name, fp); ok {
			warnings = append(warnings,
				fmt.Sprintf("tool %q is also provided by server %q with a different definition", collision.Tool, collision.OtherServer))
		}

		if trusted {
			e.registry.Register(cx.ServerName, tool.Name, fp)
		}
	}

	if len(warnings) > 0 {
		return Warn(warnings...)
	}
	return Allow()
}

// EvaluateToolInvoke decides whether a single tool call may proceed.
// The check uses the fingerprint observed for (server, tool) earlier in
// the session; arguments are opaque to this guard and are accepted only
// so hosts can route the full call through one interface.
func (e *Engine) EvaluateToolInvoke(toolName string, arguments json.RawMessage, cx Context) (d Decision) {
	defer e.finish(PhaseToolInvoke, time.Now(), &d)
	return e.evaluateToolInvoke(toolName, arguments, cx)
}

func (e *Engine) evaluateToolInvoke(toolName string, _ json.RawMessage, cx Context) Decision {
	if !e.cfg.ToolMimicryDetectionEnabled {
		return Allow()
	}

	fp, seen := e.registry.SessionFingerprint(cx.ServerName, toolName)
	if !seen {
		// Never observed from this server this session: nothing to
		// compare against. Definition-level checks ran at list time.
		return Allow()
	}

	if owner, hit := e.registry.CheckMimicry(cx.ServerName, fp); hit {
		return Deny(ReasonToolMimicry,
			fmt.Sprintf("tool %q matches the fingerprint of %s from trusted server %q", toolName, owner.Tool, owner.Server))
	}
	return Allow()
}

// AddToWhitelist upserts a trusted-server entry and registers its
// declared tool fingerprints. Takes effect for subsequent evaluations.
func (e *Engine) AddToWhitelist(entry whitelist.Entry) error {
	if err := e.store.Add(entry); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	for tool, fp := range entry.ToolFingerprints {
		e.registry.Register(entry.Name, tool, fingerprint.Fingerprint(fp))
	}
	return nil
}

// RemoveFromWhitelist removes the named entry and reports whether it
// existed.
func (e *Engine) RemoveFromWhitelist(name string) bool {
	return e.store.Remove(name)
}

// ResetServer purges the session-scoped observations for a server so a
// reconnect starts clean. Trusted fingerprint registrations persist.
func (e *Engine) ResetServer(name string) {
	e.registry.ResetServer(name)
}

// finish converts any internal fault into a fail-closed deny and, when
// instrumented, records the decision.
func (e *Engine) finish(phase string, start time.Time, d *Decision) {
	if r := recover(); r != nil {
		*d = Deny(ReasonInternalError, fmt.Sprintf("%v", r))
	}
	if e.metrics != nil {
		e.metrics.ObserveDecision(phase, string(d.Verdict), d.Reason, time.Since(start))
	}
}
