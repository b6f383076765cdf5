package guard

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Context carries the per-event input supplied by the host. The guard
// never fetches anything itself: TLSValid reflects whatever validation
// the host transport performed (nil means not validated).
type Context struct {
	ServerName string `json:"server_name"`
	ServerURL  string `json:"server_url"`
	TLSValid   *bool  `json:"tls_valid,omitempty"`
}

// tlsOK reports whether the host affirmatively validated TLS.
// Absent counts the same as invalid: unvalidated transport does not
// satisfy a require_valid_tls policy.
func (c Context) tlsOK() bool {
	return c.TLSValid != nil && *c.TLSValid
}

// Tool is one tool definition as presented by a server. InputSchema is
// kept as raw JSON; member order is irrelevant to the tool's identity.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolFromMCP converts a tool definition from the official MCP Go SDK.
func ToolFromMCP(t *mcp.Tool) (Tool, error) {
	out := Tool{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return Tool{}, fmt.Errorf("guard: tool %q: encoding input schema: %w", t.Name, err)
		}
		out.InputSchema = raw
	}
	return out, nil
}

// ToolsFromMCP converts a tools-list response from the MCP Go SDK.
func ToolsFromMCP(tools []*mcp.Tool) ([]Tool, error) {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		converted, err := ToolFromMCP(t)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}
