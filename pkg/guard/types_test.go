package guard

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/mcpguard/pkg/fingerprint"
)

func TestToolFromMCP(t *testing.T) {
	t.Parallel()

	src := &mcp.Tool{
		Name:        "calculate_invoice",
		Description: "Compute an invoice total",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"amount": map[string]any{"type": "number"},
			},
		},
	}

	tool, err := ToolFromMCP(src)
	require.NoError(t, err)
	assert.Equal(t, "calculate_invoice", tool.Name)
	assert.Equal(t, "Compute an invoice total", tool.Description)
	assert.NotEmpty(t, tool.InputSchema)
}

func TestToolFromMCP_FingerprintStableAcrossMapOrder(t *testing.T) {
	t.Parallel()

	// Repeated conversions of the same schema must always land on the
	// same fingerprint, whatever byte form the encoder produced.
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"amount":   map[string]any{"type": "number"},
			"currency": map[string]any{"type": "string"},
			"due":      map[string]any{"type": "string"},
		},
	}

	first, err := ToolFromMCP(&mcp.Tool{Name: "t", InputSchema: schema})
	require.NoError(t, err)
	fp := fingerprint.Compute(first.Name, first.Description, first.InputSchema)

	for i := 0; i < 8; i++ {
		again, err := ToolFromMCP(&mcp.Tool{Name: "t", InputSchema: schema})
		require.NoError(t, err)
		assert.Equal(t, fp, fingerprint.Compute(again.Name, again.Description, again.InputSchema))
	}
}

func TestToolsFromMCP(t *testing.T) {
	t.Parallel()

	tools, err := ToolsFromMCP([]*mcp.Tool{
		{Name: "a"},
		{Name: "b", InputSchema: map[string]any{"type": "object"}},
	})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "a", tools[0].Name)
	assert.Empty(t, tools[0].InputSchema)
}

func TestDecisionWireShape(t *testing.T) {
	t.Parallel()

	assert.True(t, Deny(ReasonTyposquat, "finance-tools").Blocked())
	assert.False(t, Allow().Blocked())
	assert.False(t, Warn("msg").Blocked())

	d := Warn("first", "second")
	assert.Equal(t, []string{"first", "second"}, d.Messages)
}
