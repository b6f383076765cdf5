package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/mcpguard/pkg/config"
	"github.com/waftester/mcpguard/pkg/guard"
	"github.com/waftester/mcpguard/pkg/whitelist"
)

func testEngine(t *testing.T) *guard.Engine {
	t.Helper()

	cfg := config.Default()
	cfg.BlockUnknownServers = true
	cfg.Whitelist = []whitelist.Entry{{
		Name:       "finance-tools",
		URLPattern: `https://finance\.company\.com/.*`,
	}}

	e, err := guard.New(cfg)
	require.NoError(t, err)
	return e
}

func TestEvaluate_RoutesByEventType(t *testing.T) {
	t.Parallel()

	e := testEngine(t)

	d, err := evaluate(e, event{
		Type:    guard.PhaseServerConnection,
		Context: guard.Context{ServerName: "finance-tools", ServerURL: "https://finance.company.com/mcp"},
	})
	require.NoError(t, err)
	assert.Equal(t, guard.VerdictAllow, d.Verdict)

	d, err = evaluate(e, event{
		Type:    guard.PhaseToolsList,
		Context: guard.Context{ServerName: "finance-tools"},
		Tools:   []guard.Tool{{Name: "calculate_invoice"}},
	})
	require.NoError(t, err)
	assert.Equal(t, guard.VerdictAllow, d.Verdict)

	d, err = evaluate(e, event{
		Type:     guard.PhaseToolInvoke,
		Context:  guard.Context{ServerName: "finance-tools"},
		ToolName: "calculate_invoice",
	})
	require.NoError(t, err)
	assert.Equal(t, guard.VerdictAllow, d.Verdict)

	_, err = evaluate(e, event{Type: "bogus"})
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"type":"server_connection","context":{"server_name":"finance-tools","server_url":"https://finance.company.com/mcp"}}`,
		``,
		`{"type":"server_connection","context":{"server_name":"finance-too1s","server_url":"https://evil.com/mcp"}}`,
		`{"type":"server_connection","context":{"server_name":"random-server","server_url":"https://random.com"}}`,
	}, "\n")

	var out bytes.Buffer
	denied, err := replay(context.Background(), testEngine(t), strings.NewReader(input), &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, denied)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, "blank input lines are skipped")
	assert.Contains(t, lines[0], `"decision":"allow"`)
	assert.Contains(t, lines[1], `"typosquat_detected"`)
	assert.Contains(t, lines[2], `"server_not_whitelisted"`)
}

func TestReplay_BadLine(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, err := replay(context.Background(), testEngine(t), strings.NewReader("{broken"), &out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
