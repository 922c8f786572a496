package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/keiyakucheck/internal/audit"
	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/speculative"
	"github.com/ericksa/keiyakucheck/internal/workers"
)

const contractText = "本契約は請負契約とし、乙は仕事の完成を約する。甲は成果物の検収を行う。"

func TestHandler_Tools(t *testing.T) {
	h := NewHandler(speculative.NewCoordinator(), nil)

	var names []string
	for _, tool := range h.Tools() {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "contract_checkpoints")
	assert.Contains(t, names, "contract_reconcile")
	assert.NotContains(t, names, "audit_logs")
	assert.IsIncreasing(t, names)
}

func TestHandler_ExecuteTool(t *testing.T) {
	a := audit.NewAuditor(":memory:")
	defer a.Close()
	h := NewHandler(speculative.NewCoordinator(), a)

	args, _ := json.Marshal(map[string]string{"text": contractText})
	out, err := h.ExecuteTool(context.Background(), "contract_classify", args)
	require.NoError(t, err)

	var res contracttype.Result
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, contracttype.Completion, res.DetectedType)

	_, err = h.ExecuteTool(context.Background(), "minio_put", nil)
	assert.ErrorIs(t, err, workers.ErrUnknownTool)
	_, err = h.ExecuteTool(context.Background(), "contract", nil)
	assert.ErrorIs(t, err, workers.ErrUnknownTool)

	entries, err := a.GetLogs(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "contract_classify", entries[0].Tool)

	out, err = h.ExecuteTool(context.Background(), "audit_logs", json.RawMessage(`{"limit":5}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "contract_classify")
}

func TestHandler_MCPSession(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(speculative.NewCoordinator(), nil)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := h.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, tools.Tools, len(h.Tools()))

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "contract_classify",
		Arguments: map[string]any{"text": contractText},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"detected_type":"completion"`)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "contract_reconcile",
		Arguments: map[string]any{"id": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
