package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ericksa/keiyakucheck/internal/audit"
	"github.com/ericksa/keiyakucheck/internal/speculative"
	"github.com/ericksa/keiyakucheck/internal/workers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const version = "1.0.0"

type Worker interface {
	GetTools() []workers.ToolDef
	Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error)
}

// ToolInfo is a published tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Handler struct {
	audit   *audit.Auditor
	workers map[string]Worker
	server  *mcp.Server
	http    http.Handler
}

// NewHandler publishes the contract tools backed by coord, and the audit
// tools when the auditor is enabled.
func NewHandler(coord *speculative.Coordinator, auditor *audit.Auditor) *Handler {
	h := &Handler{
		audit:   auditor,
		workers: make(map[string]Worker),
	}

	// Contract worker (always enabled)
	h.workers["contract"] = workers.NewContractWorker(coord)

	if auditor.Enabled() {
		h.workers["audit"] = workers.NewAuditWorker(auditor)
	}

	h.initMCPServer()
	return h
}

func (h *Handler) initMCPServer() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "keiyakucheck",
		Version: version,
	}, nil)

	for _, tool := range h.Tools() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
		}, h.wrapTool(tool.Name))
	}

	h.server = server
	h.http = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

func (h *Handler) wrapTool(toolName string) func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		inputBytes, _ := json.Marshal(input)
		result, err := h.ExecuteTool(ctx, toolName, inputBytes)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: err.Error()},
				},
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(result)},
			},
		}, nil, nil
	}
}

// Tools lists every published tool as <worker>_<tool>, sorted by name.
func (h *Handler) Tools() []ToolInfo {
	var tools []ToolInfo
	for name, worker := range h.workers {
		for _, tool := range worker.GetTools() {
			tools = append(tools, ToolInfo{
				Name:        fmt.Sprintf("%s_%s", name, tool.Name),
				Description: tool.Description,
			})
		}
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// ServeHTTP serves the MCP streamable HTTP transport.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.http == nil {
		http.Error(w, "MCP server not initialized", http.StatusInternalServerError)
		return
	}
	h.http.ServeHTTP(w, r)
}

// RunStdio serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (h *Handler) RunStdio(ctx context.Context) error {
	return h.server.Run(ctx, &mcp.StdioTransport{})
}

// ExecuteTool runs a <worker>_<tool> call and records it in the audit log.
func (h *Handler) ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) ([]byte, error) {
	workerName, shortName, ok := strings.Cut(toolName, "_")
	worker, found := h.workers[workerName]
	if !ok || !found || shortName == "" {
		return nil, fmt.Errorf("%w: %s", workers.ErrUnknownTool, toolName)
	}
	result, err := worker.Execute(ctx, shortName, args)
	h.audit.Log(toolName, args, result, err)
	return result, err
}
